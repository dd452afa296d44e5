package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines an editing scenario: a sequence of steps against a fresh
// session followed by assertions on the resulting circuit.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Defs lists directories of CUE gate definitions to add to the builtin
	// catalog. Paths are relative to the scenario file location.
	Defs []string `yaml:"defs,omitempty"`

	// Document is an optional fixed document id. If empty, defaults to
	// "test-doc-default" for deterministic golden file comparison.
	Document string `yaml:"document,omitempty"`

	// DrawTimeout enables the connection drawing timeout, e.g. "2s".
	DrawTimeout string `yaml:"draw_timeout,omitempty"`

	// Steps run in order against one session.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final circuit.
	// Supported types: value, entity_count, connection_count, bound, stable, exists
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one editing action. Exactly one action field must be set.
//
// Entities are referred to by alias (set with "as"); a slot is referred to
// as "alias.SlotName".
type Step struct {
	CreateGate   *CreateStep   `yaml:"create_gate,omitempty"`
	CreateInput  *CreateStep   `yaml:"create_input,omitempty"`
	CreateOutput *CreateStep   `yaml:"create_output,omitempty"`
	Annotate     *AnnotateStep `yaml:"annotate,omitempty"`
	Connect      *ConnectStep  `yaml:"connect,omitempty"`
	Drag         *DragStep     `yaml:"drag,omitempty"`

	// Down, Move and Up drive the pointer directly.
	Down *Loc `yaml:"down,omitempty"`
	Move *Loc `yaml:"move,omitempty"`
	Up   *Loc `yaml:"up,omitempty"`

	Remove string `yaml:"remove,omitempty"`
	Toggle string `yaml:"toggle,omitempty"`

	// Click presses and releases the pointer on an entity's centre.
	Click string `yaml:"click,omitempty"`

	// Key presses a key at the current pointer position. As names the node
	// a shortcut creates.
	Key string `yaml:"key,omitempty"`
	As  string `yaml:"as,omitempty"`

	// Wait advances the scenario clock and ticks the session, e.g. "3s".
	Wait string `yaml:"wait,omitempty"`

	// ExpectError marks a step that must fail.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Op names the action a step performs, or "" when none is set.
func (s Step) Op() string {
	ops := s.ops()
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

func (s Step) ops() []string {
	var ops []string
	add := func(set bool, name string) {
		if set {
			ops = append(ops, name)
		}
	}
	add(s.CreateGate != nil, StepCreateGate)
	add(s.CreateInput != nil, StepCreateInput)
	add(s.CreateOutput != nil, StepCreateOutput)
	add(s.Annotate != nil, StepAnnotate)
	add(s.Connect != nil, StepConnect)
	add(s.Drag != nil, StepDrag)
	add(s.Down != nil, StepDown)
	add(s.Move != nil, StepMove)
	add(s.Up != nil, StepUp)
	add(s.Remove != "", StepRemove)
	add(s.Toggle != "", StepToggle)
	add(s.Click != "", StepClick)
	add(s.Key != "", StepKey)
	add(s.Wait != "", StepWait)
	return ops
}

// Step names.
const (
	StepCreateGate   = "create_gate"
	StepCreateInput  = "create_input"
	StepCreateOutput = "create_output"
	StepAnnotate     = "annotate"
	StepConnect      = "connect"
	StepDrag         = "drag"
	StepDown         = "down"
	StepMove         = "move"
	StepUp           = "up"
	StepRemove       = "remove"
	StepToggle       = "toggle"
	StepClick        = "click"
	StepKey          = "key"
	StepWait         = "wait"
)

// CreateStep places a node of type Tag centred at At.
type CreateStep struct {
	Tag string `yaml:"tag"`
	At  Loc    `yaml:"at"`
	As  string `yaml:"as,omitempty"`
}

// AnnotateStep places free text with its top-left corner at At.
type AnnotateStep struct {
	Text  string `yaml:"text"`
	Style string `yaml:"style,omitempty"`
	At    Loc    `yaml:"at"`
	As    string `yaml:"as,omitempty"`
}

// ConnectStep draws a connection from one slot to another with a full
// pointer gesture.
type ConnectStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DragStep presses on an entity's centre, moves by By and releases.
type DragStep struct {
	Target string    `yaml:"target"`
	By     []float64 `yaml:"by"`
}

// Loc is a surface position written either as [x, y] or as a reference:
// "alias" for an entity's centre, "alias.Slot" for a slot.
type Loc struct {
	Ref  string
	X, Y float64
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *Loc) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.TrimSpace(node.Value) == "" {
			return fmt.Errorf("line %d: empty location reference", node.Line)
		}
		l.Ref = node.Value
		return nil
	case yaml.SequenceNode:
		var xy []float64
		if err := node.Decode(&xy); err != nil {
			return fmt.Errorf("line %d: location: %w", node.Line, err)
		}
		if len(xy) != 2 {
			return fmt.Errorf("line %d: location needs [x, y], got %d values", node.Line, len(xy))
		}
		l.X, l.Y = xy[0], xy[1]
		return nil
	default:
		return fmt.Errorf("line %d: location must be [x, y] or a reference", node.Line)
	}
}

func (l Loc) String() string {
	if l.Ref != "" {
		return l.Ref
	}
	return fmt.Sprintf("(%g,%g)", l.X, l.Y)
}

// Assertion validates the final circuit.
type Assertion struct {
	// Type specifies the assertion type:
	// - "value": node Target computes Want
	// - "entity_count": Count live entities of Kind (all kinds if empty)
	// - "connection_count": Count connections, or those on slot Target
	// - "bound": a committed connection joins slot From to slot To
	// - "stable": the last propagation settled (Want defaults to true)
	// - "exists": alias Target is live (Want defaults to true)
	Type string `yaml:"type"`

	Target string `yaml:"target,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	From   string `yaml:"from,omitempty"`
	To     string `yaml:"to,omitempty"`

	Want  *bool `yaml:"want,omitempty"`
	Count *int  `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertValue           = "value"
	AssertEntityCount     = "entity_count"
	AssertConnectionCount = "connection_count"
	AssertBound           = "bound"
	AssertStable          = "stable"
	AssertExists          = "exists"
)

// want returns Want, or def when unset.
func (a Assertion) want(def bool) bool {
	if a.Want == nil {
		return def
	}
	return *a.Want
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Defs paths are resolved relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving defs paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, dir := range scenario.Defs {
		if !filepath.IsAbs(dir) && basePath != "" {
			scenario.Defs[i] = filepath.Join(basePath, dir)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and step/assertion shape.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}
	if s.DrawTimeout != "" {
		if d, err := time.ParseDuration(s.DrawTimeout); err != nil || d <= 0 {
			return fmt.Errorf("draw_timeout: invalid duration %q", s.DrawTimeout)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step, i); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, index int) error {
	ops := step.ops()
	switch len(ops) {
	case 0:
		return fmt.Errorf("steps[%d]: no action set", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one action allowed, got %s", index, strings.Join(ops, ", "))
	}

	switch ops[0] {
	case StepCreateGate, StepCreateInput, StepCreateOutput:
		c := step.CreateGate
		if c == nil {
			c = step.CreateInput
		}
		if c == nil {
			c = step.CreateOutput
		}
		if c.Tag == "" {
			return fmt.Errorf("steps[%d]: tag is required for %s", index, ops[0])
		}
	case StepAnnotate:
		if step.Annotate.Text == "" && !step.ExpectError {
			return fmt.Errorf("steps[%d]: text is required for annotate", index)
		}
	case StepConnect:
		if step.Connect.From == "" || step.Connect.To == "" {
			return fmt.Errorf("steps[%d]: from and to are required for connect", index)
		}
	case StepDrag:
		if step.Drag.Target == "" || len(step.Drag.By) != 2 {
			return fmt.Errorf("steps[%d]: drag needs a target and by: [dx, dy]", index)
		}
	case StepWait:
		if _, err := time.ParseDuration(step.Wait); err != nil {
			return fmt.Errorf("steps[%d]: wait: invalid duration %q", index, step.Wait)
		}
	}
	if step.As != "" && ops[0] != StepKey {
		return fmt.Errorf("steps[%d]: as is only valid on key steps", index)
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertValue:
		if a.Target == "" || a.Want == nil {
			return fmt.Errorf("assertions[%d]: target and want are required for value", index)
		}
	case AssertEntityCount, AssertConnectionCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertBound:
		if a.From == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: from and to are required for bound", index)
		}
	case AssertStable:
	case AssertExists:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for exists", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
