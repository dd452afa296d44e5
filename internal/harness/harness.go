package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/compiler"
	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/store"
	"github.com/roach88/connectlab/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives one session with a manual clock and a fixed document id.
type Harness struct {
	session *engine.Session
	clock   *testutil.ManualTime
	logger  *slog.Logger

	aliases map[string]ir.ID
	outputs []string // output aliases, in the order they were bound
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and journal document
// 2. Build the catalog from builtins plus the scenario's gate definitions
// 3. Execute steps against a session journaling into the store
// 4. Evaluate assertions
// 5. Read the journal back, replay it and compare snapshot hashes
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := loadCatalog(scenario.Defs)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	docs := testutil.NewFixedDocumentID(scenario.Document)
	rec, err := store.NewRecorder(ctx, st, store.Document{ID: docs.Generate(), Title: scenario.Name})
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}

	clock := testutil.NewManualTime(time.Time{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	opts := []engine.Option{
		engine.WithCatalog(cat),
		engine.WithLogger(logger),
		engine.WithNow(clock.Now),
		engine.WithRecorder(rec),
		engine.WithDocumentIDGenerator(docs),
	}
	if scenario.DrawTimeout != "" {
		d, err := time.ParseDuration(scenario.DrawTimeout)
		if err != nil {
			return nil, fmt.Errorf("draw_timeout: %w", err)
		}
		opts = append(opts, engine.WithDrawTimeout(d))
	}

	h := &Harness{
		session: engine.New(opts...),
		clock:   clock,
		logger:  logger,
		aliases: make(map[string]ir.ID),
	}

	result := NewResult()
	result.Document = h.session.DocumentID()
	h.executeSteps(scenario.Steps, result)

	for _, msg := range h.Evaluate(scenario.Assertions) {
		result.AddError(msg)
	}

	ops, err := st.ReadOps(ctx, rec.DocumentID())
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	result.Ops = ops

	hash, err := h.session.SnapshotHash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash snapshot: %w", err)
	}
	result.SnapshotHash = hash

	if err := verifyReplay(ops, cat, result.Document, hash, logger); err != nil {
		result.AddError(err.Error())
	}

	return result, nil
}

// loadCatalog returns the builtin catalog extended with every definition
// directory in defs.
func loadCatalog(defs []string) (*catalog.Catalog, error) {
	cat := catalog.Builtin()
	for _, dir := range defs {
		next, err := compiler.LoadDir(dir, cat)
		if err != nil {
			return nil, fmt.Errorf("failed to load gate definitions from %s: %w", dir, err)
		}
		cat = next
	}
	return cat, nil
}

// verifyReplay rebuilds the document from its journal and checks that it
// hashes to the live snapshot.
func verifyReplay(ops []ir.Op, cat *catalog.Catalog, doc, want string, logger *slog.Logger) error {
	replayed, err := engine.Replay(ops,
		engine.WithCatalog(cat),
		engine.WithLogger(logger),
		engine.WithDocumentID(doc),
	)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	got, err := replayed.SnapshotHash()
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	if got != want {
		return fmt.Errorf("replay diverged: live snapshot %s, replayed %s", want, got)
	}
	return nil
}

// Session returns the session the harness drives.
func (h *Harness) Session() *engine.Session {
	return h.session
}

// executeSteps runs every step and appends one trace event per step.
// A failing step is recorded and execution continues.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		ev := TraceEvent{Step: i + 1, Op: step.Op()}

		id, err := h.execute(step)
		ev.ID = id
		ev.Seq = h.session.Seq()

		switch {
		case err != nil && !step.ExpectError:
			ev.Error = err.Error()
			result.AddError(fmt.Sprintf("step %d (%s): %v", ev.Step, ev.Op, err))
		case err != nil:
			ev.Error = err.Error()
		case step.ExpectError:
			result.AddError(fmt.Sprintf("step %d (%s): expected an error", ev.Step, ev.Op))
		}

		ev.Outputs = h.outputValues()
		result.Trace = append(result.Trace, ev)

		h.logger.Info("step completed",
			"step", ev.Step,
			"op", ev.Op,
			"id", id,
			"seq", ev.Seq,
			"error", err,
		)
	}
}

// execute performs one step and returns the entity it created or acted on.
func (h *Harness) execute(step Step) (ir.ID, error) {
	s := h.session

	switch step.Op() {
	case StepCreateGate:
		return h.create(step.CreateGate, s.CreateGate)
	case StepCreateInput:
		return h.create(step.CreateInput, s.CreateInput)
	case StepCreateOutput:
		return h.create(step.CreateOutput, s.CreateOutput)

	case StepAnnotate:
		a := step.Annotate
		pos, err := h.loc(a.At)
		if err != nil {
			return ir.NoID, err
		}
		id, err := s.CreateAnnotation(a.Text, pos, a.Style)
		if err != nil {
			return ir.NoID, err
		}
		h.bind(a.As, id)
		return id, nil

	case StepConnect:
		return h.connect(step.Connect.From, step.Connect.To)

	case StepDrag:
		id, from, err := h.grab(step.Drag.Target)
		if err != nil {
			return ir.NoID, err
		}
		to := from.Add(geom.Pt(step.Drag.By[0], step.Drag.By[1]))
		s.PointerDown(from)
		s.PointerMove(to)
		s.PointerUp(to)
		return id, nil

	case StepClick:
		id, at, err := h.grab(step.Click)
		if err != nil {
			return ir.NoID, err
		}
		s.PointerDown(at)
		s.PointerUp(at)
		return id, nil

	case StepDown, StepMove, StepUp:
		return ir.NoID, h.pointer(step)

	case StepRemove:
		id, err := h.resolve(step.Remove)
		if err != nil {
			return ir.NoID, err
		}
		return id, s.Remove(id)

	case StepToggle:
		id, err := h.resolve(step.Toggle)
		if err != nil {
			return ir.NoID, err
		}
		_, err = s.ToggleInput(id)
		return id, err

	case StepKey:
		id, err := s.KeyPress(step.Key)
		if err != nil {
			return ir.NoID, err
		}
		if step.As != "" {
			if id == ir.NoID {
				return ir.NoID, fmt.Errorf("key %q created nothing", step.Key)
			}
			h.bind(step.As, id)
		}
		return id, nil

	case StepWait:
		d, err := time.ParseDuration(step.Wait)
		if err != nil {
			return ir.NoID, err
		}
		s.Tick(h.clock.Advance(d))
		return ir.NoID, nil
	}

	return ir.NoID, fmt.Errorf("unsupported step")
}

func (h *Harness) create(c *CreateStep, fn func(catalog.Tag, geom.Point) (ir.ID, error)) (ir.ID, error) {
	pos, err := h.loc(c.At)
	if err != nil {
		return ir.NoID, err
	}
	id, err := fn(catalog.ParseTag(c.Tag), pos)
	if err != nil {
		return ir.NoID, err
	}
	h.bind(c.As, id)
	return id, nil
}

func (h *Harness) pointer(step Step) error {
	var l *Loc
	var fn func(geom.Point)
	switch {
	case step.Down != nil:
		l, fn = step.Down, h.session.PointerDown
	case step.Move != nil:
		l, fn = step.Move, h.session.PointerMove
	default:
		l, fn = step.Up, h.session.PointerUp
	}
	pos, err := h.loc(*l)
	if err != nil {
		return err
	}
	fn(pos)
	return nil
}

// connect draws a connection from one location to another with a full
// pointer gesture and returns it once bound.
func (h *Harness) connect(from, to string) (ir.ID, error) {
	s := h.session
	start, err := h.loc(Loc{Ref: from})
	if err != nil {
		return ir.NoID, err
	}
	end, err := h.loc(Loc{Ref: to})
	if err != nil {
		return ir.NoID, err
	}

	s.PointerDown(start)
	drawing, ok := s.State().(engine.Drawing)
	if !ok {
		// Release whatever the press grabbed instead.
		s.PointerUp(start)
		return ir.NoID, fmt.Errorf("connect: no slot at %s", from)
	}
	s.PointerMove(end)
	s.PointerUp(end)

	c, err := s.Connection(drawing.Conn)
	if err != nil || !c.Bound() {
		return ir.NoID, fmt.Errorf("connect %s -> %s: connection rejected", from, to)
	}
	return drawing.Conn, nil
}

// grab resolves an alias to an entity and its centre.
func (h *Harness) grab(alias string) (ir.ID, geom.Point, error) {
	id, err := h.resolve(alias)
	if err != nil {
		return ir.NoID, geom.Point{}, err
	}
	c, err := h.center(id)
	return id, c, err
}

// bind names an entity. Empty aliases are ignored.
func (h *Harness) bind(alias string, id ir.ID) {
	if alias == "" {
		return
	}
	h.aliases[alias] = id
	if kind, err := h.session.Kind(id); err == nil && kind == ir.KindOutput {
		for _, a := range h.outputs {
			if a == alias {
				return
			}
		}
		h.outputs = append(h.outputs, alias)
	}
}

// resolve turns "alias" or "alias.Slot" into an identity.
func (h *Harness) resolve(ref string) (ir.ID, error) {
	alias, slot, hasSlot := strings.Cut(ref, ".")
	id, ok := h.aliases[alias]
	if !ok {
		return ir.NoID, fmt.Errorf("unknown alias %q", alias)
	}
	if !hasSlot {
		return id, nil
	}
	return h.session.SlotByName(id, slot)
}

// loc resolves a location to a surface position.
func (h *Harness) loc(l Loc) (geom.Point, error) {
	if l.Ref == "" {
		return geom.Pt(l.X, l.Y), nil
	}
	id, err := h.resolve(l.Ref)
	if err != nil {
		return geom.Point{}, err
	}
	if kind, err := h.session.Kind(id); err == nil && kind == ir.KindSlot {
		sl, err := h.session.Slot(id)
		if err != nil {
			return geom.Point{}, err
		}
		return sl.Pos, nil
	}
	return h.center(id)
}

// center returns the centre of a node or annotation.
func (h *Harness) center(id ir.ID) (geom.Point, error) {
	sc := h.session.Scene()
	for _, g := range sc.Gates {
		if g.ID == id {
			return g.Bounds.Center(), nil
		}
	}
	for _, t := range sc.Terminals {
		if t.ID == id {
			return t.Bounds.Center(), nil
		}
	}
	for _, a := range sc.Annotations {
		if a.ID == id {
			return a.Bounds.Center(), nil
		}
	}
	return geom.Point{}, ir.NewNotFound(id, "node or annotation")
}

// outputValues returns the value of every live aliased output, or nil.
func (h *Harness) outputValues() map[string]bool {
	var out map[string]bool
	for _, alias := range h.outputs {
		v, err := h.session.QueryValue(h.aliases[alias])
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[string]bool)
		}
		out[alias] = v
	}
	return out
}
