package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Summary contains results from running every scenario in a directory.
type Summary struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Failure represents a scenario that did not pass.
type Failure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns every .yaml and .yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario directory: %w", err)
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}

	var paths []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(path); !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

// RunAll loads and runs every scenario under dir.
//
// A scenario that fails to load or run counts as failed; RunAll only
// returns an error when dir cannot be scanned.
func RunAll(dir string) (*Summary, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, path := range paths {
		summary.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			summary.fail(filepath.Base(path), path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			summary.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		if !result.Pass {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Scenario: scenario.Name, Path: path, Errors: result.Errors})
			continue
		}
		summary.Passed++
	}
	return summary, nil
}

func (s *Summary) fail(name, path, msg string) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{Scenario: name, Path: path, Errors: []string{msg}})
}
