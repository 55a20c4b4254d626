package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cellsim/internal/engine"
	"github.com/roach88/cellsim/internal/store"
)

// Scenario defines a model run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the run id.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the directory of the CUE model to run.
	// Relative paths resolve against the scenario file location.
	Model string `yaml:"model"`

	// Seed overrides the model seed.
	Seed *uint64 `yaml:"seed,omitempty"`

	// Iterations overrides the model iteration count.
	Iterations *int64 `yaml:"iterations,omitempty"`

	// Expect describes how the run must end.
	Expect Expectation `yaml:"expect,omitempty"`

	// Assertions validate the count trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Expectation is the required run outcome.
type Expectation struct {
	// Status is "completed" (the default) or "failed".
	Status string `yaml:"status,omitempty"`

	// ErrorCode is the runtime error code of a failed run.
	ErrorCode string `yaml:"error_code,omitempty"`
}

// WantStatus returns the expected status with the default applied.
func (e Expectation) WantStatus() string {
	if e.Status == "" {
		return store.StatusCompleted
	}
	return e.Status
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count_value": buffer/column row at Iteration has Value
	// - "count_rows": buffer (and column, if set) has Count rows
	// - "events_fired": Event fired Count times
	// - "live_molecules": the run ended with Count live molecules
	// - "monotonic": buffer/column values move in Direction
	Type string `yaml:"type"`

	Buffer string `yaml:"buffer,omitempty"`
	Column string `yaml:"column,omitempty"`

	Iteration *float64 `yaml:"iteration,omitempty"`
	Value     *float64 `yaml:"value,omitempty"`

	// Tolerance is the allowed absolute difference for count_value.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Event is an event type name (used by events_fired).
	Event string `yaml:"event,omitempty"`

	Count *int `yaml:"count,omitempty"`

	// Direction is "increasing" or "decreasing", both non-strict
	// (used by monotonic).
	Direction string `yaml:"direction,omitempty"`
}

// Assertion type constants.
const (
	AssertCountValue    = "count_value"
	AssertCountRows     = "count_rows"
	AssertEventsFired   = "events_fired"
	AssertLiveMolecules = "live_molecules"
	AssertMonotonic     = "monotonic"
)

// Monotonic directions.
const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
)

var eventNames = map[string]bool{
	engine.EventTypeClampRelease.String(): true,
	engine.EventTypeRelease.String():      true,
	engine.EventTypeCount.String():        true,
	engine.EventTypeDiffuseReact.String(): true,
}

// LoadScenario reads and parses a scenario YAML file, resolving the model
// path against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative model path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the model path BEFORE validation
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) && basePath != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if info, err := os.Stat(s.Model); err != nil || !info.IsDir() {
		return fmt.Errorf("model directory not found: %s", s.Model)
	}

	switch s.Expect.WantStatus() {
	case store.StatusCompleted:
		if s.Expect.ErrorCode != "" {
			return fmt.Errorf("expect: error_code requires status %q", store.StatusFailed)
		}
		if len(s.Assertions) == 0 {
			return fmt.Errorf("assertions list is required and must be non-empty")
		}
	case store.StatusFailed:
	default:
		return fmt.Errorf("expect: unknown status %q", s.Expect.Status)
	}

	if s.Iterations != nil && *s.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCountValue:
		if a.Buffer == "" || a.Column == "" {
			return fmt.Errorf("assertions[%d]: buffer and column are required for count_value", index)
		}
		if a.Iteration == nil || a.Value == nil {
			return fmt.Errorf("assertions[%d]: iteration and value are required for count_value", index)
		}
		if a.Tolerance < 0 {
			return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
		}
	case AssertCountRows:
		if a.Buffer == "" {
			return fmt.Errorf("assertions[%d]: buffer is required for count_rows", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for count_rows", index)
		}
	case AssertEventsFired:
		if !eventNames[a.Event] {
			return fmt.Errorf("assertions[%d]: unknown event type %q for events_fired", index, a.Event)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for events_fired", index)
		}
	case AssertLiveMolecules:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for live_molecules", index)
		}
	case AssertMonotonic:
		if a.Buffer == "" || a.Column == "" {
			return fmt.Errorf("assertions[%d]: buffer and column are required for monotonic", index)
		}
		if a.Direction != DirectionIncreasing && a.Direction != DirectionDecreasing {
			return fmt.Errorf("assertions[%d]: direction must be %q or %q", index, DirectionIncreasing, DirectionDecreasing)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
