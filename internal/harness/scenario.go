package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML scenario file.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// SchemaVersion opens the store at an older layout; zero is current.
	SchemaVersion int `yaml:"schema_version,omitempty"`

	// Setup steps build the starting state. A failing setup step aborts
	// the run.
	Setup []ActionStep `yaml:"setup,omitempty"`

	Flow       []FlowStep  `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is a setup step.
type ActionStep struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args"`
}

// FlowStep is an operation under test. Without Expect it must report
// CaseOK.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Args   map[string]any `yaml:"args"`
	Expect *ExpectClause  `yaml:"expect,omitempty"`
}

// ExpectClause is the outcome a flow step should report. Result is
// matched as a subset of the step's result.
type ExpectClause struct {
	Case   string         `yaml:"case"`
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion is checked after the flow. Which fields apply depends on Type:
//
//	trace_contains  Action, Args (subset)
//	trace_order     Actions
//	trace_count     Action, Count
//	final_state     Table, Where, Expect (subset)
//	row_count       Table, Where, Count
type Assertion struct {
	Type    string         `yaml:"type"`
	Action  string         `yaml:"action,omitempty"`
	Args    map[string]any `yaml:"args,omitempty"`
	Table   string         `yaml:"table,omitempty"`
	Where   map[string]any `yaml:"where,omitempty"`
	Expect  map[string]any `yaml:"expect,omitempty"`
	Count   int            `yaml:"count,omitempty"`
	Actions []string       `yaml:"actions,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRowCount      = "row_count"
)

// stateTables are the tables final_state and row_count can read.
var stateTables = []string{"projects", "records"}

// LoadScenario reads a scenario file. Unknown keys are errors, so a typo
// cannot silently drop a section.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	switch {
	case s.Name == "":
		return errors.New("name is required")
	case s.Description == "":
		return errors.New("description is required")
	case len(s.Flow) == 0:
		return errors.New("flow list is required and must be non-empty")
	case len(s.Assertions) == 0:
		return errors.New("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := checkStep(step.Action, step.Args); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := checkStep(step.Invoke, step.Args); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}
	for i := range s.Assertions {
		if err := s.Assertions[i].validate(); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func checkStep(action string, args map[string]any) error {
	if action == "" {
		return errors.New("action is required")
	}
	if _, ok := actions[action]; !ok {
		return fmt.Errorf("unknown action %q", action)
	}
	if args == nil {
		return errors.New("args is required (use {} for none)")
	}
	return nil
}

func (a *Assertion) validate() error {
	switch a.Type {
	case "":
		return errors.New("type is required")
	case AssertTraceContains:
		return a.need(a.Action != "", "action")
	case AssertTraceOrder:
		return a.need(len(a.Actions) > 0, "actions list")
	case AssertTraceCount:
		if err := a.need(a.Action != "", "action"); err != nil {
			return err
		}
		return a.checkCount()
	case AssertFinalState:
		if err := a.checkTable(); err != nil {
			return err
		}
		return a.need(len(a.Expect) > 0, "expect")
	case AssertRowCount:
		if err := a.checkTable(); err != nil {
			return err
		}
		return a.checkCount()
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (a *Assertion) need(ok bool, field string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%s is required for %s", field, a.Type)
}

func (a *Assertion) checkCount() error {
	if a.Count < 0 {
		return fmt.Errorf("count must be non-negative for %s", a.Type)
	}
	return nil
}

func (a *Assertion) checkTable() error {
	if err := a.need(a.Table != "", "table"); err != nil {
		return err
	}
	if !slices.Contains(stateTables, a.Table) {
		return fmt.Errorf("unknown table %q (expected one of %v)", a.Table, stateTables)
	}
	return nil
}
