package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSteps bounds the mutations a scenario may emit when it does not
// set max_steps.
const DefaultMaxSteps = 1000

// Expected error kinds.
const (
	ErrorNone          = "none"
	ErrorReducerFault  = "reducer_fault"
	ErrorSourceFailed  = "source_failed"
	ErrorQuotaExceeded = "quota_exceeded"
	ErrorOther         = "failed"
	ErrorCancelled     = "cancelled"
)

// Scenario describes one loop run over the counter domain: a seed, a
// scripted mutation source paced by the committed states, and the expected
// outcome.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Initial seeds the loop.
	Initial Counters `yaml:"initial"`

	// Mutations are emitted one per observed state, in order, once no rule
	// matches.
	Mutations []Mutation `yaml:"mutations,omitempty"`

	// Rules derive mutations from the observed state. The first matching
	// rule wins over the script.
	Rules []Rule `yaml:"rules,omitempty"`

	// TakeUntilCommits cuts the pipeline off after this many derived
	// commits. Zero disables the cutoff.
	TakeUntilCommits int `yaml:"take_until_commits,omitempty"`

	// StartAfter delays wiring by a Go duration such as "10ms".
	StartAfter string `yaml:"start_after,omitempty"`

	// MaxSteps bounds emitted mutations; exceeding it fails the source.
	MaxSteps int `yaml:"max_steps,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// Rule emits a mutation whenever its condition holds for an observed state.
type Rule struct {
	When Condition `yaml:"when"`
	Emit Mutation  `yaml:"emit"`
}

// Condition compares one counter against bounds. Every bound set must hold.
type Condition struct {
	Key string `yaml:"key"`
	Gte *int64 `yaml:"gte,omitempty"`
	Lte *int64 `yaml:"lte,omitempty"`
	Eq  *int64 `yaml:"eq,omitempty"`
}

// Matches reports whether s satisfies the condition. A missing counter
// reads as zero.
func (c Condition) Matches(s Counters) bool {
	v := s[c.Key]
	if c.Gte != nil && v < *c.Gte {
		return false
	}
	if c.Lte != nil && v > *c.Lte {
		return false
	}
	if c.Eq != nil && v != *c.Eq {
		return false
	}
	return true
}

// Expectation is what a scenario run must produce. Unset fields are not
// checked.
type Expectation struct {
	// States is the full interpreted sequence, the seed first.
	States []Counters `yaml:"states,omitempty"`

	// Final is the last interpreted state.
	Final Counters `yaml:"final,omitempty"`

	// Commits counts derived commits, the seed excluded.
	Commits *int `yaml:"commits,omitempty"`

	// Error is the expected termination kind; empty means "none".
	Error string `yaml:"error,omitempty"`
}

// Delay returns the parsed start_after duration, zero when unset.
func (s *Scenario) Delay() time.Duration {
	if s.StartAfter == "" {
		return 0
	}
	d, _ := time.ParseDuration(s.StartAfter)
	return d
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario validates data against the scenario schema, decodes it and
// checks the rules the schema cannot express.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if s.Initial == nil {
		s.Initial = Counters{}
	}
	if s.MaxSteps == 0 {
		s.MaxSteps = DefaultMaxSteps
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	var errs []error

	for i, m := range s.Mutations {
		if err := validateMutation(m); err != nil {
			errs = append(errs, fmt.Errorf("mutations[%d]: %w", i, err))
		}
	}

	for i, r := range s.Rules {
		if r.When.Gte == nil && r.When.Lte == nil && r.When.Eq == nil {
			errs = append(errs, fmt.Errorf("rules[%d]: condition on %q needs gte, lte or eq", i, r.When.Key))
		}
		if err := validateMutation(r.Emit); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d].emit: %w", i, err))
		}
	}

	if s.StartAfter != "" {
		d, err := time.ParseDuration(s.StartAfter)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("start_after: %w", err))
		case d < 0:
			errs = append(errs, fmt.Errorf("start_after must not be negative, got %s", s.StartAfter))
		}
	}

	e := s.Expect
	if e.States == nil && e.Final == nil && e.Commits == nil && e.Error == "" {
		errs = append(errs, errors.New("expect must set at least one of states, final, commits or error"))
	}

	return errors.Join(errs...)
}

func validateMutation(m Mutation) error {
	switch m.Op {
	case OpAdd, OpSet, OpDiv:
		if m.Key == "" {
			return fmt.Errorf("op %q requires a key", m.Op)
		}
	case OpReset:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	return nil
}
