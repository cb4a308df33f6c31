package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backends a scenario can run against.
const (
	BackendLocal  = "local"
	BackendSQLite = "sqlite"
)

// Scenario is a scripted sequence of bus operations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Partitions is the bus partition count.
	Partitions int `yaml:"partitions"`

	// Backend selects the journal implementation. Empty means local.
	Backend string `yaml:"backend,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one bus operation. Exactly one of the operation fields is set.
type Step struct {
	Publish   *PublishStep   `yaml:"publish,omitempty"`
	Subscribe *SubscribeStep `yaml:"subscribe,omitempty"`
	Commit    *CommitStep    `yaml:"commit,omitempty"`
	Reset     *ResetStep     `yaml:"reset,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// PublishStep publishes one payload.
type PublishStep struct {
	Topic   string `yaml:"topic"`
	Key     string `yaml:"key"`
	Payload any    `yaml:"payload"`
}

// SubscribeStep reads a group's unread records.
type SubscribeStep struct {
	Group      string `yaml:"group"`
	Topic      string `yaml:"topic"`
	Partitions []int  `yaml:"partitions,omitempty"`
}

// CommitStep commits what the group's last subscribe step delivered.
type CommitStep struct {
	Group string `yaml:"group"`
}

// ResetStep rewinds a group.
type ResetStep struct {
	Group      string `yaml:"group"`
	Topic      string `yaml:"topic"`
	Partitions []int  `yaml:"partitions,omitempty"`
}

// Expect checks the outcome of a step. Unset fields are not checked.
type Expect struct {
	// Partition and Offset apply to publish steps.
	Partition *int   `yaml:"partition,omitempty"`
	Offset    *int64 `yaml:"offset,omitempty"`

	// Count applies to subscribe steps.
	Count *int `yaml:"count,omitempty"`

	// Offsets lists the delivered offsets of a subscribe step, in order.
	Offsets []int64 `yaml:"offsets,omitempty"`
}

// Op names the operation of the step.
func (s Step) Op() string {
	switch {
	case s.Publish != nil:
		return OpPublish
	case s.Subscribe != nil:
		return OpSubscribe
	case s.Commit != nil:
		return OpCommit
	case s.Reset != nil:
		return OpReset
	}
	return ""
}

func (s Step) opCount() int {
	n := 0
	for _, set := range []bool{s.Publish != nil, s.Subscribe != nil, s.Commit != nil, s.Reset != nil} {
		if set {
			n++
		}
	}
	return n
}

// Assertion validates the state after the last step.
type Assertion struct {
	// Type is "committed" or "trace_count".
	Type string `yaml:"type"`

	Group     string `yaml:"group,omitempty"`
	Topic     string `yaml:"topic,omitempty"`
	Partition int    `yaml:"partition,omitempty"`
	Offset    int64  `yaml:"offset,omitempty"`

	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCommitted  = "committed"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if s.Partitions <= 0 {
		return fmt.Errorf("partitions must be > 0")
	}
	switch s.Backend {
	case "", BackendLocal, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.opCount() != 1 {
			return fmt.Errorf("steps[%d]: exactly one of publish, subscribe, commit, reset is required", i)
		}
		switch {
		case step.Publish != nil:
			if step.Publish.Topic == "" {
				return fmt.Errorf("steps[%d]: publish.topic is required", i)
			}
			if step.Publish.Payload == nil {
				return fmt.Errorf("steps[%d]: publish.payload is required", i)
			}
		case step.Subscribe != nil:
			if step.Subscribe.Group == "" || step.Subscribe.Topic == "" {
				return fmt.Errorf("steps[%d]: subscribe.group and subscribe.topic are required", i)
			}
		case step.Commit != nil:
			if step.Commit.Group == "" {
				return fmt.Errorf("steps[%d]: commit.group is required", i)
			}
		case step.Reset != nil:
			if step.Reset.Group == "" || step.Reset.Topic == "" {
				return fmt.Errorf("steps[%d]: reset.group and reset.topic are required", i)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCommitted:
		if a.Group == "" || a.Topic == "" {
			return fmt.Errorf("assertions[%d]: group and topic are required for committed", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
