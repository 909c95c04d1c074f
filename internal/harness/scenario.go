package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one auto-pick run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture is the path of the fixture to seed. Relative paths are
	// resolved against the scenario file's directory.
	Fixture string `yaml:"fixture"`

	// Seed seeds the random food pick.
	Seed uint64 `yaml:"seed,omitempty"`

	// Trigger is the job input.
	Trigger TriggerSpec `yaml:"trigger"`

	// FailChannels names notification channels that should fail, to check
	// that the others still deliver.
	FailChannels []string `yaml:"fail_channels,omitempty"`

	// Expect checks the run outcome.
	Expect ExpectClause `yaml:"expect"`

	// Assertions check the stored state after the run.
	Assertions []Assertion `yaml:"assertions"`
}

// TriggerSpec is the YAML form of the job trigger.
type TriggerSpec struct {
	OrderID string `yaml:"orderId"`
}

// ExpectClause specifies the expected run outcome. Nil counts are not checked.
type ExpectClause struct {
	Status     string `yaml:"status"`
	Resolved   *int   `yaml:"resolved,omitempty"`
	Unresolved *int   `yaml:"unresolved,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

// Assertion validates stored state after the run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Date and Member select a member order (member_order).
	Date   string `yaml:"date,omitempty"`
	Member string `yaml:"member,omitempty"`

	// Channel selects an outbox (outbox_count).
	Channel string `yaml:"channel,omitempty"`

	// User selects persisted notifications (notification_count).
	User string `yaml:"user,omitempty"`

	// Expect holds the expected member order fields (member_order).
	// Subset match: only the listed fields are compared.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of records.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertMemberOrder       = "member_order"
	AssertBookingCount      = "booking_count"
	AssertOutboxCount       = "outbox_count"
	AssertNotificationCount = "notification_count"
	AssertChangeCount       = "change_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The fixture path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
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

	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(filepath.Dir(path), scenario.Fixture)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario of a directory in name order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if _, err := os.Stat(s.Fixture); os.IsNotExist(err) {
		return fmt.Errorf("fixture file not found: %s", s.Fixture)
	}
	switch s.Expect.Status {
	case "skipped", "no_change", "resolved", "failed":
	case "":
		return fmt.Errorf("expect.status is required")
	default:
		return fmt.Errorf("expect.status: unknown status %q", s.Expect.Status)
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
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
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertMemberOrder:
		if a.Date == "" || a.Member == "" {
			return fmt.Errorf("assertions[%d]: date and member are required for member_order", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for member_order", index)
		}
	case AssertOutboxCount:
		if a.Channel == "" {
			return fmt.Errorf("assertions[%d]: channel is required for outbox_count", index)
		}
	case AssertNotificationCount:
		if a.User == "" {
			return fmt.Errorf("assertions[%d]: user is required for notification_count", index)
		}
	case AssertBookingCount, AssertChangeCount:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
