package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/groupmeal/internal/reconcile"
)

// Snapshot captures the deterministic parts of a run for golden comparison.
type Snapshot struct {
	Scenario   string                  `json:"scenario"`
	Status     string                  `json:"status"`
	Error      string                  `json:"error,omitempty"`
	Resolved   int                     `json:"resolved"`
	Unresolved int                     `json:"unresolved"`
	ThreadID   string                  `json:"threadId,omitempty"`
	Changes    []reconcile.DateChanges `json:"changes"`
	Bookings   []BookingSnapshot       `json:"bookings"`
	Channels   []ChannelSnapshot       `json:"channels"`
}

// BookingSnapshot is the stable part of a booking record.
type BookingSnapshot struct {
	Date           string   `json:"date"`
	TransactionID  string   `json:"transactionId"`
	ParticipantIDs []string `json:"participantIds"`
	IsLastTxOfPlan bool     `json:"isLastTxOfPlan"`
}

// ChannelSnapshot is the outcome of one notification channel.
type ChannelSnapshot struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario: name,
		Changes:  []reconcile.DateChanges{},
		Bookings: []BookingSnapshot{},
		Channels: []ChannelSnapshot{},
	}
	if result.Err != nil {
		s.Status = "failed"
		s.Error = result.Err.Error()
		return s
	}
	out := result.Outcome
	s.Status = string(out.Status)
	s.Resolved = out.Resolved
	s.Unresolved = out.Unresolved
	s.ThreadID = out.ThreadID
	if out.Changes.Dates != nil {
		s.Changes = out.Changes.Dates
	}
	for _, b := range out.Bookings {
		s.Bookings = append(s.Bookings, BookingSnapshot{
			Date:           b.Date,
			TransactionID:  b.TransactionID,
			ParticipantIDs: b.ParticipantIDs,
			IsLastTxOfPlan: b.IsLastTxOfPlan,
		})
	}
	for _, o := range out.Report.Outcomes {
		cs := ChannelSnapshot{Name: o.Channel, OK: o.Err == nil}
		if o.Err != nil {
			cs.Error = o.Err.Error()
		}
		s.Channels = append(s.Channels, cs)
	}
	return s
}

// MarshalSnapshot renders a snapshot as indented JSON with a trailing newline.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(NewSnapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
