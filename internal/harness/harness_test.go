package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/groupmeal/internal/pipeline"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_WorkedExampleOutcome(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/auto_pick_worked_example.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	require.NotNil(t, result.Outcome)

	out := result.Outcome
	assert.Equal(t, pipeline.StatusResolved, out.Status)
	assert.Equal(t, "thread-1", out.ThreadID)
	assert.Equal(t, 3, out.Changes.Len())
	require.Len(t, out.Bookings, 2)
	assert.Equal(t, []string{"M", "N", "P"}, out.Bookings[0].ParticipantIDs)
	assert.True(t, out.Bookings[1].IsLastTxOfPlan)
	assert.True(t, out.Report.OK())
}

func TestRun_ReportsMismatches(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/auto_pick_worked_example.yaml")
	require.NoError(t, err)

	wrong := 99
	s.Expect.Resolved = &wrong
	s.Assertions = []Assertion{
		{Type: AssertMemberOrder, Date: "1760893200000", Member: "N", Expect: map[string]any{"foodId": "F1"}},
		{Type: AssertOutboxCount, Channel: "email", Count: 5},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expect.resolved: got 3, want 99")
	assert.Contains(t, result.Errors[1], "foodId=F1")
	assert.Contains(t, result.Errors[2], "5 email outbox")
}

func TestRun_UnexpectedSkip(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/unknown_order_skipped.yaml")
	require.NoError(t, err)
	s.Expect.Status = "resolved"

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expect.status: got skipped, want resolved")
}

func TestAssertionError(t *testing.T) {
	err := &AssertionError{Type: AssertBookingCount, Expected: "2 bookings of plan-1", Actual: "1"}
	assert.Equal(t, "Assertion failed: booking_count\n  Expected: 2 bookings of plan-1\n  Actual: 1", err.Error())
}
