package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/groupmeal/internal/booking"
	"github.com/roach88/groupmeal/internal/fetch"
	"github.com/roach88/groupmeal/internal/notify"
	"github.com/roach88/groupmeal/internal/pick"
	"github.com/roach88/groupmeal/internal/pipeline"
	"github.com/roach88/groupmeal/internal/reconcile"
	"github.com/roach88/groupmeal/internal/store"
	"github.com/roach88/groupmeal/internal/testutil"
)

// Location is the time zone scenarios run in.
var Location = time.FixedZone("ICT", 7*60*60)

// Epoch is the frozen "now" of every scenario.
var Epoch = time.Date(2025, 10, 19, 12, 0, 0, 0, Location)

// ErrSimulated is returned by channels listed in a scenario's fail_channels.
var ErrSimulated = errors.New("simulated failure")

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Seed the store from the fixture
//  2. Run the pipeline with deterministic random source, tokens and clock
//  3. Check the expect clause
//  4. Evaluate assertions against the stored state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	fx, err := LoadFixture(scenario.Fixture)
	if err != nil {
		return nil, err
	}
	if _, err := fx.Apply(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to seed fixture: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	runner := pipeline.New(st, fetch.New(st, fetch.MaxBatchSize),
		notify.NewDispatcher(logger, channels(st, scenario.FailChannels)...),
		pipeline.Config{
			DefaultDeliveryHour: booking.DefaultDeliveryHour,
			Location:            Location,
			By:                  reconcile.ByAdmin,
		},
		pipeline.WithLogger(logger),
		pipeline.WithSelector(pick.NewSelector(testutil.NewSeededRand(scenario.Seed))),
		pipeline.WithTokenGenerator(testutil.NewSequenceTokens("thread")),
		pipeline.WithClock(testutil.NewFixedClock(Epoch).Now),
	)

	out, runErr := runner.Run(ctx, pipeline.Trigger{OrderID: scenario.Trigger.OrderID})

	result := NewResult()
	result.Outcome = out
	result.Err = runErr
	for _, msg := range checkExpect(scenario.Expect, out, runErr) {
		result.AddError(msg)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, OrderID: scenario.Trigger.OrderID}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func channels(st *store.Store, failing []string) []notify.Channel {
	all := []notify.Channel{
		notify.NewRecordChannel(st),
		notify.NewEmailChannel(st, "noreply@groupmeal.local", Location),
		notify.NewPushChannel(st, "https://app.groupmeal.local"),
		notify.NewChatChannel(notify.NewOutboxNotifier(st)),
	}
	for i, ch := range all {
		if slices.Contains(failing, ch.Name()) {
			all[i] = failingChannel{name: ch.Name()}
		}
	}
	return all
}

type failingChannel struct {
	name string
}

func (c failingChannel) Name() string { return c.name }

func (c failingChannel) Deliver(context.Context, notify.Batch) error {
	return ErrSimulated
}

func checkExpect(expect ExpectClause, out *pipeline.Outcome, runErr error) []string {
	var errs []string
	if runErr != nil {
		if expect.Status != "failed" {
			errs = append(errs, fmt.Sprintf("expect: run failed: %v", runErr))
		} else if expect.Error != "" && !strings.Contains(runErr.Error(), expect.Error) {
			errs = append(errs, fmt.Sprintf("expect.error: %q not in %q", expect.Error, runErr.Error()))
		}
		return errs
	}
	if expect.Status == "failed" {
		return []string{"expect: run succeeded, want failure"}
	}
	if string(out.Status) != expect.Status {
		errs = append(errs, fmt.Sprintf("expect.status: got %s, want %s", out.Status, expect.Status))
	}
	if expect.Resolved != nil && out.Resolved != *expect.Resolved {
		errs = append(errs, fmt.Sprintf("expect.resolved: got %d, want %d", out.Resolved, *expect.Resolved))
	}
	if expect.Unresolved != nil && out.Unresolved != *expect.Unresolved {
		errs = append(errs, fmt.Sprintf("expect.unresolved: got %d, want %d", out.Unresolved, *expect.Unresolved))
	}
	return errs
}
