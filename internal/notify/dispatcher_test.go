package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	name   string
	err    error
	panics bool
	delay  time.Duration
	calls  atomic.Int32
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Deliver(ctx context.Context, _ Batch) error {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.panics {
		panic("boom")
	}
	return c.err
}

func TestDispatch_AllSucceed(t *testing.T) {
	a, b := &fakeChannel{name: "a"}, &fakeChannel{name: "b"}

	report := NewDispatcher(nil, a, b).Dispatch(context.Background(), Batch{})

	assert.True(t, report.OK())
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "a", report.Outcomes[0].Channel)
	assert.Equal(t, "b", report.Outcomes[1].Channel)
	assert.EqualValues(t, 1, a.calls.Load())
	assert.EqualValues(t, 1, b.calls.Load())
}

func TestDispatch_FailureIsIsolated(t *testing.T) {
	record := &fakeChannel{name: "record", delay: 20 * time.Millisecond}
	email := &fakeChannel{name: "email", delay: 20 * time.Millisecond}
	push := &fakeChannel{name: "push", err: errors.New("gateway down")}

	report := NewDispatcher(nil, record, email, push).Dispatch(context.Background(), Batch{})

	assert.False(t, report.OK())
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "push", failed[0].Channel)
	assert.EqualError(t, failed[0].Err, "gateway down")
	assert.EqualValues(t, 1, record.calls.Load())
	assert.EqualValues(t, 1, email.calls.Load())
	assert.NoError(t, report.Outcomes[0].Err)
	assert.NoError(t, report.Outcomes[1].Err)
}

func TestDispatch_PanicBecomesError(t *testing.T) {
	ok := &fakeChannel{name: "record"}
	bad := &fakeChannel{name: "email", panics: true}

	var report Report
	assert.NotPanics(t, func() {
		report = NewDispatcher(nil, ok, bad).Dispatch(context.Background(), Batch{})
	})

	require.Len(t, report.Failed(), 1)
	assert.Contains(t, report.Failed()[0].Err.Error(), "panicked: boom")
	assert.NoError(t, report.Outcomes[0].Err)
}

func TestDispatch_NoChannels(t *testing.T) {
	report := NewDispatcher(nil).Dispatch(context.Background(), Batch{})
	assert.True(t, report.OK())
	assert.Empty(t, report.Outcomes)
}
