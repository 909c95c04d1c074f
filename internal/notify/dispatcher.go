// Package notify fans the result of a run out to independent delivery
// channels.
//
// Each channel runs in its own goroutine. The dispatcher waits for all of
// them and reports every outcome, but a failing or panicking channel never
// fails the dispatch and never stops the other channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/reconcile"
)

// Batch is everything a channel needs to notify the participants of one run.
type Batch struct {
	// Type is the notification type, e.g. domain.NotificationAutoPicked.
	Type         string
	Order        domain.Order
	Plan         domain.Plan
	ThreadID     string
	By           reconcile.Attribution
	Changes      reconcile.ChangeSet
	Participants []domain.Member
	// Restaurants maps restaurant ids to their listing titles.
	Restaurants map[string]string
	CreatedAt   time.Time
}

// Channel delivers a batch to one downstream collaborator.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, b Batch) error
}

// Outcome is the result of one channel.
type Outcome struct {
	Channel  string
	Err      error
	Duration time.Duration
}

// Report collects the outcomes of a dispatch in channel order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether every channel succeeded.
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// Dispatcher runs channels concurrently.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over channels. A nil logger uses
// slog.Default().
func NewDispatcher(logger *slog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{channels: channels, logger: logger}
}

// Dispatch delivers b on every channel and waits for all of them.
func (d *Dispatcher) Dispatch(ctx context.Context, b Batch) Report {
	report := Report{Outcomes: make([]Outcome, len(d.channels))}

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.Outcomes[i] = d.run(ctx, ch, b)
		}()
	}
	wg.Wait()

	for _, o := range report.Outcomes {
		if o.Err != nil {
			d.logger.Error("notification channel failed",
				"channel", o.Channel,
				"order_id", b.Order.ID,
				"error", o.Err,
			)
			continue
		}
		d.logger.Debug("notification channel done",
			"channel", o.Channel,
			"order_id", b.Order.ID,
			"duration", o.Duration,
		)
	}
	return report
}

func (d *Dispatcher) run(ctx context.Context, ch Channel, b Batch) (out Outcome) {
	out.Channel = ch.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("channel %s panicked: %v", out.Channel, r)
		}
		out.Duration = time.Since(start)
	}()
	out.Err = ch.Deliver(ctx, b)
	return out
}
