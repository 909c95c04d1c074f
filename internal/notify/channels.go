package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/reconcile"
	"github.com/roach88/groupmeal/internal/store"
)

// Outbox channel names.
const (
	OutboxEmail = "email"
	OutboxPush  = "push"
	OutboxChat  = "chat"
)

// NotificationWriter appends persisted in-app notifications.
type NotificationWriter interface {
	AppendNotification(ctx context.Context, n domain.Notification) error
}

// Enqueuer queues a message for an external sender.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg store.OutboxMessage) error
}

// OrderLink is the in-app path of an order for participants.
func OrderLink(orderID string) string {
	return "/participant/order/" + orderID
}

// RecordChannel writes one persisted notification per participant.
type RecordChannel struct {
	w NotificationWriter
}

// NewRecordChannel creates a RecordChannel.
func NewRecordChannel(w NotificationWriter) *RecordChannel {
	return &RecordChannel{w: w}
}

func (c *RecordChannel) Name() string { return "record" }

func (c *RecordChannel) Deliver(ctx context.Context, b Batch) error {
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var errs []error
	for _, p := range b.Participants {
		err := c.w.AppendNotification(ctx, domain.Notification{
			IsNew:            true,
			NotificationType: b.Type,
			CreatedAt:        createdAt,
			UserID:           p.ID,
			OrderTitle:       b.Order.Title,
			OrderID:          b.Order.ID,
			RelatedLink:      OrderLink(b.Order.ID),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("participant %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Email is the payload handed to the email sender.
type Email struct {
	Receiver []string `json:"receiver"`
	Subject  string   `json:"subject"`
	Content  string   `json:"content"`
	Sender   string   `json:"sender"`
}

// EmailChannel renders a per-participant digest and queues one email each.
// Participants without an address are skipped.
type EmailChannel struct {
	q        Enqueuer
	sender   string
	location *time.Location
}

// NewEmailChannel creates an EmailChannel. Dates in the digest are rendered
// in loc.
func NewEmailChannel(q Enqueuer, sender string, loc *time.Location) *EmailChannel {
	return &EmailChannel{q: q, sender: sender, location: loc}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, b Batch) error {
	var errs []error
	for _, p := range b.Participants {
		if p.Email == "" {
			continue
		}
		changes := b.Changes.ForMember(p.ID)
		digest := reconcile.NewDigest(b.Order.ID, b.Order.Title, changes, c.location)
		content := fmt.Sprintf("Hi %s,\n\n%s", p.Name(), digest.String())
		if names := restaurantNames(b, changes); len(names) > 0 {
			content += "\nFrom: " + strings.Join(names, ", ") + "\n"
		}
		email := Email{
			Receiver: []string{p.Email},
			Subject:  emailSubject(b, digest),
			Content:  content,
			Sender:   c.sender,
		}
		if err := enqueueJSON(ctx, c.q, OutboxEmail, p.Email, email); err != nil {
			errs = append(errs, fmt.Errorf("participant %s: %w", p.ID, err))
		}
	}
	return errors.Join(errs...)
}

// restaurantNames returns the distinct names of the restaurants serving the
// changed dates, in date order. The listing title wins over the name stored
// on the sub-order.
func restaurantNames(b Batch, changes reconcile.ChangeSet) []string {
	var names []string
	for _, d := range changes.Dates {
		r := b.Plan.OrderDetail[d.Date].Restaurant
		name := b.Restaurants[r.ID]
		if name == "" {
			name = r.RestaurantName
		}
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

func emailSubject(b Batch, d reconcile.Digest) string {
	if b.Type == domain.NotificationAutoPicked {
		return fmt.Sprintf("Your meals for %s were picked for you", b.Order.Title)
	}
	return d.Subject()
}

// Push is the payload handed to the push gateway, one per device.
type Push struct {
	Title           string `json:"title"`
	Content         string `json:"content"`
	URL             string `json:"url"`
	OneSignalUserID string `json:"oneSignalUserId"`
}

// PushChannel queues one push per participant device.
type PushChannel struct {
	q      Enqueuer
	appURL string
}

// NewPushChannel creates a PushChannel. Links point into appURL.
func NewPushChannel(q Enqueuer, appURL string) *PushChannel {
	return &PushChannel{q: q, appURL: strings.TrimRight(appURL, "/")}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, b Batch) error {
	var errs []error
	for _, p := range b.Participants {
		days := len(b.Changes.ForMember(p.ID).Dates)
		for _, device := range p.DeviceIDs {
			push := Push{
				Title:           b.Order.Title,
				Content:         pushContent(b.Type, days),
				URL:             c.appURL + OrderLink(b.Order.ID),
				OneSignalUserID: device,
			}
			if err := enqueueJSON(ctx, c.q, OutboxPush, device, push); err != nil {
				errs = append(errs, fmt.Errorf("participant %s device %s: %w", p.ID, device, err))
			}
		}
	}
	return errors.Join(errs...)
}

func pushContent(notificationType string, days int) string {
	if notificationType == domain.NotificationAutoPicked {
		if days == 1 {
			return "We picked a meal for you for 1 day"
		}
		return fmt.Sprintf("We picked meals for you for %d days", days)
	}
	return "Your order has been updated"
}

// ChatNotifier posts to the chat/audit collaborator.
type ChatNotifier interface {
	Notify(ctx context.Context, notificationType string, payload any) error
}

// ChatChannel posts the flat audit of the change set, threaded by the plan's
// thread id.
type ChatChannel struct {
	n ChatNotifier
}

// NewChatChannel creates a ChatChannel.
func NewChatChannel(n ChatNotifier) *ChatChannel {
	return &ChatChannel{n: n}
}

func (c *ChatChannel) Name() string { return "chat" }

func (c *ChatChannel) Deliver(ctx context.Context, b Batch) error {
	if b.ThreadID == "" {
		return errors.New("missing thread id")
	}
	audit := reconcile.NewChatAudit(b.By, b.ThreadID, b.Order.ID, b.Plan.ID, b.Changes)
	return c.n.Notify(ctx, b.Type, audit)
}

// OutboxNotifier queues chat messages in the store outbox.
type OutboxNotifier struct {
	q Enqueuer
}

// NewOutboxNotifier creates an OutboxNotifier.
func NewOutboxNotifier(q Enqueuer) *OutboxNotifier {
	return &OutboxNotifier{q: q}
}

// ChatMessage is the queued form of a chat notification.
type ChatMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (n *OutboxNotifier) Notify(ctx context.Context, notificationType string, payload any) error {
	return enqueueJSON(ctx, n.q, OutboxChat, notificationType, ChatMessage{Type: notificationType, Payload: payload})
}

func enqueueJSON(ctx context.Context, q Enqueuer, channel, recipient string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}
	return q.Enqueue(ctx, store.OutboxMessage{Channel: channel, Recipient: recipient, Payload: payload})
}
