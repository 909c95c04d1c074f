package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/reconcile"
	"github.com/roach88/groupmeal/internal/store"
)

const day1 = "1760893200000"

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "notify.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testBatch() Batch {
	return Batch{
		Type:     domain.NotificationAutoPicked,
		Order:    domain.Order{ID: "order-1", Title: "Team lunch"},
		Plan:     domain.Plan{ID: "plan-1", OrderID: "order-1"},
		ThreadID: "thread-1",
		By:       reconcile.ByAdmin,
		Changes: reconcile.ChangeSet{
			OrderType: domain.OrderTypeGroup,
			Dates: []reconcile.DateChanges{{
				Date: day1,
				Members: []reconcile.MemberChange{
					{Kind: reconcile.KindAdd, MemberID: "m1", MemberName: "Nguyễn Anh", NewFoodID: "F1", NewFoodName: "Cơm gà"},
					{Kind: reconcile.KindAdd, MemberID: "m2", MemberName: "Bình", NewFoodID: "F2", NewFoodName: "Bún bò"},
				},
			}},
		},
		Participants: []domain.Member{
			{ID: "m1", FirstName: "Anh", LastName: "Nguyễn", Email: "anh@example.com", DeviceIDs: []string{"dev-1", "dev-2"}},
			{ID: "m2", DisplayName: "Bình"},
		},
		CreatedAt: time.UnixMilli(1760850000000),
	}
}

func TestRecordChannel(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, NewRecordChannel(st).Deliver(ctx, testBatch()))

	got, err := st.Notifications(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsNew)
	assert.Equal(t, domain.NotificationAutoPicked, got[0].NotificationType)
	assert.Equal(t, "Team lunch", got[0].OrderTitle)
	assert.Equal(t, "order-1", got[0].OrderID)
	assert.Equal(t, "/participant/order/order-1", got[0].RelatedLink)
	assert.NotEmpty(t, got[0].ID)

	got, err = st.Notifications(ctx, "m2")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type failingWriter struct{ calls int }

func (w *failingWriter) AppendNotification(context.Context, domain.Notification) error {
	w.calls++
	return errors.New("locked")
}

func TestRecordChannel_KeepsGoingAfterError(t *testing.T) {
	w := &failingWriter{}

	err := NewRecordChannel(w).Deliver(context.Background(), testBatch())

	require.Error(t, err)
	assert.Equal(t, 2, w.calls)
	assert.Contains(t, err.Error(), "participant m1")
	assert.Contains(t, err.Error(), "participant m2")
}

func TestEmailChannel(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, NewEmailChannel(st, "noreply@example.com", time.FixedZone("ICT", 7*3600)).Deliver(ctx, testBatch()))

	msgs, err := st.Outbox(ctx, OutboxEmail)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "m2 has no email address")
	assert.Equal(t, "anh@example.com", msgs[0].Recipient)

	var email Email
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &email))
	assert.Equal(t, []string{"anh@example.com"}, email.Receiver)
	assert.Equal(t, "noreply@example.com", email.Sender)
	assert.Equal(t, "Your meals for Team lunch were picked for you", email.Subject)
	assert.Contains(t, email.Content, "Hi Nguyễn Anh,")
	assert.Contains(t, email.Content, "Mon 20/10/2025")
	assert.Contains(t, email.Content, "- Nguyễn Anh joined: Cơm gà")
	assert.NotContains(t, email.Content, "Bình", "only the participant's own changes")
}

func TestEmailChannel_RestaurantNames(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	b := testBatch()
	b.Plan.OrderDetail = domain.OrderDetail{
		day1: {Restaurant: domain.Restaurant{ID: "rest-1", RestaurantName: "stale name"}},
	}
	b.Restaurants = map[string]string{"rest-1": "Quán Ngon"}
	require.NoError(t, NewEmailChannel(st, "noreply@example.com", time.UTC).Deliver(ctx, b))

	msgs, err := st.Outbox(ctx, OutboxEmail)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	var email Email
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &email))
	assert.Contains(t, email.Content, "From: Quán Ngon\n")
	assert.NotContains(t, email.Content, "stale name")

	b.Restaurants = nil
	assert.Equal(t, []string{"stale name"}, restaurantNames(b, b.Changes))
	assert.Empty(t, restaurantNames(testBatch(), testBatch().Changes), "no plan detail")
}

func TestPushChannel(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, NewPushChannel(st, "https://app.example.com/").Deliver(ctx, testBatch()))

	msgs, err := st.Outbox(ctx, OutboxPush)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "dev-1", msgs[0].Recipient)
	assert.Equal(t, "dev-2", msgs[1].Recipient)

	var push Push
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &push))
	assert.Equal(t, Push{
		Title:           "Team lunch",
		Content:         "We picked a meal for you for 1 day",
		URL:             "https://app.example.com/participant/order/order-1",
		OneSignalUserID: "dev-2",
	}, push)
}

func TestPushContent(t *testing.T) {
	assert.Equal(t, "We picked meals for you for 3 days", pushContent(domain.NotificationAutoPicked, 3))
	assert.Equal(t, "Your order has been updated", pushContent(domain.NotificationSubOrderChanged, 1))
}

func TestChatChannel_Outbox(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, NewChatChannel(NewOutboxNotifier(st)).Deliver(ctx, testBatch()))

	msgs, err := st.Outbox(ctx, OutboxChat)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var msg struct {
		Type    string              `json:"type"`
		Payload reconcile.ChatAudit `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &msg))
	assert.Equal(t, domain.NotificationAutoPicked, msg.Type)
	assert.Equal(t, "thread-1", msg.Payload.ThreadID)
	assert.Equal(t, reconcile.ByAdmin, msg.Payload.By)
	assert.Equal(t, "plan-1", msg.Payload.PlanID)
	assert.Len(t, msg.Payload.Changes, 2)
}

func TestChatChannel_RequiresThread(t *testing.T) {
	b := testBatch()
	b.ThreadID = ""

	err := NewChatChannel(NewOutboxNotifier(openStore(t))).Deliver(context.Background(), b)
	assert.Error(t, err)
}

func TestWebhookNotifier(t *testing.T) {
	var got ChatMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, nil).Notify(context.Background(), "SUB_ORDER_CHANGED", map[string]string{"threadId": "t-1"})
	require.NoError(t, err)
	assert.Equal(t, "SUB_ORDER_CHANGED", got.Type)
	assert.Equal(t, map[string]any{"threadId": "t-1"}, got.Payload)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, srv.Client()).Notify(context.Background(), "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestDispatcher_WithStoreChannels(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	push := &fakeChannel{name: "push", err: errors.New("gateway down")}

	report := NewDispatcher(nil, NewRecordChannel(st), NewEmailChannel(st, "noreply@example.com", nil), push).
		Dispatch(ctx, testBatch())

	require.Len(t, report.Failed(), 1)
	records, err := st.Notifications(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	emails, err := st.Outbox(ctx, OutboxEmail)
	require.NoError(t, err)
	assert.Len(t, emails, 1)
}
