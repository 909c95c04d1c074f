package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingRecord is the transaction-ready booking of one delivery date.
type BookingRecord struct {
	Date                string        `json:"date"`
	TransactionID       string        `json:"transactionId,omitempty"`
	OrderID             string        `json:"orderId"`
	PlanID              string        `json:"planId"`
	BookingStart        time.Time     `json:"bookingStart"`
	BookingEnd          time.Time     `json:"bookingEnd"`
	BookingDisplayStart time.Time     `json:"bookingDisplayStart"`
	BookingDisplayEnd   time.Time     `json:"bookingDisplayEnd"`
	ParticipantIDs      []string      `json:"participantIds"`
	BookingInfo         []BookingInfo `json:"bookingInfo"`
	IsLastTxOfPlan      bool          `json:"isLastTxOfPlan"`
}

// BookingInfo is the per-participant line of a booking.
type BookingInfo struct {
	FoodID        string          `json:"foodId"`
	FoodName      string          `json:"foodName"`
	FoodPrice     decimal.Decimal `json:"foodPrice"`
	ParticipantID string          `json:"participantId"`
	Requirement   string          `json:"requirement,omitempty"`
}

// Notification is a persisted in-app notification for one user.
type Notification struct {
	ID               string    `json:"id"`
	IsNew            bool      `json:"isNew"`
	NotificationType string    `json:"notificationType"`
	CreatedAt        time.Time `json:"createdAt"`
	UserID           string    `json:"userId"`
	OrderTitle       string    `json:"orderTitle"`
	OrderID          string    `json:"orderId"`
	RelatedLink      string    `json:"relatedLink"`
}

// Notification types written by the pipeline.
const (
	NotificationAutoPicked      = "AUTO_PICK_FOOD"
	NotificationSubOrderChanged = "SUB_ORDER_CHANGED"
)
