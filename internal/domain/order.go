package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes group orders (members pick their own food) from
// normal orders (the booker orders line items directly).
type OrderType string

const (
	OrderTypeNormal OrderType = "normal"
	OrderTypeGroup  OrderType = "group"
)

// OrderState is the lifecycle state of an order.
type OrderState string

const (
	OrderStateDraft      OrderState = "draft"
	OrderStateBooking    OrderState = "booking"
	OrderStatePicking    OrderState = "picking"
	OrderStateInProgress OrderState = "inProgress"
	OrderStatePendingPay OrderState = "pendingPayment"
	OrderStateCompleted  OrderState = "completed"
	OrderStateCanceled   OrderState = "canceled"
)

// Order is the top-level booking entity.
type Order struct {
	ID               string
	Title            string
	Type             OrderType
	State            OrderState
	DeliveryHour     string
	PackagePerMember decimal.Decimal
	BookerID         string
	PlanID           string
	StartDate        time.Time
	EndDate          time.Time
	Deadline         time.Time
}

// IsPickingGroup reports whether the order is a group order still in the
// picking phase, the only state auto-pick acts on.
func (o Order) IsPickingGroup() bool {
	return o.Type == OrderTypeGroup && o.State == OrderStatePicking
}

type orderMetadata struct {
	OrderType        OrderType       `json:"orderType"`
	OrderState       OrderState      `json:"orderState"`
	DeliveryHour     string          `json:"deliveryHour"`
	PackagePerMember decimal.Decimal `json:"packagePerMember"`
	BookerID         string          `json:"bookerId"`
	Plans            []string        `json:"plans"`
	StartDate        int64           `json:"startDate"`
	EndDate          int64           `json:"endDate"`
	DeadlineDate     int64           `json:"deadlineDate"`
}

// DecodeOrder converts an order listing into an Order.
func DecodeOrder(e Entity) (Order, error) {
	var md orderMetadata
	if err := unmarshalBag(e.Attributes.Metadata, "metadata", &md); err != nil {
		return Order{}, withEntity(err, e.Key())
	}
	switch md.OrderType {
	case OrderTypeNormal, OrderTypeGroup:
	case "":
		md.OrderType = OrderTypeGroup
	default:
		return Order{}, &ValidationError{EntityID: e.Key(), Field: "metadata.orderType", Message: "unknown order type " + string(md.OrderType)}
	}
	if md.OrderState == "" {
		return Order{}, &ValidationError{EntityID: e.Key(), Field: "metadata.orderState", Message: "missing"}
	}
	if len(md.Plans) == 0 || md.Plans[0] == "" {
		return Order{}, &ValidationError{EntityID: e.Key(), Field: "metadata.plans", Message: "order has no plan"}
	}

	return Order{
		ID:               e.Key(),
		Title:            e.Attributes.Title,
		Type:             md.OrderType,
		State:            md.OrderState,
		DeliveryHour:     md.DeliveryHour,
		PackagePerMember: md.PackagePerMember,
		BookerID:         md.BookerID,
		PlanID:           md.Plans[0],
		StartDate:        fromMillis(md.StartDate),
		EndDate:          fromMillis(md.EndDate),
		Deadline:         fromMillis(md.DeadlineDate),
	}, nil
}

// Plan holds the mutable order detail of an order.
type Plan struct {
	ID          string
	OrderID     string
	ThreadID    string
	OrderDetail OrderDetail
}

// TransactionIDs returns the transaction id per date key. Dates whose
// sub-order has not been materialized yet are absent.
func (p Plan) TransactionIDs() map[string]string {
	ids := make(map[string]string, len(p.OrderDetail))
	for date, sub := range p.OrderDetail {
		if sub.TransactionID != "" {
			ids[date] = sub.TransactionID
		}
	}
	return ids
}

type planMetadata struct {
	OrderID     string      `json:"orderId"`
	ThreadID    string      `json:"threadId"`
	OrderDetail OrderDetail `json:"orderDetail"`
}

// DecodePlan converts a plan listing into a Plan.
func DecodePlan(e Entity) (Plan, error) {
	var md planMetadata
	if err := unmarshalBag(e.Attributes.Metadata, "metadata", &md); err != nil {
		return Plan{}, withEntity(err, e.Key())
	}
	if md.OrderDetail == nil {
		md.OrderDetail = OrderDetail{}
	}
	if err := md.OrderDetail.Validate(); err != nil {
		return Plan{}, withEntity(err, e.Key())
	}
	return Plan{
		ID:          e.Key(),
		OrderID:     md.OrderID,
		ThreadID:    md.ThreadID,
		OrderDetail: md.OrderDetail,
	}, nil
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
