// Package booking turns an order detail into the per-date booking records
// kept in the transaction ledger.
package booking

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/groupmeal/internal/domain"
)

// DefaultDeliveryHour applies when neither the order nor the caller sets one.
const DefaultDeliveryHour = "6:30"

// Input is what Normalize needs from the order and plan.
type Input struct {
	Detail  domain.OrderDetail
	OrderID string
	PlanID  string
	// DeliveryHour is "H:MM", optionally followed by "-H:MM" for a window.
	// Only the start is used.
	DeliveryHour string
	// DefaultDeliveryHour replaces an empty DeliveryHour. Empty means
	// DefaultDeliveryHour of this package.
	DefaultDeliveryHour string
	// Location is used for the record times. Nil means UTC.
	Location *time.Location
}

// Normalize builds one record per date that has at least one fulfilled member,
// in chronological order, and marks the last one as the plan's terminal
// transaction. The detail is not modified.
func Normalize(in Input) ([]domain.BookingRecord, error) {
	hour := cmp.Or(in.DeliveryHour, in.DefaultDeliveryHour, DefaultDeliveryHour)
	offset, err := ParseDeliveryHour(hour)
	if err != nil {
		return nil, err
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	var records []domain.BookingRecord
	for _, date := range in.Detail.Dates() {
		start, err := domain.ParseDateKey(date)
		if err != nil {
			return nil, err
		}
		sub := in.Detail[date]

		participants, info := fulfilled(sub)
		if len(participants) == 0 {
			continue
		}

		start = start.In(loc)
		end := start.AddDate(0, 0, 1)
		records = append(records, domain.BookingRecord{
			Date:                date,
			TransactionID:       sub.TransactionID,
			OrderID:             in.OrderID,
			PlanID:              in.PlanID,
			BookingStart:        start,
			BookingEnd:          end,
			BookingDisplayStart: start.Add(offset),
			BookingDisplayEnd:   end,
			ParticipantIDs:      participants,
			BookingInfo:         info,
		})
	}

	MarkLastTransaction(records)
	return records, nil
}

// fulfilled returns the joined members of a sub-order whose food is on that
// day's menu, sorted by id, with their booking lines.
func fulfilled(sub domain.SubOrder) ([]string, []domain.BookingInfo) {
	var ids []string
	var info []domain.BookingInfo
	for _, id := range slices.Sorted(maps.Keys(sub.MemberOrders)) {
		mo := sub.MemberOrders[id]
		if mo.Status != domain.MemberStatusJoined || mo.FoodID == "" {
			continue
		}
		entry, ok := sub.Restaurant.FoodList[mo.FoodID]
		if !ok {
			continue
		}
		ids = append(ids, id)
		info = append(info, domain.BookingInfo{
			FoodID:        mo.FoodID,
			FoodName:      entry.FoodName,
			FoodPrice:     entry.FoodPrice,
			ParticipantID: id,
			Requirement:   mo.Requirement,
		})
	}
	return ids, info
}

// MarkLastTransaction flags the chronologically last record and clears the
// flag on every other one.
func MarkLastTransaction(records []domain.BookingRecord) {
	if len(records) == 0 {
		return
	}
	last := 0
	for i := range records {
		records[i].IsLastTxOfPlan = false
		if domain.CompareDateKeys(records[i].Date, records[last].Date) > 0 {
			last = i
		}
	}
	records[last].IsLastTxOfPlan = true
}

// ParseDeliveryHour parses "H:MM" (or "H:MM-H:MM") into an offset from
// midnight.
func ParseDeliveryHour(s string) (time.Duration, error) {
	start, _, _ := strings.Cut(strings.TrimSpace(s), "-")
	hh, mm, ok := strings.Cut(strings.TrimSpace(start), ":")
	if !ok {
		return 0, fmt.Errorf("delivery hour %q: want H:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("delivery hour %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("delivery hour %q: bad minute", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
