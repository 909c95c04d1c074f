package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/groupmeal/internal/domain"
	"github.com/roach88/groupmeal/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext gives assertions access to the state after the run.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	OrderID string
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertMemberOrder:
			err = assertMemberOrder(actx, a)
		case AssertBookingCount:
			err = assertBookingCount(actx, a)
		case AssertOutboxCount:
			err = assertOutboxCount(actx, a)
		case AssertNotificationCount:
			err = assertNotificationCount(actx, a)
		case AssertChangeCount:
			err = assertChangeCount(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func loadPlan(actx *AssertionContext) (domain.Plan, error) {
	ent, err := actx.Store.Show(actx.Ctx, actx.OrderID)
	if err != nil {
		return domain.Plan{}, err
	}
	order, err := domain.DecodeOrder(ent)
	if err != nil {
		return domain.Plan{}, err
	}
	ent, err = actx.Store.Show(actx.Ctx, order.PlanID)
	if err != nil {
		return domain.Plan{}, err
	}
	return domain.DecodePlan(ent)
}

// assertMemberOrder compares the listed fields of a stored member order.
func assertMemberOrder(actx *AssertionContext, a Assertion) error {
	plan, err := loadPlan(actx)
	if err != nil {
		return err
	}
	mo, ok := plan.OrderDetail[a.Date].MemberOrders[a.Member]
	if !ok {
		return &AssertionError{
			Type:     AssertMemberOrder,
			Expected: fmt.Sprintf("member %s on %s", a.Member, a.Date),
			Actual:   "no member order",
		}
	}

	raw, err := json.Marshal(mo)
	if err != nil {
		return err
	}
	actual := map[string]any{}
	if err := json.Unmarshal(raw, &actual); err != nil {
		return err
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		want, got := fmt.Sprint(a.Expect[k]), fmt.Sprint(actual[k])
		if actual[k] == nil {
			got = ""
		}
		if want != got {
			return &AssertionError{
				Type:     AssertMemberOrder,
				Expected: fmt.Sprintf("%s/%s %s=%s", a.Date, a.Member, k, want),
				Actual:   fmt.Sprintf("%s=%s", k, got),
			}
		}
	}
	return nil
}

func assertBookingCount(actx *AssertionContext, a Assertion) error {
	plan, err := loadPlan(actx)
	if err != nil {
		return err
	}
	records, err := actx.Store.Bookings(actx.Ctx, plan.ID)
	if err != nil {
		return err
	}
	return countError(AssertBookingCount, "bookings of "+plan.ID, a.Count, len(records))
}

func assertOutboxCount(actx *AssertionContext, a Assertion) error {
	msgs, err := actx.Store.Outbox(actx.Ctx, a.Channel)
	if err != nil {
		return err
	}
	return countError(AssertOutboxCount, a.Channel+" outbox", a.Count, len(msgs))
}

func assertNotificationCount(actx *AssertionContext, a Assertion) error {
	records, err := actx.Store.Notifications(actx.Ctx, a.User)
	if err != nil {
		return err
	}
	return countError(AssertNotificationCount, "notifications of "+a.User, a.Count, len(records))
}

func assertChangeCount(result *Result, a Assertion) error {
	n := 0
	if result.Outcome != nil {
		n = result.Outcome.Changes.Len()
	}
	return countError(AssertChangeCount, "change records", a.Count, n)
}

func countError(typ, what string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%d %s", want, what),
		Actual:   fmt.Sprintf("%d", got),
	}
}
