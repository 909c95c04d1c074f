package reconcile

import (
	"bufio"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/groupmeal/internal/domain"
)

// Digest is the booker-facing email projection: one section per date with
// one sentence per change.
type Digest struct {
	OrderID    string
	OrderTitle string
	Days       []DigestDay
}

// DigestDay is one dated section of a Digest.
type DigestDay struct {
	Date  string
	Label string
	Lines []string
}

// NewDigest projects cs for the given order. Date labels are rendered in loc;
// a nil loc means UTC.
func NewDigest(orderID, orderTitle string, cs ChangeSet, loc *time.Location) Digest {
	if loc == nil {
		loc = time.UTC
	}
	d := Digest{OrderID: orderID, OrderTitle: orderTitle}
	for _, dc := range cs.Dates {
		day := DigestDay{Date: dc.Date, Label: dateLabel(dc.Date, loc)}
		for _, m := range dc.Members {
			day.Lines = append(day.Lines, memberSentence(m))
		}
		for _, it := range dc.Items {
			day.Lines = append(day.Lines, itemSentence(it))
		}
		d.Days = append(d.Days, day)
	}
	return d
}

// Subject is the email subject line.
func (d Digest) Subject() string {
	return fmt.Sprintf("Order %s has been updated", cmp.Or(d.OrderTitle, d.OrderID))
}

// Render writes the digest as plain text.
func (d Digest) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Order: %s (%s)\n", d.OrderTitle, d.OrderID)
	for _, day := range d.Days {
		fmt.Fprintf(bw, "\n%s\n", day.Label)
		for _, line := range day.Lines {
			fmt.Fprintf(bw, "- %s\n", line)
		}
	}
	return bw.Flush()
}

// String renders the digest, ignoring write errors.
func (d Digest) String() string {
	var sb strings.Builder
	_ = d.Render(&sb)
	return sb.String()
}

func memberSentence(m MemberChange) string {
	who := cmp.Or(m.MemberName, m.MemberID)
	switch m.Kind {
	case KindAdd:
		return fmt.Sprintf("%s joined: %s", who, m.NewFoodName)
	case KindRemove:
		return fmt.Sprintf("%s left: %s", who, m.OldFoodName)
	default:
		return fmt.Sprintf("%s changed %s -> %s", who, m.OldFoodName, m.NewFoodName)
	}
}

func itemSentence(it ItemChange) string {
	switch it.Kind {
	case KindAdd:
		return fmt.Sprintf("Added %d x %s", it.NewQuantity, it.Name)
	case KindRemove:
		return fmt.Sprintf("Removed %d x %s", it.OldQuantity, it.Name)
	default:
		return fmt.Sprintf("%s: %d -> %d", it.Name, it.OldQuantity, it.NewQuantity)
	}
}

func dateLabel(key string, loc *time.Location) string {
	t, err := domain.ParseDateKey(key)
	if err != nil {
		return key
	}
	return t.In(loc).Format("Mon 02/01/2006")
}

// Attribution names who made the change in the chat audit.
type Attribution string

const (
	ByAdmin  Attribution = "admin"
	ByBooker Attribution = "booker"
)

// ParseAttribution validates an attribution string.
func ParseAttribution(s string) (Attribution, error) {
	switch a := Attribution(s); a {
	case ByAdmin, ByBooker:
		return a, nil
	}
	return "", fmt.Errorf("unknown attribution %q: want admin or booker", s)
}

// ChatAudit is the flat chat projection of a ChangeSet. ThreadID correlates
// every message of one plan.
type ChatAudit struct {
	By       Attribution  `json:"by"`
	ThreadID string       `json:"threadId"`
	OrderID  string       `json:"orderId"`
	PlanID   string       `json:"planId"`
	Changes  []ChatChange `json:"changes"`
}

// ChatChange is one entry of a ChatAudit.
type ChatChange struct {
	Date        string `json:"date"`
	Kind        Kind   `json:"kind"`
	MemberID    string `json:"memberId,omitempty"`
	MemberName  string `json:"memberName,omitempty"`
	ItemID      string `json:"itemId,omitempty"`
	OldFood     string `json:"oldFood,omitempty"`
	NewFood     string `json:"newFood,omitempty"`
	OldQuantity int    `json:"oldQuantity,omitempty"`
	NewQuantity int    `json:"newQuantity,omitempty"`
}

// NewChatAudit flattens cs into chat entries in date order.
func NewChatAudit(by Attribution, threadID, orderID, planID string, cs ChangeSet) ChatAudit {
	a := ChatAudit{By: by, ThreadID: threadID, OrderID: orderID, PlanID: planID, Changes: []ChatChange{}}
	for _, dc := range cs.Dates {
		for _, m := range dc.Members {
			a.Changes = append(a.Changes, ChatChange{
				Date:       dc.Date,
				Kind:       m.Kind,
				MemberID:   m.MemberID,
				MemberName: m.MemberName,
				OldFood:    m.OldFoodName,
				NewFood:    m.NewFoodName,
			})
		}
		for _, it := range dc.Items {
			c := ChatChange{
				Date:        dc.Date,
				Kind:        it.Kind,
				ItemID:      it.ItemID,
				OldQuantity: it.OldQuantity,
				NewQuantity: it.NewQuantity,
			}
			if it.OldQuantity > 0 {
				c.OldFood = it.Name
			}
			if it.NewQuantity > 0 {
				c.NewFood = it.Name
			}
			a.Changes = append(a.Changes, c)
		}
	}
	return a
}

// Render writes the audit as indented JSON followed by a newline.
func (a ChatAudit) Render(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(a)
}
