package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// EventKind classifies a financial event. Loan, repay, and cashout events
// are parameterized by an entity; on the wire they appear as
// "<entity>-loan", "<entity>-repay", and "<entity>-cashout".
type EventKind string

const (
	KindInvestment EventKind = "investment"
	KindRevenue    EventKind = "revenue"
	KindLoan       EventKind = "loan"
	KindRepay      EventKind = "repay"
	KindCashout    EventKind = "cashout"
)

var (
	ErrInvalidEventType = errors.New("model: invalid event type")
)

// entityTypeRegex matches the entity-parameterized wire types:
// {normalizedEntity}-{loan|repay|cashout}. The entity part is greedy so
// labels containing hyphens resolve correctly.
var entityTypeRegex = regexp.MustCompile(`^(.+)-(loan|repay|cashout)$`)

// ParseEventType splits a wire type string into its kind and, for
// entity-parameterized kinds, the normalized entity label.
func ParseEventType(s string) (EventKind, string, error) {
	switch s {
	case string(KindInvestment):
		return KindInvestment, "", nil
	case string(KindRevenue):
		return KindRevenue, "", nil
	}

	matches := entityTypeRegex.FindStringSubmatch(s)
	if matches == nil {
		return "", "", fmt.Errorf("%w: %q (expected investment, revenue, or <entity>-{loan|repay|cashout})",
			ErrInvalidEventType, s)
	}
	return EventKind(matches[2]), NormalizeLabel(matches[1]), nil
}

// Event is an immutable record of one dated financial action.
// For investments and revenue, Amount is a dollar value; for loans,
// repayments, and cashouts it is a token count. Amount must be positive —
// the event log filters out anything else before the engine sees it.
type Event struct {
	Day    int
	Kind   EventKind
	Amount decimal.Decimal
	Label  string
}

// Entity returns the normalized label the event acts on.
func (e Event) Entity() string {
	return NormalizeLabel(e.Label)
}

// TypeString renders the wire type: plain for investment/revenue,
// entity-prefixed for the rest.
func (e Event) TypeString() string {
	switch e.Kind {
	case KindInvestment, KindRevenue:
		return string(e.Kind)
	default:
		return e.Entity() + "-" + string(e.Kind)
	}
}

// eventWire is the JSON shape shared with scenario files:
// {day, type, amount, label}.
type eventWire struct {
	Day    int             `json:"day"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		Day:    e.Day,
		Type:   e.TypeString(),
		Amount: e.Amount,
		Label:  e.Label,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	kind, entity, err := ParseEventType(w.Type)
	if err != nil {
		return err
	}

	label := w.Label
	if label == "" {
		label = entity
	}

	*e = Event{Day: w.Day, Kind: kind, Amount: w.Amount, Label: label}
	return nil
}

// EventLog is a day-ordered, filtered sequence of events. Construction
// drops non-positive amounts and stable-sorts by day, so the engine never
// depends on caller ordering; ties keep entry order.
type EventLog struct {
	events []Event
}

// NewEventLog builds a log from raw events.
func NewEventLog(events []Event) EventLog {
	kept := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Amount.IsPositive() {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Day < kept[j].Day
	})
	return EventLog{events: kept}
}

// All returns the ordered events. The returned slice is a copy.
func (l EventLog) All() []Event {
	return append([]Event(nil), l.events...)
}

// Len returns the number of admitted events.
func (l EventLog) Len() int {
	return len(l.events)
}

// UpTo returns the prefix of events with day ≤ targetDay.
func (l EventLog) UpTo(targetDay int) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Day > targetDay {
			break
		}
		out = append(out, e)
	}
	return out
}

// ForDay returns the events dated exactly day.
func (l EventLog) ForDay(day int) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out
}

// MaxDay returns the highest event day, or -1 for an empty log.
func (l EventLog) MaxDay() int {
	if len(l.events) == 0 {
		return -1
	}
	return l.events[len(l.events)-1].Day
}

// Append returns a new log containing the extra event in day order.
func (l EventLog) Append(e Event) EventLog {
	return NewEventLog(append(l.All(), e))
}
