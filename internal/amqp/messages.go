package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		return true
	}
	return false
}

// ExpenseEvent announces a committed change to an expense. Expense is the
// state after the change and is omitted for deletions.
type ExpenseEvent struct {
	Type       EventType     `json:"type"`
	ExpenseID  int64         `json:"expenseId"`
	UserID     int64         `json:"userId"`
	Expense    *core.Expense `json:"expense,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func NewExpenseEvent(t EventType, e core.Expense, at time.Time) *ExpenseEvent {
	ev := &ExpenseEvent{
		Type:       t,
		ExpenseID:  e.ExpenseID,
		UserID:     e.UserID,
		OccurredAt: at.UTC(),
	}
	if t != EventExpenseDeleted {
		c := e
		ev.Expense = &c
	}
	return ev
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ExpenseID <= 0 {
		return nil, fmt.Errorf("event without expense id")
	}
	return &msg, nil
}
