package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
)

type fakeJournal struct {
	rows      []*amqp.ExpenseEvent
	headers   int
	appendErr error
	headerErr error
}

func (f *fakeJournal) EnsureJournalHeader(context.Context) error {
	f.headers++
	return f.headerErr
}

func (f *fakeJournal) AppendJournal(_ context.Context, ev *amqp.ExpenseEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, ev)
	return nil
}

var occurred = time.Date(2026, 2, 7, 10, 30, 0, 0, time.UTC)

func event(t amqp.EventType, id int64) *amqp.ExpenseEvent {
	return amqp.NewExpenseEvent(t, core.Expense{
		ExpenseID:   id,
		UserID:      1,
		Amount:      core.MustMoney("12.50"),
		ExpenseDate: core.NewDate(2026, 2, 5),
		Description: "Coffee",
		ExpenseType: core.Personal,
	}, occurred)
}

func TestJournalWorker_StartupCheck(t *testing.T) {
	j := &fakeJournal{}
	w := NewJournalWorker(j, nil)
	require.NoError(t, w.StartupCheck(context.Background()))
	assert.Equal(t, 1, j.headers)

	j.headerErr = errors.New("quota exceeded")
	err := w.StartupCheck(context.Background())
	assert.ErrorContains(t, err, "prepare journal: quota exceeded")
}

func TestJournalWorker_HandleEvent(t *testing.T) {
	j := &fakeJournal{}
	w := NewJournalWorker(j, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventExpenseCreated, 13)))
	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventExpenseUpdated, 13)))
	require.NoError(t, w.HandleEvent(ctx, event(amqp.EventExpenseDeleted, 13)))

	require.Len(t, j.rows, 3)
	assert.Equal(t, amqp.EventExpenseDeleted, j.rows[2].Type)
	assert.Nil(t, j.rows[2].Expense)
	assert.Equal(t, Stats{Appended: 3}, w.Stats())
}

func TestJournalWorker_SkipsRedelivery(t *testing.T) {
	j := &fakeJournal{}
	w := NewJournalWorker(j, nil)
	ctx := context.Background()

	ev := event(amqp.EventExpenseCreated, 13)
	require.NoError(t, w.HandleEvent(ctx, ev))
	require.NoError(t, w.HandleEvent(ctx, ev))

	later := event(amqp.EventExpenseCreated, 13)
	later.OccurredAt = occurred.Add(time.Second)
	require.NoError(t, w.HandleEvent(ctx, later))

	assert.Len(t, j.rows, 2)
	assert.Equal(t, Stats{Appended: 2, Duplicates: 1}, w.Stats())
}

func TestJournalWorker_FailureIsRetried(t *testing.T) {
	j := &fakeJournal{appendErr: errors.New("503 backend error")}
	w := NewJournalWorker(j, nil)
	ctx := context.Background()
	ev := event(amqp.EventExpenseCreated, 13)

	err := w.HandleEvent(ctx, ev)
	assert.ErrorContains(t, err, "append expense.created for expense 13")

	j.appendErr = nil
	require.NoError(t, w.HandleEvent(ctx, ev), "a failed event is not remembered as seen")
	assert.Len(t, j.rows, 1)
	assert.Equal(t, Stats{Appended: 1, Failed: 1}, w.Stats())
}
