package worker

import (
	"context"
	"errors"
	"testing"

	"gagyebu/internal/amqp"
	"gagyebu/internal/core"
	sheetsmem "gagyebu/internal/sheets/memory"
	"gagyebu/internal/storage/memory"
)

type failingMirror struct{ err error }

func (f failingMirror) Append(context.Context, core.Transaction) error { return f.err }
func (f failingMirror) Remove(context.Context, string) error           { return f.err }

func seed(t *testing.T, st *memory.Store, desc string) string {
	t.Helper()
	id, err := st.CreateTransaction(context.Background(), core.Transaction{
		Date: core.NewDate(2025, 2, 3), Kind: core.Expense, Category: "Food",
		Description: desc, Amount: core.Money{Won: 12000},
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestHandleEvent(t *testing.T) {
	st := memory.New()
	mirror := sheetsmem.New()
	w := NewSyncWorker(st, mirror)
	ctx := context.Background()

	id := seed(t, st, "Groceries")
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, id)); err != nil {
		t.Fatal(err)
	}
	// Redelivery keeps a single row.
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, id)); err != nil {
		t.Fatal(err)
	}
	rows := mirror.Rows()
	if len(rows) != 1 || rows[0][0] != id || rows[0][4] != "Groceries" {
		t.Fatalf("rows = %v", rows)
	}

	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, id)); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows()) != 0 {
		t.Fatalf("row not removed: %v", mirror.Rows())
	}
}

func TestHandleEventMissingTransactionIsSkipped(t *testing.T) {
	w := NewSyncWorker(memory.New(), sheetsmem.New())
	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, "gone")); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestHandleEventMirrorFailureIsReturned(t *testing.T) {
	st := memory.New()
	down := errors.New("sheets unavailable")
	w := NewSyncWorker(st, failingMirror{err: down})
	id := seed(t, st, "Groceries")

	for _, typ := range []amqp.EventType{amqp.EventCreated, amqp.EventDeleted} {
		if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(typ, id)); !errors.Is(err, down) {
			t.Fatalf("%s: expected mirror error, got %v", typ, err)
		}
	}
}

func TestHandleEventUnknownType(t *testing.T) {
	w := NewSyncWorker(memory.New(), sheetsmem.New())
	err := w.HandleEvent(context.Background(), &amqp.TransactionEvent{Type: "transaction.moved", ID: "x"})
	if !errors.Is(err, amqp.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestReconcile(t *testing.T) {
	st := memory.New()
	mirror := sheetsmem.New()
	w := NewSyncWorker(st, mirror)

	seed(t, st, "Groceries")
	seed(t, st, "Lunch")
	if err := w.Reconcile(context.Background(), 2025, 2); err != nil {
		t.Fatal(err)
	}
	if len(mirror.Rows()) != 2 {
		t.Fatalf("rows = %v", mirror.Rows())
	}

	down := errors.New("sheets unavailable")
	w = NewSyncWorker(st, failingMirror{err: down})
	if err := w.Reconcile(context.Background(), 2025, 2); !errors.Is(err, down) {
		t.Fatalf("expected joined mirror error, got %v", err)
	}
}
