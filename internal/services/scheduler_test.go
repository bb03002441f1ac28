package services

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerRunOnceUsesMonthOfNow(t *testing.T) {
	f := newGeneratorFixture(t, 1)
	f.add(t, definition("Rent", 31))
	sched := NewScheduler(f.gen, time.Hour)

	now := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	result := sched.RunOnce(context.Background(), now)
	if !result.Success || result.GeneratedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	txs, _ := f.store.ListTransactions(context.Background(), 2025, 2)
	if len(txs) != 1 || txs[0].Date.String() != "2025-02-28" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	f := newGeneratorFixture(t, 1)
	f.add(t, definition("Rent", 1))
	sched := NewScheduler(f.gen, 10*time.Millisecond)
	sched.now = func() time.Time { return time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}

	// Repeated ticks never duplicate the month's transaction.
	txs, _ := f.store.ListTransactions(context.Background(), 2025, 3)
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}
