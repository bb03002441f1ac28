// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/store"
)

// Run exercises s. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("DefinitionLifecycle", func(t *testing.T) { testDefinitionLifecycle(t, newStore(t)) })
	t.Run("TransactionLifecycle", func(t *testing.T) { testTransactionLifecycle(t, newStore(t)) })
	t.Run("GeneratedUniqueness", func(t *testing.T) { testGeneratedUniqueness(t, newStore(t)) })
	t.Run("WatchDefinitions", func(t *testing.T) { testWatchDefinitions(t, newStore(t)) })
}

func Definition(name string, day int) core.RecurringDefinition {
	return core.RecurringDefinition{
		Name:       name,
		Amount:     core.Money{Won: 500000},
		Category:   "Housing",
		Kind:       core.Expense,
		DayOfMonth: day,
		StartDate:  core.NewDate(2025, 1, 1),
		IsActive:   true,
	}
}

func testDefinitionLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	id, err := s.CreateDefinition(ctx, Definition("Rent", 31))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.GetDefinition(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Rent" || got.DayOfMonth != 31 || !got.IsActive || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected definition: %+v", got)
	}

	end := core.NewDate(2025, 12, 31)
	name := "Rent and fees"
	if err := s.UpdateDefinition(ctx, id, core.DefinitionPatch{Name: &name, EndDate: &end}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.UpdateDefinition(ctx, id, core.MarkGenerated("2025-02")); err != nil {
		t.Fatalf("mark generated: %v", err)
	}

	got, err = s.GetDefinition(ctx, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Name != name || got.EndDate == nil || !got.EndDate.Equal(end.Time) || got.LastGeneratedMonth != "2025-02" {
		t.Fatalf("patches not applied: %+v", got)
	}
	if got.Amount.Won != 500000 {
		t.Fatalf("untouched field changed: %+v", got)
	}

	if _, err := s.CreateDefinition(ctx, Definition("Phone", 25)); err != nil {
		t.Fatalf("create second: %v", err)
	}
	defs, err := s.ListDefinitions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	if err := s.DeleteDefinition(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDefinition(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteDefinition(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := s.UpdateDefinition(ctx, "missing", core.MarkGenerated("2025-02")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	var serr *store.Error
	if err := s.DeleteDefinition(ctx, "missing"); !errors.As(err, &serr) {
		t.Fatalf("expected *store.Error, got %T", err)
	}
}

func testTransactionLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	manual := core.Transaction{
		Date:        core.NewDate(2025, 2, 3),
		Category:    "Food",
		Description: "Groceries",
		Amount:      core.Money{Won: 32000},
		Kind:        core.Expense,
	}
	id, err := s.CreateTransaction(ctx, manual)
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}
	// Manual entries have no uniqueness constraint.
	if _, err := s.CreateTransaction(ctx, manual); err != nil {
		t.Fatalf("create second manual: %v", err)
	}

	generated := core.Transaction{
		Date:               core.NewDate(2025, 2, 28),
		Category:           "Housing",
		Description:        "Rent (fixed)",
		Amount:             core.Money{Won: 500000},
		Kind:               core.Expense,
		SourceDefinitionID: "def-1",
	}
	genID, err := s.CreateTransaction(ctx, generated)
	if err != nil {
		t.Fatalf("create generated: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, core.Transaction{
		Date: core.NewDate(2025, 3, 1), Category: "Food", Description: "March", Amount: core.Money{Won: 1}, Kind: core.Expense,
	}); err != nil {
		t.Fatalf("create march: %v", err)
	}

	got, err := s.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != "Groceries" || got.Amount.Won != 32000 || got.SourceDefinitionID != "" {
		t.Fatalf("unexpected transaction: %+v", got)
	}

	found, ok, err := s.FindTransaction(ctx, "def-1", core.NewDate(2025, 2, 28))
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if found.ID != genID {
		t.Fatalf("found %s, want %s", found.ID, genID)
	}
	if _, ok, err := s.FindTransaction(ctx, "def-1", core.NewDate(2025, 3, 31)); err != nil || ok {
		t.Fatalf("find other month: ok=%v err=%v", ok, err)
	}

	feb, err := s.ListTransactions(ctx, 2025, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feb) != 3 {
		t.Fatalf("expected 3 February transactions, got %d", len(feb))
	}
	if !feb[0].Date.Before(feb[2].Date.Time) {
		t.Fatalf("transactions not ordered by date: %v, %v", feb[0].Date, feb[2].Date)
	}

	if err := s.DeleteTransaction(ctx, genID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.FindTransaction(ctx, "def-1", core.NewDate(2025, 2, 28)); ok {
		t.Fatal("deleted transaction still found")
	}
	if err := s.DeleteTransaction(ctx, genID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, genID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testGeneratedUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	tx := core.Transaction{
		Date:               core.NewDate(2025, 2, 28),
		Category:           "Housing",
		Description:        "Rent (fixed)",
		Amount:             core.Money{Won: 500000},
		Kind:               core.Expense,
		SourceDefinitionID: "def-1",
	}
	if _, err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.CreateTransaction(ctx, tx)
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if !store.IsDuplicate(err) {
		t.Fatalf("IsDuplicate(%v) = false", err)
	}

	tx.SourceDefinitionID = "def-2"
	if _, err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("other definition same date: %v", err)
	}
}

func testWatchDefinitions(t *testing.T, s store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.WatchDefinitions(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if snap := next(t, ch); len(snap) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d", len(snap))
	}

	id, err := s.CreateDefinition(ctx, Definition("Rent", 1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	snap := next(t, ch)
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("unexpected snapshot after create: %+v", snap)
	}

	if err := s.UpdateDefinition(ctx, id, core.SetActive(false)); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap = next(t, ch)
	if len(snap) != 1 || snap[0].IsActive {
		t.Fatalf("unexpected snapshot after toggle: %+v", snap)
	}

	cancel()
	for range ch {
	}
}

func next(t *testing.T, ch <-chan []core.RecurringDefinition) []core.RecurringDefinition {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}
