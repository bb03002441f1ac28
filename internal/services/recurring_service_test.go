package services

import (
	"context"
	"errors"
	"testing"

	"gagyebu/internal/core"
)

func TestRecurringServiceAddDefinition(t *testing.T) {
	st := newFaultyStore()
	svc := NewRecurringService(st)
	ctx := context.Background()

	def := definition("Rent", 31)
	def.IsActive = false
	def.LastGeneratedMonth = "2024-12"

	added, err := svc.AddDefinition(ctx, def)
	if err != nil {
		t.Fatal(err)
	}
	if added.ID == "" || !added.IsActive || added.LastGeneratedMonth != "" || added.CreatedAt.IsZero() {
		t.Fatalf("unexpected definition: %+v", added)
	}

	stored, err := svc.Definition(ctx, added.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.IsActive || stored.LastGeneratedMonth != "" {
		t.Fatalf("stored definition: %+v", stored)
	}
}

func TestRecurringServiceRejectsInvalidInput(t *testing.T) {
	st := newFaultyStore()
	svc := NewRecurringService(st)
	ctx := context.Background()

	bad := definition("", 40)
	if _, err := svc.AddDefinition(ctx, bad); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if defs, _ := st.ListDefinitions(ctx); len(defs) != 0 {
		t.Fatal("invalid definition reached the store")
	}

	added, err := svc.AddDefinition(ctx, definition("Rent", 1))
	if err != nil {
		t.Fatal(err)
	}
	bad = definition("Rent", 1)
	end := core.NewDate(2024, 1, 1)
	bad.EndDate = &end
	if _, err := svc.UpdateDefinition(ctx, added.ID, bad); !errors.Is(err, core.ErrEndBeforeStart) {
		t.Fatalf("expected ErrEndBeforeStart, got %v", err)
	}
}

func TestRecurringServiceUpdateKeepsBookkeeping(t *testing.T) {
	st := newFaultyStore()
	svc := NewRecurringService(st)
	ctx := context.Background()

	added, err := svc.AddDefinition(ctx, definition("Rent", 31))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateDefinition(ctx, added.ID, core.MarkGenerated("2025-02")); err != nil {
		t.Fatal(err)
	}

	edit := definition("Rent and fees", 5)
	edit.Amount = core.Money{Won: 650000}
	edit.IsActive = false
	updated, err := svc.UpdateDefinition(ctx, added.ID, edit)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Rent and fees" || updated.DayOfMonth != 5 || updated.Amount.Won != 650000 {
		t.Fatalf("edits not applied: %+v", updated)
	}
	if !updated.IsActive || updated.LastGeneratedMonth != "2025-02" {
		t.Fatalf("bookkeeping changed: %+v", updated)
	}

	if _, err := svc.UpdateDefinition(ctx, "missing", edit); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecurringServiceToggleAndDelete(t *testing.T) {
	st := newFaultyStore()
	svc := NewRecurringService(st)
	txs := NewTransactionService(st, nil)
	gen := NewGenerationCoordinator(st, txs, 1)
	ctx := context.Background()

	added, err := svc.AddDefinition(ctx, definition("Rent", 1))
	if err != nil {
		t.Fatal(err)
	}

	toggled, err := svc.ToggleDefinition(ctx, added.ID)
	if err != nil || toggled.IsActive {
		t.Fatalf("toggle off: %+v, %v", toggled, err)
	}
	if r := gen.GenerateForMonth(ctx, 2025, 2); r.GeneratedCount != 0 {
		t.Fatalf("inactive definition generated: %+v", r)
	}
	toggled, err = svc.ToggleDefinition(ctx, added.ID)
	if err != nil || !toggled.IsActive {
		t.Fatalf("toggle on: %+v, %v", toggled, err)
	}
	if r := gen.GenerateForMonth(ctx, 2025, 2); r.GeneratedCount != 1 {
		t.Fatalf("active definition not generated: %+v", r)
	}

	if err := svc.DeleteDefinition(ctx, added.ID); err != nil {
		t.Fatal(err)
	}
	// Generated transactions outlive their definition.
	month, err := txs.ListMonth(ctx, 2025, 2)
	if err != nil || len(month) != 1 {
		t.Fatalf("orphaned transaction missing: %v, %v", month, err)
	}
	if err := svc.DeleteDefinition(ctx, added.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecurringServiceProjectionAndGroups(t *testing.T) {
	st := newFaultyStore()
	svc := NewRecurringService(st)
	ctx := context.Background()

	salary := definition("Salary", 25)
	salary.Kind = core.Income
	salary.Category = "Salary"
	salary.Amount = core.Money{Won: 3000000}
	for _, def := range []core.RecurringDefinition{definition("Rent", 1), salary} {
		if _, err := svc.AddDefinition(ctx, def); err != nil {
			t.Fatal(err)
		}
	}

	p, err := svc.Projection(ctx, 2025, 2)
	if err != nil {
		t.Fatal(err)
	}
	if p.Count != 2 || p.Balance.Won != 2500000 {
		t.Fatalf("projection = %+v", p)
	}

	groups, err := svc.ByCategory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Category != "Housing" || groups[1].Category != "Salary" {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestRecurringServiceWatch(t *testing.T) {
	st := newFaultyStore()
	svc := NewRecurringService(st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	<-ch
	if _, err := svc.AddDefinition(ctx, definition("Rent", 1)); err != nil {
		t.Fatal(err)
	}
	if snap := <-ch; len(snap) != 1 {
		t.Fatalf("snapshot after add: %d definitions", len(snap))
	}
}
