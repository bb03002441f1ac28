package memory

import (
	"context"
	"testing"

	"gagyebu/internal/core"
)

func TestMirrorAppendAndRemove(t *testing.T) {
	m := New()
	ctx := context.Background()
	tx := core.Transaction{
		ID: "a", Date: core.NewDate(2025, 2, 3), Kind: core.Expense,
		Category: "Food", Description: "Groceries", Amount: core.Money{Won: 32000},
	}

	if err := m.Append(ctx, tx); err != nil {
		t.Fatal(err)
	}
	tx.Description = "Groceries and snacks"
	if err := m.Append(ctx, tx); err != nil {
		t.Fatal(err)
	}
	rows := m.Rows()
	if len(rows) != 1 || rows[0][4] != "Groceries and snacks" {
		t.Fatalf("rows = %v", rows)
	}

	tx.ID = "b"
	if err := m.Append(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	rows = m.Rows()
	if len(rows) != 1 || rows[0][0] != "b" {
		t.Fatalf("rows = %v", rows)
	}

	if err := m.Append(ctx, core.Transaction{}); err == nil {
		t.Fatal("expected error for missing id")
	}
}
