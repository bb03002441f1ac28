package sheets

import (
	"context"

	"gagyebu/internal/core"
)

// TransactionMirror keeps a spreadsheet copy of the ledger. Both operations
// are idempotent so redelivered events are harmless.
type TransactionMirror interface {
	// Append writes tx to the row keyed by its id, adding a row if needed.
	Append(ctx context.Context, tx core.Transaction) error
	// Remove clears the row keyed by id. A missing row is not an error.
	Remove(ctx context.Context, id string) error
}

// Header is the first row of a mirrored sheet.
var Header = []string{"ID", "Date", "Kind", "Category", "Description", "Amount", "Source"}

// Row renders tx in Header column order.
func Row(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.String(),
		string(tx.Kind),
		tx.Category,
		tx.Description,
		tx.Amount.Won,
		tx.SourceDefinitionID,
	}
}
