package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gagyebu/internal/amqp"
	"gagyebu/internal/sheets"
	"gagyebu/internal/store"
)

// SyncWorker applies transaction events to the spreadsheet mirror. The event
// only carries an id; the row contents always come from the store.
type SyncWorker struct {
	transactions store.TransactionStore
	mirror       sheets.TransactionMirror
}

func NewSyncWorker(transactions store.TransactionStore, mirror sheets.TransactionMirror) *SyncWorker {
	return &SyncWorker{
		transactions: transactions,
		mirror:       mirror,
	}
}

// HandleEvent processes one event. A returned error asks the broker to
// redeliver.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"type", event.Type,
		"id", event.ID)

	switch event.Type {
	case amqp.EventCreated:
		return w.syncTransaction(ctx, event.ID)
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, event.ID); err != nil {
			return fmt.Errorf("remove mirrored transaction: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", amqp.ErrInvalidEvent, event.Type)
	}
}

func (w *SyncWorker) syncTransaction(ctx context.Context, id string) error {
	tx, err := w.transactions.GetTransaction(ctx, id)
	if store.IsNotFound(err) {
		// Deleted before the event was consumed; the delete event cleans up.
		slog.WarnContext(ctx, "Transaction no longer exists, skipping mirror", "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from store: %w", err)
	}

	if err := w.mirror.Append(ctx, tx); err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored transaction",
		"id", id,
		"date", tx.Date.String(),
		"amount", tx.Amount.String())
	return nil
}

// Reconcile mirrors every transaction of a month. It runs at startup to
// recover from events missed while the worker was down.
func (w *SyncWorker) Reconcile(ctx context.Context, year, month int) error {
	txs, err := w.transactions.ListTransactions(ctx, year, month)
	if err != nil {
		return fmt.Errorf("list transactions for reconcile: %w", err)
	}

	var errs []error
	synced := 0
	for _, tx := range txs {
		if err := w.mirror.Append(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during reconcile",
				"id", tx.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", tx.ID, err))
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		"year", year,
		"month", month,
		"total", len(txs),
		"synced", synced,
		"errors", len(errs))

	return errors.Join(errs...)
}
