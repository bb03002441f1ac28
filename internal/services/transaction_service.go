package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gagyebu/internal/core"
	"gagyebu/internal/store"
)

// EventPublisher announces transaction changes to downstream consumers.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, id string) error
	PublishTransactionDeleted(ctx context.Context, id string) error
	Close() error
}

// TransactionService orchestrates transaction writes across the store and
// the event publisher.
type TransactionService struct {
	store     store.Store
	publisher EventPublisher
}

// NewTransactionService wires the service. publisher may be nil.
func NewTransactionService(st store.Store, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     st,
		publisher: publisher,
	}
}

// CreateTransaction validates and saves a transaction, then publishes a
// created event. A publish failure is logged and does not fail the call.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	tx.ID = id

	if err := s.publishCreated(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction created event",
			"id", id, "error", err)
	}

	return tx, nil
}

// DeleteTransaction removes a transaction and publishes a deleted event.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publishDeleted(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction deleted event",
			"id", id, "error", err)
	}

	return nil
}

func (s *TransactionService) ListMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	txs, err := s.ListMonth(ctx, year, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(txs, year, month), nil
}

func (s *TransactionService) publishCreated(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping created event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, id)
}

func (s *TransactionService) publishDeleted(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping deleted event")
		return nil
	}
	return s.publisher.PublishTransactionDeleted(ctx, id)
}

// Close closes both the store and the publisher.
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}

	return nil
}
