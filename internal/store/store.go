// Package store defines the persistence ports used by the services.
package store

import (
	"context"
	"errors"
	"fmt"

	"gagyebu/internal/core"
)

type (
	DefinitionStore interface {
		ListDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
		GetDefinition(ctx context.Context, id string) (core.RecurringDefinition, error)
		// CreateDefinition stores def and returns its new id. Any id on def is ignored.
		CreateDefinition(ctx context.Context, def core.RecurringDefinition) (string, error)
		UpdateDefinition(ctx context.Context, id string, patch core.DefinitionPatch) error
		DeleteDefinition(ctx context.Context, id string) error
		// WatchDefinitions delivers the full current set of definitions now
		// and after every change until ctx is done. Only the newest snapshot
		// is kept for a slow reader.
		WatchDefinitions(ctx context.Context) (<-chan []core.RecurringDefinition, error)
	}

	TransactionStore interface {
		// CreateTransaction fails with core.ErrDuplicate when a transaction with
		// the same source definition and date already exists.
		CreateTransaction(ctx context.Context, tx core.Transaction) (string, error)
		FindTransaction(ctx context.Context, sourceDefinitionID string, date core.Date) (core.Transaction, bool, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error)
	}

	Store interface {
		DefinitionStore
		TransactionStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// Error is a failure reported by a store adapter.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with the failing operation. Nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var serr *Error
	if errors.As(err, &serr) {
		return err
	}
	return &Error{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

func IsDuplicate(err error) bool {
	return errors.Is(err, core.ErrDuplicate)
}
