package services

import (
	"context"
	"errors"
	"sync"

	"gagyebu/internal/core"
	"gagyebu/internal/storage/memory"
)

var errStoreDown = errors.New("store unavailable")

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.Store

	mu             sync.Mutex
	failList       bool
	failFind       map[string]bool // by definition id
	failCreate     map[string]bool // by source definition id
	failUpdate     map[string]bool // by definition id
	staleFind      bool            // pretend nothing exists yet
	createAttempts int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:      memory.New(),
		failFind:   map[string]bool{},
		failCreate: map[string]bool{},
		failUpdate: map[string]bool{},
	}
}

func (f *faultyStore) ListDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	fail := f.failList
	f.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return f.Store.ListDefinitions(ctx)
}

func (f *faultyStore) FindTransaction(ctx context.Context, source string, date core.Date) (core.Transaction, bool, error) {
	f.mu.Lock()
	fail, stale := f.failFind[source], f.staleFind
	f.mu.Unlock()
	if fail {
		return core.Transaction{}, false, errStoreDown
	}
	if stale {
		return core.Transaction{}, false, nil
	}
	return f.Store.FindTransaction(ctx, source, date)
}

func (f *faultyStore) CreateTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	f.mu.Lock()
	f.createAttempts++
	fail := f.failCreate[tx.SourceDefinitionID]
	f.mu.Unlock()
	if fail {
		return "", errStoreDown
	}
	return f.Store.CreateTransaction(ctx, tx)
}

func (f *faultyStore) UpdateDefinition(ctx context.Context, id string, patch core.DefinitionPatch) error {
	f.mu.Lock()
	fail := f.failUpdate[id]
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.Store.UpdateDefinition(ctx, id, patch)
}

func (f *faultyStore) set(fn func(f *faultyStore)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type event struct {
	kind string
	id   string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []event
	err    error
	closed bool
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event{"created", id})
	return nil
}

func (p *fakePublisher) PublishTransactionDeleted(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event{"deleted", id})
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func definition(name string, day int) core.RecurringDefinition {
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
