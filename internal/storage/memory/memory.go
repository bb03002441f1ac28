// Package memory is an in-process store used by the memory backend and tests.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"gagyebu/internal/core"
	"gagyebu/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu           sync.Mutex
	definitions  map[string]core.RecurringDefinition
	transactions map[string]core.Transaction
	// generated indexes transactions by source definition and date.
	generated map[generatedKey]string
	hub       *store.Hub
}

type generatedKey struct {
	source string
	date   string
}

func New() *Store {
	s := &Store{
		definitions:  make(map[string]core.RecurringDefinition),
		transactions: make(map[string]core.Transaction),
		generated:    make(map[generatedKey]string),
	}
	s.hub = store.NewHub(s.ListDefinitions)
	return s
}

// NewFromFile seeds the store with definitions read from a JSON array at
// path. A missing file yields an empty store; invalid entries are skipped.
func NewFromFile(ctx context.Context, path string) *Store {
	s := New()
	b, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var seeds []core.RecurringDefinition
	if err := json.Unmarshal(b, &seeds); err != nil {
		slog.WarnContext(ctx, "Ignoring unreadable seed file", "path", path, "error", err)
		return s
	}
	for _, def := range seeds {
		if err := def.Validate(); err != nil {
			slog.WarnContext(ctx, "Skipping invalid seed definition", "name", def.Name, "error", err)
			continue
		}
		if _, err := s.CreateDefinition(ctx, def); err != nil {
			slog.WarnContext(ctx, "Failed to seed definition", "name", def.Name, "error", err)
		}
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defs := make([]core.RecurringDefinition, 0, len(s.definitions))
	for _, d := range s.definitions {
		defs = append(defs, d)
	}
	slices.SortFunc(defs, func(a, b core.RecurringDefinition) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return defs, nil
}

func (s *Store) GetDefinition(_ context.Context, id string) (core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.definitions[id]
	if !ok {
		return core.RecurringDefinition{}, store.Wrap("get definition", fmt.Errorf("definition %s: %w", id, core.ErrNotFound))
	}
	return d, nil
}

func (s *Store) CreateDefinition(ctx context.Context, def core.RecurringDefinition) (string, error) {
	def.ID = uuid.NewString()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.definitions[def.ID] = def
	s.mu.Unlock()

	s.hub.Notify(ctx)
	return def.ID, nil
}

func (s *Store) UpdateDefinition(ctx context.Context, id string, patch core.DefinitionPatch) error {
	s.mu.Lock()
	d, ok := s.definitions[id]
	if !ok {
		s.mu.Unlock()
		return store.Wrap("update definition", fmt.Errorf("definition %s: %w", id, core.ErrNotFound))
	}
	s.definitions[id] = patch.Apply(d)
	s.mu.Unlock()

	s.hub.Notify(ctx)
	return nil
}

func (s *Store) DeleteDefinition(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.definitions[id]; !ok {
		s.mu.Unlock()
		return store.Wrap("delete definition", fmt.Errorf("definition %s: %w", id, core.ErrNotFound))
	}
	delete(s.definitions, id)
	s.mu.Unlock()

	s.hub.Notify(ctx)
	return nil
}

func (s *Store) WatchDefinitions(ctx context.Context) (<-chan []core.RecurringDefinition, error) {
	return s.hub.Subscribe(ctx)
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.SourceDefinitionID != "" {
		key := generatedKey{source: t.SourceDefinitionID, date: t.Date.String()}
		if _, exists := s.generated[key]; exists {
			return "", store.Wrap("create transaction",
				fmt.Errorf("transaction for %s on %s: %w", t.SourceDefinitionID, t.Date, core.ErrDuplicate))
		}
		s.generated[key] = t.ID
	}
	s.transactions[t.ID] = t
	return t.ID, nil
}

func (s *Store) FindTransaction(_ context.Context, sourceDefinitionID string, date core.Date) (core.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.generated[generatedKey{source: sourceDefinitionID, date: date.String()}]
	if !ok {
		return core.Transaction{}, false, nil
	}
	return s.transactions[id], true, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, store.Wrap("get transaction", fmt.Errorf("transaction %s: %w", id, core.ErrNotFound))
	}
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return store.Wrap("delete transaction", fmt.Errorf("transaction %s: %w", id, core.ErrNotFound))
	}
	delete(s.transactions, id)
	if t.SourceDefinitionID != "" {
		delete(s.generated, generatedKey{source: t.SourceDefinitionID, date: t.Date.String()})
	}
	return nil
}

func (s *Store) ListTransactions(_ context.Context, year, month int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]core.Transaction, 0)
	for _, t := range s.transactions {
		if t.Date.Year() == year && t.Date.Month() == month {
			txs = append(txs, t)
		}
	}
	slices.SortFunc(txs, func(a, b core.Transaction) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return txs, nil
}
