package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"gagyebu/internal/core"
	ports "gagyebu/internal/sheets"
)

// Mirror keeps mirrored rows in process. The sync worker falls back to it
// when no spreadsheet is configured.
type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string][]any
}

var _ ports.TransactionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string][]any{}}
}

func (m *Mirror) Append(_ context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return errors.New("transaction without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tx.ID]; !ok {
		m.order = append(m.order, tx.ID)
	}
	m.rows[tx.ID] = ports.Row(tx)
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return nil
}

// Rows returns the mirrored rows in first-append order.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, slices.Clone(m.rows[id]))
	}
	return out
}
