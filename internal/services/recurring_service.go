package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gagyebu/internal/core"
	"gagyebu/internal/store"
)

// RecurringService manages recurring definitions. Input is validated before
// any store call.
type RecurringService struct {
	store store.Store
}

func NewRecurringService(st store.Store) *RecurringService {
	return &RecurringService{store: st}
}

// AddDefinition stores a new active definition with no generation history.
func (s *RecurringService) AddDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	def.IsActive = true
	def.LastGeneratedMonth = ""
	def.CreatedAt = time.Now().UTC()

	id, err := s.store.CreateDefinition(ctx, def)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("create definition: %w", err)
	}
	def.ID = id

	slog.InfoContext(ctx, "Recurring definition added",
		"id", id,
		"name", def.Name,
		"kind", def.Kind,
		"amount", core.FormatWon(def.Amount),
		"day_of_month", def.DayOfMonth)

	return def, nil
}

// UpdateDefinition replaces the editable fields of a definition. Activity
// and generation history are kept.
func (s *RecurringService) UpdateDefinition(ctx context.Context, id string, edited core.RecurringDefinition) (core.RecurringDefinition, error) {
	if err := edited.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	if err := s.store.UpdateDefinition(ctx, id, core.EditPatch(edited)); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("update definition: %w", err)
	}
	return s.Definition(ctx, id)
}

// ToggleDefinition flips whether a definition generates transactions.
func (s *RecurringService) ToggleDefinition(ctx context.Context, id string) (core.RecurringDefinition, error) {
	def, err := s.Definition(ctx, id)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	if err := s.store.UpdateDefinition(ctx, id, core.SetActive(!def.IsActive)); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("toggle definition: %w", err)
	}
	def.IsActive = !def.IsActive

	slog.InfoContext(ctx, "Recurring definition toggled", "id", id, "active", def.IsActive)
	return def, nil
}

// DeleteDefinition removes a definition. Transactions it generated stay.
func (s *RecurringService) DeleteDefinition(ctx context.Context, id string) error {
	if err := s.store.DeleteDefinition(ctx, id); err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	slog.InfoContext(ctx, "Recurring definition deleted", "id", id)
	return nil
}

func (s *RecurringService) Definition(ctx context.Context, id string) (core.RecurringDefinition, error) {
	def, err := s.store.GetDefinition(ctx, id)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("get definition: %w", err)
	}
	return def, nil
}

func (s *RecurringService) Definitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	defs, err := s.store.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	return defs, nil
}

func (s *RecurringService) ByCategory(ctx context.Context) ([]core.CategoryGroup, error) {
	defs, err := s.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	return core.GroupByCategory(defs), nil
}

func (s *RecurringService) Projection(ctx context.Context, year, month int) (core.Projection, error) {
	defs, err := s.Definitions(ctx)
	if err != nil {
		return core.Projection{}, err
	}
	return core.MonthlyProjection(defs, year, month), nil
}

// Watch streams full snapshots of the definitions until ctx is done.
func (s *RecurringService) Watch(ctx context.Context) (<-chan []core.RecurringDefinition, error) {
	ch, err := s.store.WatchDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch definitions: %w", err)
	}
	return ch, nil
}
