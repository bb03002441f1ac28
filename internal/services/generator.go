package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gagyebu/internal/core"
	"gagyebu/internal/store"
)

// DefaultGenerationConcurrency bounds how many definitions are processed at once.
const DefaultGenerationConcurrency = 4

// GenerationResult reports one batch. A partially failed batch still keeps
// the transactions it did create.
type GenerationResult struct {
	Success        bool     `json:"success"`
	GeneratedCount int      `json:"generatedCount"`
	Errors         []string `json:"errors"`
}

// GenerationCoordinator materializes recurring definitions as transactions
// for a month, at most once per definition and month.
type GenerationCoordinator struct {
	store        store.Store
	transactions *TransactionService
	concurrency  int
}

// NewGenerationCoordinator wires the coordinator. A concurrency below 1
// falls back to DefaultGenerationConcurrency; 1 processes definitions
// strictly in order.
func NewGenerationCoordinator(st store.Store, transactions *TransactionService, concurrency int) *GenerationCoordinator {
	if concurrency < 1 {
		concurrency = DefaultGenerationConcurrency
	}
	return &GenerationCoordinator{
		store:        st,
		transactions: transactions,
		concurrency:  concurrency,
	}
}

// GenerateForMonth creates the missing transactions for every definition
// active in the month. Failures are collected per definition and never stop
// the rest of the batch. The batch ignores cancellation of ctx once started.
func (g *GenerationCoordinator) GenerateForMonth(ctx context.Context, year, month int) GenerationResult {
	ctx = context.WithoutCancel(ctx)
	key := core.MonthKey(year, month)

	defs, err := g.store.ListDefinitions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load recurring definitions", "month", key, "error", err)
		return GenerationResult{Errors: []string{"recurring definitions could not be loaded"}}
	}

	var candidates []core.RecurringDefinition
	for _, def := range defs {
		if core.IsActiveInMonth(def, year, month) {
			candidates = append(candidates, def)
		}
	}

	slog.InfoContext(ctx, "Generating recurring transactions",
		"month", key,
		"definitions", len(defs),
		"candidates", len(candidates),
		"concurrency", g.concurrency)

	failed := make([]bool, len(candidates))
	var generated atomic.Int64

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, def := range candidates {
		if def.LastGeneratedMonth == key {
			continue
		}
		eg.Go(func() error {
			created, err := g.generateOne(ctx, def, year, month, key)
			if err != nil {
				slog.ErrorContext(ctx, "Recurring generation failed",
					"definition_id", def.ID,
					"name", def.Name,
					"month", key,
					"error", err)
				failed[i] = true
				return nil
			}
			if created {
				generated.Add(1)
			}
			return nil
		})
	}
	_ = eg.Wait()

	result := GenerationResult{GeneratedCount: int(generated.Load()), Errors: []string{}}
	for i, def := range candidates {
		if failed[i] {
			result.Errors = append(result.Errors, def.Name+" generation failed")
		}
	}
	result.Success = len(result.Errors) == 0

	slog.InfoContext(ctx, "Recurring generation complete",
		"month", key,
		"generated", result.GeneratedCount,
		"errors", len(result.Errors))

	return result
}

// generateOne runs the check-then-create sequence for one definition and
// reports whether a new transaction was created.
func (g *GenerationCoordinator) generateOne(ctx context.Context, def core.RecurringDefinition, year, month int, key string) (bool, error) {
	date := core.TargetDate(year, month, def.DayOfMonth)

	_, found, err := g.store.FindTransaction(ctx, def.ID, date)
	if err != nil {
		return false, fmt.Errorf("find existing transaction: %w", err)
	}
	if found {
		return false, g.repair(ctx, def, key)
	}

	_, err = g.transactions.CreateTransaction(ctx, core.Transaction{
		Date:               date,
		Category:           def.Category,
		Description:        core.GeneratedDescription(def.Name),
		Amount:             def.Amount,
		Kind:               def.Kind,
		SourceDefinitionID: def.ID,
	})
	if errors.Is(err, core.ErrDuplicate) {
		// Another run created it between the check and the insert.
		return false, g.repair(ctx, def, key)
	}
	if err != nil {
		return false, fmt.Errorf("create transaction: %w", err)
	}

	if err := g.store.UpdateDefinition(ctx, def.ID, core.MarkGenerated(key)); err != nil {
		return false, fmt.Errorf("mark generated: %w", err)
	}
	return true, nil
}

// repair records the month on a definition whose transaction already exists.
func (g *GenerationCoordinator) repair(ctx context.Context, def core.RecurringDefinition, key string) error {
	slog.InfoContext(ctx, "Transaction already exists, repairing generation marker",
		"definition_id", def.ID,
		"name", def.Name,
		"month", key,
		"previous", def.LastGeneratedMonth)
	if err := g.store.UpdateDefinition(ctx, def.ID, core.MarkGenerated(key)); err != nil {
		return fmt.Errorf("repair generation marker: %w", err)
	}
	return nil
}

// GenerationStatus reports how many definitions active in the month are
// already generated.
func (g *GenerationCoordinator) GenerationStatus(ctx context.Context, year, month int) (core.GenerationStatus, error) {
	defs, err := g.store.ListDefinitions(ctx)
	if err != nil {
		return core.GenerationStatus{}, fmt.Errorf("list definitions: %w", err)
	}
	return core.ComputeGenerationStatus(defs, year, month), nil
}
