package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"gagyebu/internal/core"
	"gagyebu/internal/store"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano

	definitionColumns  = `id, name, amount, category, kind, day_of_month, start_date, end_date, is_active, last_generated_month, created_at`
	transactionColumns = `id, date, category, description, amount, kind, source_definition_id, created_at`
)

var _ store.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db  *sql.DB
	hub *store.Hub
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	repo.hub = store.NewHub(repo.ListDefinitions)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return store.Wrap("ping", r.db.PingContext(ctx))
}

type rowScanner interface {
	Scan(dest ...any) error
}

// definitionRow mirrors one recurring_definitions row before validation.
type definitionRow struct {
	ID                 string
	Name               string
	Amount             int64
	Category           string
	Kind               string
	DayOfMonth         int
	StartDate          string
	EndDate            sql.NullString
	IsActive           bool
	LastGeneratedMonth string
	CreatedAt          string
}

func scanDefinition(s rowScanner) (definitionRow, error) {
	var row definitionRow
	err := s.Scan(&row.ID, &row.Name, &row.Amount, &row.Category, &row.Kind, &row.DayOfMonth,
		&row.StartDate, &row.EndDate, &row.IsActive, &row.LastGeneratedMonth, &row.CreatedAt)
	return row, err
}

// decode converts a stored row into a definition and rejects rows that do
// not satisfy the domain rules.
func (row definitionRow) decode() (core.RecurringDefinition, error) {
	def := core.RecurringDefinition{
		ID:                 row.ID,
		Name:               row.Name,
		Amount:             core.Money{Won: row.Amount},
		Category:           row.Category,
		Kind:               core.Kind(row.Kind),
		DayOfMonth:         row.DayOfMonth,
		IsActive:           row.IsActive,
		LastGeneratedMonth: row.LastGeneratedMonth,
	}
	var err error
	if def.StartDate, err = core.ParseDate(row.StartDate); err != nil {
		return def, fmt.Errorf("definition %s start date: %w", row.ID, err)
	}
	if row.EndDate.Valid && row.EndDate.String != "" {
		end, err := core.ParseDate(row.EndDate.String)
		if err != nil {
			return def, fmt.Errorf("definition %s end date: %w", row.ID, err)
		}
		def.EndDate = &end
	}
	if def.CreatedAt, err = time.Parse(timestampLayout, row.CreatedAt); err != nil {
		return def, fmt.Errorf("definition %s created at: %w", row.ID, err)
	}
	if err := def.Validate(); err != nil {
		return def, fmt.Errorf("definition %s: %w", row.ID, err)
	}
	return def, nil
}

func definitionArgs(def core.RecurringDefinition) []any {
	var end any
	if def.EndDate != nil {
		end = def.EndDate.Format(dateLayout)
	}
	return []any{
		def.ID, def.Name, def.Amount.Won, def.Category, string(def.Kind), def.DayOfMonth,
		def.StartDate.Format(dateLayout), end, def.IsActive, def.LastGeneratedMonth,
		def.CreatedAt.UTC().Format(timestampLayout),
	}
}

// ListDefinitions returns every valid stored definition, oldest first.
// Rows failing validation are skipped and logged.
func (r *SQLiteRepository) ListDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions ORDER BY created_at, id`)
	if err != nil {
		return nil, store.Wrap("list definitions", err)
	}
	defer rows.Close()

	defs := make([]core.RecurringDefinition, 0)
	for rows.Next() {
		row, err := scanDefinition(rows)
		if err != nil {
			return nil, store.Wrap("list definitions", err)
		}
		def, err := row.decode()
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid recurring definition", "id", row.ID, "error", err)
			continue
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list definitions", err)
	}
	return defs, nil
}

func (r *SQLiteRepository) GetDefinition(ctx context.Context, id string) (core.RecurringDefinition, error) {
	return r.getDefinition(ctx, r.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) getDefinition(ctx context.Context, q querier, id string) (core.RecurringDefinition, error) {
	row, err := scanDefinition(q.QueryRowContext(ctx,
		`SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringDefinition{}, store.Wrap("get definition", fmt.Errorf("definition %s: %w", id, core.ErrNotFound))
	}
	if err != nil {
		return core.RecurringDefinition{}, store.Wrap("get definition", err)
	}
	def, err := row.decode()
	if err != nil {
		return core.RecurringDefinition{}, store.Wrap("get definition", err)
	}
	return def, nil
}

func (r *SQLiteRepository) CreateDefinition(ctx context.Context, def core.RecurringDefinition) (string, error) {
	def.ID = uuid.NewString()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_definitions (`+definitionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		definitionArgs(def)...)
	if err != nil {
		return "", store.Wrap("create definition", err)
	}

	slog.InfoContext(ctx, "Recurring definition saved to SQLite",
		"id", def.ID,
		"name", def.Name,
		"amount", def.Amount.Won,
		"day_of_month", def.DayOfMonth)

	r.hub.Notify(ctx)
	return def.ID, nil
}

// UpdateDefinition applies patch inside a transaction so concurrent patches
// to different fields do not overwrite each other.
func (r *SQLiteRepository) UpdateDefinition(ctx context.Context, id string, patch core.DefinitionPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Wrap("update definition", err)
	}
	defer tx.Rollback()

	current, err := r.getDefinition(ctx, tx, id)
	if err != nil {
		return store.Wrap("update definition", err)
	}
	updated := patch.Apply(current)
	args := definitionArgs(updated)

	_, err = tx.ExecContext(ctx, `UPDATE recurring_definitions
		SET name = ?, amount = ?, category = ?, kind = ?, day_of_month = ?, start_date = ?,
		    end_date = ?, is_active = ?, last_generated_month = ?
		WHERE id = ?`,
		append(args[1:10:10], id)...)
	if err != nil {
		return store.Wrap("update definition", err)
	}
	if err := tx.Commit(); err != nil {
		return store.Wrap("update definition", err)
	}

	r.hub.Notify(ctx)
	return nil
}

func (r *SQLiteRepository) DeleteDefinition(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_definitions WHERE id = ?`, id)
	if err != nil {
		return store.Wrap("delete definition", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.Wrap("delete definition", fmt.Errorf("definition %s: %w", id, core.ErrNotFound))
	}

	r.hub.Notify(ctx)
	return nil
}

func (r *SQLiteRepository) WatchDefinitions(ctx context.Context) (<-chan []core.RecurringDefinition, error) {
	return r.hub.Subscribe(ctx)
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		date      string
		kind      string
		source    sql.NullString
		createdAt string
	)
	if err := s.Scan(&tx.ID, &date, &tx.Category, &tx.Description, &tx.Amount.Won, &kind, &source, &createdAt); err != nil {
		return tx, err
	}
	var err error
	if tx.Date, err = core.ParseDate(date); err != nil {
		return tx, fmt.Errorf("transaction %s date: %w", tx.ID, err)
	}
	if tx.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return tx, fmt.Errorf("transaction %s created at: %w", tx.ID, err)
	}
	tx.Kind = core.Kind(kind)
	tx.SourceDefinitionID = source.String
	return tx, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	var source any
	if t.SourceDefinitionID != "" {
		source = t.SourceDefinitionID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.Format(dateLayout), t.Category, t.Description, t.Amount.Won, string(t.Kind),
		source, t.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("transaction for %s on %s: %w", t.SourceDefinitionID, t.Date, core.ErrDuplicate)
		}
		return "", store.Wrap("create transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"date", t.Date.String(),
		"amount", t.Amount.Won,
		"source_definition_id", t.SourceDefinitionID)

	return t.ID, nil
}

func (r *SQLiteRepository) FindTransaction(ctx context.Context, sourceDefinitionID string, date core.Date) (core.Transaction, bool, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE source_definition_id = ? AND date = ?`,
		sourceDefinitionID, date.Format(dateLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, store.Wrap("find transaction", err)
	}
	return t, true, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.Wrap("get transaction", fmt.Errorf("transaction %s: %w", id, core.ErrNotFound))
	}
	if err != nil {
		return core.Transaction{}, store.Wrap("get transaction", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return store.Wrap("delete transaction", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.Wrap("delete transaction", fmt.Errorf("transaction %s: %w", id, core.ErrNotFound))
	}
	return nil
}

// ListTransactions returns the month's transactions ordered by date.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month+1, 1)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE date >= ? AND date < ? ORDER BY date, created_at, id`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, store.Wrap("list transactions", err)
	}
	defer rows.Close()

	txs := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid transaction row", "error", err)
			continue
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list transactions", err)
	}
	return txs, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
