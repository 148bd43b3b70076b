package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/budget-ledger/config"
	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/utils"

	"github.com/google/uuid"
)

var (
	ErrChargeNotFound      = errors.New("recurring charge not found")
	ErrUnsupportedSchema   = errors.New("charge table has neither the current nor the legacy shape")
	ErrReadOnlyLegacyShape = errors.New("charge table uses the legacy shape and is read-only")
)

// SchemaShape is the column layout detected for a charge table.
type SchemaShape int

const (
	ShapeUnknown SchemaShape = iota
	ShapeCurrent
	ShapeLegacy
)

func (s SchemaShape) String() string {
	switch s {
	case ShapeCurrent:
		return "current"
	case ShapeLegacy:
		return "legacy"
	}
	return "unknown"
}

var (
	currentColumns = []string{
		"id", "owner_id", "name", "amount", "currency", "interval_unit", "every_n",
		"next_due_date", "funding_account_id", "category_id", "active", "auto_post",
	}
	// Older deployments stored a single "frequency" word, no multiplier and
	// no category, and named the funding account account_id.
	legacyColumns = []string{
		"id", "owner_id", "name", "amount", "currency", "frequency",
		"next_due_date", "account_id", "is_active", "auto_post",
	}
)

// shapeQueries holds the SQL fragments that differ between shapes.
type shapeQueries struct {
	selectCols string
	activeCol  string
	fundingCol string
}

// ChargeStore reads and advances recurring charges in one table. The table's
// shape is probed once, on first use, instead of trying queries and falling
// back on failure.
type ChargeStore struct {
	db      *sql.DB
	dialect config.Dialect
	table   string

	mu    sync.Mutex
	shape SchemaShape
}

func NewChargeStore(db *sql.DB, dialect config.Dialect, table string) (*ChargeStore, error) {
	name, err := utils.SafeIdentifier(table)
	if err != nil {
		return nil, err
	}
	return &ChargeStore{db: db, dialect: dialect, table: name}, nil
}

// Name identifies the store in logs and job results.
func (s *ChargeStore) Name() string { return s.table }

// Shape returns the detected table shape. Probe failures are not cached.
func (s *ChargeStore) Shape(ctx context.Context) (SchemaShape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shape != ShapeUnknown {
		return s.shape, nil
	}

	cols, err := s.columns(ctx)
	if err != nil {
		return ShapeUnknown, fmt.Errorf("probing %s columns: %w", s.table, err)
	}
	switch {
	case hasAll(cols, currentColumns):
		s.shape = ShapeCurrent
	case hasAll(cols, legacyColumns):
		s.shape = ShapeLegacy
	default:
		return ShapeUnknown, fmt.Errorf("%s: %w", s.table, ErrUnsupportedSchema)
	}
	return s.shape, nil
}

func (s *ChargeStore) columns(ctx context.Context) (map[string]bool, error) {
	var query string
	switch s.dialect {
	case config.SQLite:
		query = `SELECT name FROM pragma_table_info($1)`
	default:
		query = `SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`
	}

	rows, err := s.db.QueryContext(ctx, query, s.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func hasAll(cols map[string]bool, want []string) bool {
	for _, c := range want {
		if !cols[c] {
			return false
		}
	}
	return true
}

func (s *ChargeStore) queries(shape SchemaShape) shapeQueries {
	if shape == ShapeLegacy {
		return shapeQueries{
			selectCols: `id, owner_id, name, amount, currency, frequency, 1, next_due_date, account_id, NULL, is_active, auto_post`,
			activeCol:  "is_active",
			fundingCol: "account_id",
		}
	}
	return shapeQueries{
		selectCols: `id, owner_id, name, amount, currency, interval_unit, every_n, next_due_date, funding_account_id, category_id, active, auto_post`,
		activeCol:  "active",
		fundingCol: "funding_account_id",
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCharge(row rowScanner, shape SchemaShape) (models.RecurringCharge, error) {
	var (
		c        models.RecurringCharge
		interval string
		funding  sql.NullString
		category sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.Amount, &c.Currency, &interval, &c.Every,
		&c.NextDueDate, &funding, &category, &c.Active, &c.AutoPost,
	)
	if err != nil {
		return c, err
	}

	if shape == ShapeLegacy {
		c.Interval, err = legacyFrequency(interval)
	} else {
		c.Interval, err = models.ParseInterval(interval)
	}
	if err != nil {
		return c, fmt.Errorf("charge %s: %w", c.ID, err)
	}
	if funding.Valid {
		c.FundingAccountID = &funding.String
	}
	if category.Valid {
		c.CategoryID = &category.String
	}
	return c, nil
}

func legacyFrequency(freq string) (models.Interval, error) {
	switch strings.ToLower(strings.TrimSpace(freq)) {
	case "daily", "day":
		return models.IntervalDay, nil
	case "weekly", "week":
		return models.IntervalWeek, nil
	case "monthly", "month":
		return models.IntervalMonth, nil
	case "yearly", "annual", "annually", "year":
		return models.IntervalYear, nil
	}
	return "", fmt.Errorf("unknown legacy frequency %q", freq)
}

// DueCharges returns active auto-post charges due on or before asOf that have
// a funding account, oldest first.
func (s *ChargeStore) DueCharges(ctx context.Context, asOf models.Date) ([]models.RecurringCharge, error) {
	shape, err := s.Shape(ctx)
	if err != nil {
		return nil, err
	}
	q := s.queries(shape)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1 AND auto_post = $2 AND next_due_date <= $3
		  AND %s IS NOT NULL AND %s <> ''
		ORDER BY next_due_date, id
	`, q.selectCols, s.table, q.activeCol, q.fundingCol, q.fundingCol)

	return s.queryCharges(ctx, shape, query, true, true, asOf)
}

// ListByOwner returns all charges of an owner.
func (s *ChargeStore) ListByOwner(ctx context.Context, ownerID string) ([]models.RecurringCharge, error) {
	shape, err := s.Shape(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1 ORDER BY next_due_date, id`,
		s.queries(shape).selectCols, s.table)
	return s.queryCharges(ctx, shape, query, ownerID)
}

// ListAll returns every charge in the table. Used by the legacy migration.
func (s *ChargeStore) ListAll(ctx context.Context) ([]models.RecurringCharge, error) {
	shape, err := s.Shape(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, s.queries(shape).selectCols, s.table)
	return s.queryCharges(ctx, shape, query)
}

func (s *ChargeStore) queryCharges(ctx context.Context, shape SchemaShape, query string, args ...interface{}) ([]models.RecurringCharge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// A row that cannot be read or mapped is skipped; the rest of the table
	// stays usable.
	var charges []models.RecurringCharge
	for rows.Next() {
		c, err := scanCharge(rows, shape)
		if err != nil {
			utils.SafeWarn("[Charges] skipping unreadable row in %s (id %q): %v", s.table, utils.MaskID(c.ID), err)
			continue
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// Get returns one charge by id.
func (s *ChargeStore) Get(ctx context.Context, id string) (*models.RecurringCharge, error) {
	shape, err := s.Shape(ctx)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, s.queries(shape).selectCols, s.table)
	c, err := scanCharge(s.db.QueryRowContext(ctx, query, id), shape)
	if err == sql.ErrNoRows {
		return nil, ErrChargeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AdvanceNextDue moves a charge's next due date from one value to another.
// It only applies while the stored value still equals from, so two passes
// that observed the same due date advance the charge once.
func (s *ChargeStore) AdvanceNextDue(ctx context.Context, id string, from, to models.Date) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET next_due_date = $1 WHERE id = $2 AND next_due_date = $3`, s.table)
	res, err := s.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Create inserts a new charge into a current-shape table. It reports false
// when a charge with the same id already exists.
func (s *ChargeStore) Create(ctx context.Context, c *models.RecurringCharge) (bool, error) {
	shape, err := s.Shape(ctx)
	if err != nil {
		return false, err
	}
	if shape != ShapeCurrent {
		return false, ErrReadOnlyLegacyShape
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Every < 1 {
		c.Every = 1
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, amount, currency, interval_unit, every_n,
			next_due_date, funding_account_id, category_id, active, auto_post, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`, s.table)

	res, err := s.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name, c.Amount, c.Currency, string(c.Interval), c.Every,
		c.NextDueDate, nullable(c.FundingAccountID), nullable(c.CategoryID), c.Active, c.AutoPost, c.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create charge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
