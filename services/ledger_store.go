package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/utils"

	"github.com/google/uuid"
)

// ledgerInsertChunk keeps a multi-row insert far below the bind parameter
// limits of both Postgres and SQLite.
const ledgerInsertChunk = 500

const ledgerColumns = `id, owner_id, entry_date, amount, currency, entry_type, category_id, account_id, note, recurring_charge_id, occurrence_date, created_at`

// LedgerStore writes and reads ledger entries.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// InsertIgnoreDuplicates writes entries in one transaction. An entry whose
// (recurring_charge_id, occurrence_date) already exists is skipped silently.
// It returns how many entries were actually inserted.
func (s *LedgerStore) InsertIgnoreDuplicates(ctx context.Context, entries []models.LedgerEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.New().String()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = now
		}
	}

	inserted := 0
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		for start := 0; start < len(entries); start += ledgerInsertChunk {
			end := min(start+ledgerInsertChunk, len(entries))
			chunk := entries[start:end]

			args := make([]interface{}, 0, len(chunk)*12)
			for _, e := range chunk {
				var occurrence interface{}
				if !e.OccurrenceDate.IsZero() {
					occurrence = e.OccurrenceDate
				}
				args = append(args,
					e.ID, e.OwnerID, e.Date, e.Amount, e.Currency, string(e.Type),
					nullable(e.CategoryID), nullable(e.AccountID), e.Note,
					nullable(e.RecurringChargeID), occurrence, e.CreatedAt,
				)
			}

			query := fmt.Sprintf(`
				INSERT INTO ledger_entries (%s)
				VALUES %s
				ON CONFLICT (recurring_charge_id, occurrence_date) DO NOTHING
			`, ledgerColumns, utils.Placeholders(len(chunk), 12, 1))

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to insert ledger entries: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func scanEntry(row rowScanner) (models.LedgerEntry, error) {
	var (
		e          models.LedgerEntry
		entryType  string
		category   sql.NullString
		account    sql.NullString
		note       sql.NullString
		chargeID   sql.NullString
		occurrence models.Date
	)
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Date, &e.Amount, &e.Currency, &entryType,
		&category, &account, &note, &chargeID, &occurrence,
	)
	if err != nil {
		return e, err
	}
	e.Type = models.EntryType(entryType)
	e.Note = note.String
	e.OccurrenceDate = occurrence
	if category.Valid {
		e.CategoryID = &category.String
	}
	if account.Valid {
		e.AccountID = &account.String
	}
	if chargeID.Valid {
		e.RecurringChargeID = &chargeID.String
	}
	return e, nil
}

const ledgerSelect = `SELECT id, owner_id, entry_date, amount, currency, entry_type, category_id, account_id, note, recurring_charge_id, occurrence_date FROM ledger_entries`

// ListByOwner returns an owner's entries dated inside window, oldest first.
func (s *LedgerStore) ListByOwner(ctx context.Context, ownerID string, window models.Window) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		ledgerSelect+` WHERE owner_id = $1 AND entry_date >= $2 AND entry_date < $3 ORDER BY entry_date, id`,
		ownerID, window.Start, window.End,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ForOccurrence returns the entry posted for a charge occurrence, or nil.
func (s *LedgerStore) ForOccurrence(ctx context.Context, chargeID string, occurrence models.Date) (*models.LedgerEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		ledgerSelect+` WHERE recurring_charge_id = $1 AND occurrence_date = $2`,
		chargeID, occurrence,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CountForCharge returns how many entries were posted for a charge.
func (s *LedgerStore) CountForCharge(ctx context.Context, chargeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE recurring_charge_id = $1`, chargeID).Scan(&n)
	return n, err
}
