package utils

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// WithTransaction runs fn inside a transaction bound to ctx, committing on
// success and rolling back on error or panic.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// SafeIdentifier validates a table or column name before it is spliced into SQL.
func SafeIdentifier(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !identifierRegex.MatchString(name) {
		return "", fmt.Errorf("invalid SQL identifier %q", name)
	}
	return name, nil
}

// Placeholders returns "($n,...,$n+cols-1),(...)" for rows rows, numbered from
// first. Numbers appear in ascending order, which SQLite requires to bind
// $N parameters positionally.
func Placeholders(rows, cols, first int) string {
	var b strings.Builder
	n := first
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
