// migration/legacy_charges.go
// Copies recurring charges stored in the legacy table shape (frequency word,
// account_id, is_active) into a current-shape table. Rows already present in
// the target, by id, are left untouched, so the migration can be re-run.

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/LovationAdmin/budget-ledger/config"
	"github.com/LovationAdmin/budget-ledger/services"
)

// Report summarizes one migration run.
type Report struct {
	Read    int `json:"read"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

// MigrateLegacyCharges copies every row of fromTable into toTable.
// fromTable must have the legacy shape and toTable the current one.
func MigrateLegacyCharges(ctx context.Context, db *sql.DB, dialect config.Dialect, fromTable, toTable string) (Report, error) {
	var report Report

	from, err := services.NewChargeStore(db, dialect, fromTable)
	if err != nil {
		return report, err
	}
	to, err := services.NewChargeStore(db, dialect, toTable)
	if err != nil {
		return report, err
	}

	shape, err := from.Shape(ctx)
	if err != nil {
		return report, err
	}
	if shape != services.ShapeLegacy {
		return report, fmt.Errorf("%s has the %s shape, nothing to migrate", from.Name(), shape)
	}
	if shape, err := to.Shape(ctx); err != nil {
		return report, err
	} else if shape != services.ShapeCurrent {
		return report, fmt.Errorf("target %s has the %s shape", to.Name(), shape)
	}

	charges, err := from.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", from.Name(), err)
	}

	log.Printf("🔄 Migrating %d charges from %s to %s", len(charges), from.Name(), to.Name())
	for i := range charges {
		report.Read++
		created, err := to.Create(ctx, &charges[i])
		if err != nil {
			return report, fmt.Errorf("charge %s: %w", charges[i].ID, err)
		}
		if created {
			report.Written++
		} else {
			report.Skipped++
			log.Printf("  → %s already migrated, skip", charges[i].ID)
		}
	}
	log.Printf("✅ Migration done: %d written, %d skipped", report.Written, report.Skipped)
	return report, nil
}
