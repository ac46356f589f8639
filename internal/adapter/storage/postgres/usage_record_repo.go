package postgres

import (
	"context"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// UsageRecordRepo implements ports.UsageRecordRepository. Usage records are
// the append-only audit trail of license credit consumption.
type UsageRecordRepo struct {
	pool Pool
}

// NewUsageRecordRepo creates a new UsageRecordRepo.
func NewUsageRecordRepo(pool Pool) *UsageRecordRepo {
	return &UsageRecordRepo{pool: pool}
}

// Create appends a usage record within a transaction.
func (r *UsageRecordRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.UsageRecord) error {
	query := `INSERT INTO license_usage_records (id, license_id, player_id, product_id, credits_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		rec.ID, rec.LicenseID, rec.PlayerID, rec.ProductID, rec.CreditsUsed, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}
