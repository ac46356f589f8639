package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LicenseRepo implements ports.LicenseRepository. The active license is
// always addressed by its is_active flag, never by insertion order.
type LicenseRepo struct {
	pool Pool
}

// NewLicenseRepo creates a new LicenseRepo.
func NewLicenseRepo(pool Pool) *LicenseRepo {
	return &LicenseRepo{pool: pool}
}

const licenseColumns = `id, credits, credits_used, credits_value,
	ggr_percentage, total_earnings, is_active, created_at, updated_at`

// GetActive fetches the active license (non-locking read).
func (r *LicenseRepo) GetActive(ctx context.Context) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE is_active = TRUE`
	return scanLicense(r.pool.QueryRow(ctx, query), "get active license")
}

// GetActiveForUpdate fetches the active license with pessimistic locking.
// This MUST be called within a transaction.
func (r *LicenseRepo) GetActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE is_active = TRUE FOR UPDATE`
	return scanLicense(tx.QueryRow(ctx, query), "get active license for update")
}

// UpdateMeter writes back the license meter within a transaction. The
// caller must hold the license row lock.
func (r *LicenseRepo) UpdateMeter(ctx context.Context, tx pgx.Tx, l *domain.License) error {
	query := `UPDATE licenses SET
			credits = $1, credits_used = $2, total_earnings = $3, updated_at = NOW()
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, l.Credits, l.CreditsUsed, l.TotalEarnings, l.ID)
	if err != nil {
		return fmt.Errorf("update license meter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("license not found: %s", l.ID)
	}
	return nil
}

func scanLicense(row pgx.Row, op string) (*domain.License, error) {
	l := &domain.License{}
	err := row.Scan(
		&l.ID, &l.Credits, &l.CreditsUsed, &l.CreditsValue,
		&l.GGRPercentage, &l.TotalEarnings, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return l, nil
}
