package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// DepositRepo implements ports.DepositRepository. The unique index on
// provider_reference makes deposit confirmation exactly-once.
type DepositRepo struct {
	pool Pool
}

// NewDepositRepo creates a new DepositRepo.
func NewDepositRepo(pool Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

// Create inserts a deposit record within a transaction.
func (r *DepositRepo) Create(ctx context.Context, tx pgx.Tx, d *domain.DepositRecord) error {
	query := `INSERT INTO deposit_records (id, player_id, wallet_id, amount, provider_reference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		d.ID, d.PlayerID, d.WalletID, d.Amount, d.ProviderReference, string(d.Status), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deposit record: %w", err)
	}
	return nil
}

// GetByProviderReference fetches a deposit by its provider reference.
func (r *DepositRepo) GetByProviderReference(ctx context.Context, ref string) (*domain.DepositRecord, error) {
	query := `SELECT id, player_id, wallet_id, amount, provider_reference, status, created_at
		FROM deposit_records WHERE provider_reference = $1`

	d := &domain.DepositRecord{}
	var status string
	err := r.pool.QueryRow(ctx, query, ref).Scan(
		&d.ID, &d.PlayerID, &d.WalletID, &d.Amount, &d.ProviderReference, &status, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deposit by provider reference: %w", err)
	}
	d.Status = domain.DepositStatus(status)
	return d, nil
}
