package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts a play idempotency log within a database transaction.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.PlayIdempotencyLog) error {
	query := `INSERT INTO play_idempotency_logs (key, game_id, response_json, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, log.Key, log.GameID, log.ResponseJSON, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert play idempotency log: %w", err)
	}
	return nil
}

// Get fetches a play idempotency log by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.PlayIdempotencyLog, error) {
	query := `SELECT key, game_id, response_json, created_at FROM play_idempotency_logs WHERE key = $1`

	log := &domain.PlayIdempotencyLog{}
	err := r.pool.QueryRow(ctx, query, key).Scan(&log.Key, &log.GameID, &log.ResponseJSON, &log.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get play idempotency log: %w", err)
	}
	return log, nil
}
