package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PlayerRepo implements ports.PlayerRepository.
type PlayerRepo struct {
	pool Pool
}

// NewPlayerRepo creates a new PlayerRepo.
func NewPlayerRepo(pool Pool) *PlayerRepo {
	return &PlayerRepo{pool: pool}
}

const playerColumns = `id, username, password_hash, is_influencer,
	total_scratches, total_wins, total_losses, status, created_at, updated_at`

// Create inserts a new player.
func (r *PlayerRepo) Create(ctx context.Context, p *domain.Player) error {
	query := `INSERT INTO players (id, username, password_hash, is_influencer, total_scratches, total_wins, total_losses, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Username, p.PasswordHash, p.IsInfluencer,
		p.TotalScratches, p.TotalWins, p.TotalLosses, string(p.Status),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetByID fetches a player by UUID.
func (r *PlayerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return r.scanPlayer(r.pool.QueryRow(ctx, query, id), "get player by id")
}

// GetByUsername fetches a player by username.
func (r *PlayerRepo) GetByUsername(ctx context.Context, username string) (*domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE username = $1`
	return r.scanPlayer(r.pool.QueryRow(ctx, query, username), "get player by username")
}

// IncrementCounters bumps the per-player scratch counters within a
// transaction.
func (r *PlayerRepo) IncrementCounters(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, won bool) error {
	query := `UPDATE players SET
			total_scratches = total_scratches + 1,
			total_wins = total_wins + CASE WHEN $1 THEN 1 ELSE 0 END,
			total_losses = total_losses + CASE WHEN $1 THEN 0 ELSE 1 END,
			updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, won, playerID)
	if err != nil {
		return fmt.Errorf("increment player counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player not found: %s", playerID)
	}
	return nil
}

func (r *PlayerRepo) scanPlayer(row pgx.Row, op string) (*domain.Player, error) {
	p := &domain.Player{}
	var status string
	err := row.Scan(
		&p.ID, &p.Username, &p.PasswordHash, &p.IsInfluencer,
		&p.TotalScratches, &p.TotalWins, &p.TotalLosses, &status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.Status = domain.PlayerStatus(status)
	return p, nil
}
