package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GameRepo implements ports.GameRepository.
type GameRepo struct {
	pool Pool
}

// NewGameRepo creates a new GameRepo.
func NewGameRepo(pool Pool) *GameRepo {
	return &GameRepo{pool: pool}
}

const gameColumns = `id, player_id, product_id, prize_id, is_winner,
	amount_won, prize_type, redemption_choice, status, played_at`

// Create inserts a game record within a transaction.
func (r *GameRepo) Create(ctx context.Context, tx pgx.Tx, g *domain.GameRecord) error {
	query := `INSERT INTO game_records (id, player_id, product_id, prize_id, is_winner, amount_won, prize_type, redemption_choice, status, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		g.ID, g.PlayerID, g.ProductID, g.PrizeID, g.IsWinner,
		g.AmountWon, string(g.PrizeType), string(g.RedemptionChoice),
		string(g.Status), g.PlayedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}
	return nil
}

// GetByID fetches a game record (non-locking read).
func (r *GameRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM game_records WHERE id = $1`
	return scanGame(r.pool.QueryRow(ctx, query, id), "get game by id")
}

// GetByIDForUpdate fetches a game record with pessimistic locking so the
// redemption transition is exactly-once. This MUST be called within a
// transaction.
func (r *GameRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM game_records WHERE id = $1 FOR UPDATE`
	return scanGame(tx.QueryRow(ctx, query, id), "get game for update")
}

// UpdateRedemption writes back the redemption transition within a
// transaction.
func (r *GameRepo) UpdateRedemption(ctx context.Context, tx pgx.Tx, g *domain.GameRecord) error {
	query := `UPDATE game_records SET
			amount_won = $1, prize_type = $2, redemption_choice = $3, status = $4
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query,
		g.AmountWon, string(g.PrizeType), string(g.RedemptionChoice), string(g.Status), g.ID,
	)
	if err != nil {
		return fmt.Errorf("update game redemption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game record not found: %s", g.ID)
	}
	return nil
}

// AggregateByProduct sums a product's game records for reconciliation
// against the product's running statistics.
func (r *GameRepo) AggregateByProduct(ctx context.Context, productID uuid.UUID) (*ports.GameAggregate, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_winner), COALESCE(SUM(amount_won), 0)
		FROM game_records WHERE product_id = $1`

	agg := &ports.GameAggregate{}
	err := r.pool.QueryRow(ctx, query, productID).Scan(&agg.Games, &agg.Winners, &agg.AmountWon)
	if err != nil {
		return nil, fmt.Errorf("aggregate games by product: %w", err)
	}
	return agg, nil
}

func scanGame(row pgx.Row, op string) (*domain.GameRecord, error) {
	g := &domain.GameRecord{}
	var prizeType, choice, status string
	err := row.Scan(
		&g.ID, &g.PlayerID, &g.ProductID, &g.PrizeID, &g.IsWinner,
		&g.AmountWon, &prizeType, &choice, &status, &g.PlayedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.PrizeType = domain.WonPrizeType(prizeType)
	g.RedemptionChoice = domain.RedemptionChoice(choice)
	g.Status = domain.GameStatus(status)
	return g, nil
}
