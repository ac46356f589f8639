package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ports.ProductRepository for scratch card products
// and their prize lists.
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const productColumns = `id, name, price, target_rtp, current_rtp,
	total_revenue, total_payouts, total_games_played, rtp_revenue, rtp_payouts,
	is_active, created_at, updated_at`

// GetByID fetches a product (non-locking read).
func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScratchCardProduct, error) {
	query := `SELECT ` + productColumns + ` FROM scratch_card_products WHERE id = $1`
	return scanProduct(r.pool.QueryRow(ctx, query, id), "get product by id")
}

// GetByIDForUpdate fetches a product with pessimistic locking. This MUST be
// called within a transaction.
func (r *ProductRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.ScratchCardProduct, error) {
	query := `SELECT ` + productColumns + ` FROM scratch_card_products WHERE id = $1 FOR UPDATE`
	return scanProduct(tx.QueryRow(ctx, query, id), "get product for update")
}

// ListActive returns all active products.
func (r *ProductRepo) ListActive(ctx context.Context) ([]domain.ScratchCardProduct, error) {
	query := `SELECT ` + productColumns + ` FROM scratch_card_products WHERE is_active = TRUE ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	var products []domain.ScratchCardProduct
	for rows.Next() {
		p := domain.ScratchCardProduct{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.TargetRTP, &p.CurrentRTP,
			&p.TotalRevenue, &p.TotalPayouts, &p.TotalGamesPlayed,
			&p.RTPRevenue, &p.RTPPayouts,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// UpdateStats writes back the statistics and RTP accumulators within a
// transaction. The caller must hold the product row lock.
func (r *ProductRepo) UpdateStats(ctx context.Context, tx pgx.Tx, p *domain.ScratchCardProduct) error {
	query := `UPDATE scratch_card_products SET
			current_rtp = $1,
			total_revenue = $2,
			total_payouts = $3,
			total_games_played = $4,
			rtp_revenue = $5,
			rtp_payouts = $6,
			updated_at = NOW()
		WHERE id = $7`

	tag, err := tx.Exec(ctx, query,
		p.CurrentRTP, p.TotalRevenue, p.TotalPayouts, p.TotalGamesPlayed,
		p.RTPRevenue, p.RTPPayouts, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product not found: %s", p.ID)
	}
	return nil
}

// ListActivePrizes returns a product's active prizes in their fixed
// evaluation order.
func (r *ProductRepo) ListActivePrizes(ctx context.Context, productID uuid.UUID) ([]domain.Prize, error) {
	query := `SELECT id, product_id, type, value, product_name, redemption_value, probability, sort_order, is_active, created_at
		FROM prizes WHERE product_id = $1 AND is_active = TRUE ORDER BY sort_order`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list active prizes: %w", err)
	}
	defer rows.Close()

	var prizes []domain.Prize
	for rows.Next() {
		p := domain.Prize{}
		var prizeType string
		if err := rows.Scan(
			&p.ID, &p.ProductID, &prizeType, &p.Value, &p.ProductName,
			&p.RedemptionValue, &p.Probability, &p.SortOrder, &p.IsActive, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prize row: %w", err)
		}
		p.Type = domain.PrizeType(prizeType)
		prizes = append(prizes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prize rows: %w", err)
	}
	return prizes, nil
}

// GetPrizeByID fetches one prize.
func (r *ProductRepo) GetPrizeByID(ctx context.Context, id uuid.UUID) (*domain.Prize, error) {
	query := `SELECT id, product_id, type, value, product_name, redemption_value, probability, sort_order, is_active, created_at
		FROM prizes WHERE id = $1`

	p := &domain.Prize{}
	var prizeType string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProductID, &prizeType, &p.Value, &p.ProductName,
		&p.RedemptionValue, &p.Probability, &p.SortOrder, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get prize by id: %w", err)
	}
	p.Type = domain.PrizeType(prizeType)
	return p, nil
}

func scanProduct(row pgx.Row, op string) (*domain.ScratchCardProduct, error) {
	p := &domain.ScratchCardProduct{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Price, &p.TargetRTP, &p.CurrentRTP,
		&p.TotalRevenue, &p.TotalPayouts, &p.TotalGamesPlayed,
		&p.RTPRevenue, &p.RTPPayouts,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
