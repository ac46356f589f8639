package postgres

import (
	"context"
	"errors"
	"fmt"

	"prize-scratch-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, player_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.PlayerID, w.Balance, w.Currency, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByPlayerID fetches a player's wallet (non-locking read).
func (r *WalletRepo) GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, player_id, balance, currency, created_at, updated_at
		FROM wallets WHERE player_id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, playerID).Scan(
		&w.ID, &w.PlayerID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by player id: %w", err)
	}
	return w, nil
}

// GetByPlayerIDForUpdate fetches a player's wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByPlayerIDForUpdate(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, player_id, balance, currency, created_at, updated_at
		FROM wallets WHERE player_id = $1 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, playerID).Scan(
		&w.ID, &w.PlayerID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateBalance sets a wallet's balance within a transaction. The CHECK
// constraint on the column backs up the in-code non-negative invariant.
func (r *WalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, newBalance, walletID)
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}
