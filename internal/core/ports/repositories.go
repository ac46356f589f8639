package ports

import (
	"context"

	"prize-scratch-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PlayerRepository defines persistence operations for players.
type PlayerRepository interface {
	Create(ctx context.Context, player *domain.Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	GetByUsername(ctx context.Context, username string) (*domain.Player, error)
	// IncrementCounters bumps scratch plus win or loss counters inside a transaction.
	IncrementCounters(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, won bool) error
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.Wallet, error)
	GetByPlayerIDForUpdate(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance int64) error
}

// ProductRepository defines persistence operations for scratch card products
// and their prize lists.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScratchCardProduct, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.ScratchCardProduct, error)
	// ListActivePrizes returns the product's active prizes in their fixed
	// resolution order (descending probability, id as tie-break).
	ListActivePrizes(ctx context.Context, productID uuid.UUID) ([]domain.Prize, error)
	GetPrizeByID(ctx context.Context, id uuid.UUID) (*domain.Prize, error)
	UpdateStats(ctx context.Context, tx pgx.Tx, product *domain.ScratchCardProduct) error
	ListActive(ctx context.Context) ([]domain.ScratchCardProduct, error)
}

// GameRepository defines persistence operations for game records.
type GameRepository interface {
	Create(ctx context.Context, tx pgx.Tx, game *domain.GameRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GameRecord, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.GameRecord, error)
	// UpdateRedemption persists the one-time redemption transition.
	UpdateRedemption(ctx context.Context, tx pgx.Tx, game *domain.GameRecord) error
	AggregateByProduct(ctx context.Context, productID uuid.UUID) (*GameAggregate, error)
}

// GameAggregate is a recomputed-from-records statistics slice used by the
// RTP reconciliation sweep.
type GameAggregate struct {
	Games     int64
	Winners   int64
	AmountWon int64
}

// LicenseRepository defines persistence operations for the license meter.
// The active license is addressed explicitly, never by insertion order.
type LicenseRepository interface {
	GetActive(ctx context.Context) (*domain.License, error)
	GetActiveForUpdate(ctx context.Context, tx pgx.Tx) (*domain.License, error)
	UpdateMeter(ctx context.Context, tx pgx.Tx, license *domain.License) error
}

// UsageRecordRepository appends license consumption audit entries.
type UsageRecordRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.UsageRecord) error
}

// DepositRepository defines persistence for consumed deposit confirmations.
type DepositRepository interface {
	Create(ctx context.Context, tx pgx.Tx, deposit *domain.DepositRecord) error
	GetByProviderReference(ctx context.Context, ref string) (*domain.DepositRecord, error)
}

// IdempotencyRepository defines persistence for play idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.PlayIdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.PlayIdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
