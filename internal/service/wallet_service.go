package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo  ports.WalletRepository
	depositRepo ports.DepositRepository
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	depositRepo ports.DepositRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo:  walletRepo,
		depositRepo: depositRepo,
		transactor:  transactor,
		log:         log,
	}
}

// GetBalance returns the current balance and currency of the player's wallet.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, playerID uuid.UUID) (int64, string, error) {
	wallet, err := s.walletRepo.GetByPlayerID(ctx, playerID)
	if err != nil {
		return 0, "", apperror.InternalError(fmt.Errorf("fetch wallet: %w", err))
	}
	if wallet == nil {
		return 0, "", apperror.ErrNotFound("wallet")
	}
	return wallet.Balance, wallet.Currency, nil
}

// ConfirmDeposit credits a confirmed provider deposit exactly once, keyed by
// the provider reference. A replayed confirmation returns the stored record.
func (s *WalletServiceImpl) ConfirmDeposit(ctx context.Context, req ports.DepositConfirmation) (*domain.DepositRecord, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.ProviderReference == "" {
		return nil, apperror.Validation("provider_reference is required")
	}

	existing, err := s.depositRepo.GetByProviderReference(ctx, req.ProviderReference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check deposit reference: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByPlayerIDForUpdate(ctx, dbTx, req.PlayerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	deposit := &domain.DepositRecord{
		ID:                uuid.New(),
		PlayerID:          req.PlayerID,
		WalletID:          wallet.ID,
		Amount:            req.Amount,
		ProviderReference: req.ProviderReference,
		Status:            domain.DepositStatusConfirmed,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.depositRepo.Create(ctx, dbTx, deposit); err != nil {
		// A concurrent confirmation with the same reference wins the unique
		// index race; treat it as the idempotent replay path.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if dup, dupErr := s.depositRepo.GetByProviderReference(ctx, req.ProviderReference); dupErr == nil && dup != nil {
				return dup, nil
			}
		}
		return nil, apperror.InternalError(fmt.Errorf("create deposit: %w", err))
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance+req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit deposit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("player_id", req.PlayerID.String()).
		Str("provider_reference", req.ProviderReference).
		Int64("amount", req.Amount).
		Msg("deposit confirmed")

	return deposit, nil
}
