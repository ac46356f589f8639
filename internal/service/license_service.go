package service

import (
	"context"
	"fmt"
	"time"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// LicenseServiceImpl implements ports.LicenseMeter.
type LicenseServiceImpl struct {
	licenseRepo ports.LicenseRepository
	usageRepo   ports.UsageRecordRepository
	log         zerolog.Logger
}

// NewLicenseService creates a new LicenseServiceImpl.
func NewLicenseService(
	licenseRepo ports.LicenseRepository,
	usageRepo ports.UsageRecordRepository,
	log zerolog.Logger,
) *LicenseServiceImpl {
	return &LicenseServiceImpl{
		licenseRepo: licenseRepo,
		usageRepo:   usageRepo,
		log:         log,
	}
}

// HasEnoughCredits is the advisory pre-transaction gate. It reads the active
// license without locking, so a passing result can still be invalidated by a
// concurrent play; the authoritative check lives in
// ConsumeCreditsAndAddEarnings.
func (s *LicenseServiceImpl) HasEnoughCredits(ctx context.Context, amount int64) error {
	license, err := s.licenseRepo.GetActive(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get active license: %w", err))
	}
	if license == nil || !license.HasCreditsFor(amount) {
		return apperror.ErrLicenseUnavailable()
	}
	return nil
}

// ConsumeCreditsAndAddEarnings meters one wager against the license inside
// the caller's transaction. It re-locks and re-validates the license row,
// decrements credits, accrues the GGR share and appends a usage record.
// Any error aborts the enclosing transaction.
func (s *LicenseServiceImpl) ConsumeCreditsAndAddEarnings(ctx context.Context, tx pgx.Tx, amount int64, playerID, productID uuid.UUID) error {
	license, err := s.licenseRepo.GetActiveForUpdate(ctx, tx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lock active license: %w", err))
	}
	if license == nil || !license.HasCreditsFor(amount) {
		return apperror.ErrLicenseUnavailable()
	}

	needed := license.CreditsNeeded(amount)
	license.Consume(amount)

	if err := s.licenseRepo.UpdateMeter(ctx, tx, license); err != nil {
		return apperror.InternalError(fmt.Errorf("update license meter: %w", err))
	}

	usage := &domain.UsageRecord{
		ID:          uuid.New(),
		LicenseID:   license.ID,
		PlayerID:    playerID,
		ProductID:   productID,
		CreditsUsed: needed,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.usageRepo.Create(ctx, tx, usage); err != nil {
		return apperror.InternalError(fmt.Errorf("append usage record: %w", err))
	}

	s.log.Debug().
		Str("license_id", license.ID.String()).
		Int64("credits_used", needed).
		Int64("credits_left", license.Credits).
		Msg("license credits consumed")

	return nil
}
