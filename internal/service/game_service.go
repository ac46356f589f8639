package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	playIdempotencyTTL = 24 * time.Hour

	// Bounded in-process retry on serialization/lock conflicts. The random
	// draw is pinned before the first attempt, so a retried transaction
	// cannot yield a different outcome for the same logical play.
	maxPlayAttempts  = 3
	retryBackoffStep = 50 * time.Millisecond
)

// GameServiceImpl implements ports.GameService: one atomic unit per play
// covering wallet, product statistics, game record and license metering.
type GameServiceImpl struct {
	playerRepo   ports.PlayerRepository
	walletRepo   ports.WalletRepository
	productRepo  ports.ProductRepository
	gameRepo     ports.GameRepository
	idempRepo    ports.IdempotencyRepository
	idempCache   ports.IdempotencyCache
	licenseMeter ports.LicenseMeter
	transactor   ports.DBTransactor
	resolver     *OutcomeResolver
	draws        ports.DrawSource
	txTimeout    time.Duration
	log          zerolog.Logger
}

// NewGameService creates a new GameServiceImpl.
func NewGameService(
	playerRepo ports.PlayerRepository,
	walletRepo ports.WalletRepository,
	productRepo ports.ProductRepository,
	gameRepo ports.GameRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	licenseMeter ports.LicenseMeter,
	transactor ports.DBTransactor,
	resolver *OutcomeResolver,
	draws ports.DrawSource,
	txTimeout time.Duration,
	log zerolog.Logger,
) *GameServiceImpl {
	return &GameServiceImpl{
		playerRepo:   playerRepo,
		walletRepo:   walletRepo,
		productRepo:  productRepo,
		gameRepo:     gameRepo,
		idempRepo:    idempRepo,
		idempCache:   idempCache,
		licenseMeter: licenseMeter,
		transactor:   transactor,
		resolver:     resolver,
		draws:        draws,
		txTimeout:    txTimeout,
		log:          log,
	}
}

// PlayScratchCard runs one paid play as a single atomic unit.
func (s *GameServiceImpl) PlayScratchCard(ctx context.Context, req ports.PlayRequest) (*ports.PlayResult, error) {
	var idempKey string
	if req.Reference != "" {
		idempKey = domain.BuildPlayIdempotencyKey(req.PlayerID, req.Reference)

		// Layer 1: Redis idempotency check
		cached, err := s.idempCache.Get(ctx, idempKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return s.unmarshalCachedResult(cached)
		}

		// Layer 2: DB idempotency check
		idempLog, err := s.idempRepo.Get(ctx, idempKey)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if idempLog != nil {
			return s.unmarshalCachedResult(idempLog.ResponseJSON)
		}
	}

	player, err := s.playerRepo.GetByID(ctx, req.PlayerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch player: %w", err))
	}
	if player == nil {
		return nil, apperror.ErrNotFound("player")
	}
	if !player.IsActive() {
		return nil, apperror.ErrPlayerSuspended()
	}

	// Fast-fail pre-checks. These are advisory UX only: state may change
	// between here and commit, so every one is re-validated against locked
	// rows inside the transaction.
	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch product: %w", err))
	}
	if product == nil {
		return nil, apperror.ErrNotFound("product")
	}
	if !product.IsActive {
		return nil, apperror.ErrProductInactive()
	}

	wallet, err := s.walletRepo.GetByPlayerID(ctx, req.PlayerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !wallet.CanDebit(product.Price) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if err := s.licenseMeter.HasEnoughCredits(ctx, product.Price); err != nil {
		return nil, err
	}

	// Pin the draw before the atomic section. Retried transactions reuse it.
	draw := s.draws.Draw()

	var result *ports.PlayResult
	for attempt := 1; ; attempt++ {
		result, err = s.playOnce(ctx, player, req.ProductID, draw, idempKey)
		if err == nil {
			break
		}
		var dupErr *apperror.AppError
		if errors.As(err, &dupErr) && dupErr.Code == "GAME_008" {
			idempLog, getErr := s.idempRepo.Get(ctx, idempKey)
			if getErr == nil && idempLog != nil {
				return s.unmarshalCachedResult(idempLog.ResponseJSON)
			}
			return nil, err
		}
		if !isRetryableTxError(err) || attempt >= maxPlayAttempts {
			if isRetryableTxError(err) {
				return nil, apperror.ErrConcurrencyConflict(err)
			}
			return nil, err
		}
		s.log.Warn().Err(err).
			Str("player_id", req.PlayerID.String()).
			Int("attempt", attempt).
			Msg("play transaction conflict, retrying with pinned draw")
		select {
		case <-ctx.Done():
			return nil, apperror.ErrConcurrencyConflict(ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoffStep):
		}
	}

	if idempKey != "" {
		respJSON, err := json.Marshal(result)
		if err == nil {
			if err := s.idempCache.Set(ctx, idempKey, respJSON, playIdempotencyTTL); err != nil {
				s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache play result in redis")
			}
		}
	}

	s.log.Info().
		Str("game_id", result.Game.ID.String()).
		Str("player_id", req.PlayerID.String()).
		Str("product_id", req.ProductID.String()).
		Bool("is_winner", result.Game.IsWinner).
		Int64("amount_won", result.Game.AmountWon).
		Msg("scratch card played")

	return result, nil
}

// playOnce executes the atomic section of one play. Lock order is fixed
// (wallet, product, license) so concurrent plays cannot deadlock each other.
func (s *GameServiceImpl) playOnce(ctx context.Context, player *domain.Player, productID uuid.UUID, draw float64, idempKey string) (*ports.PlayResult, error) {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has && s.txTimeout > 0 {
		c, cancel := context.WithTimeout(ctx, s.txTimeout)
		txCtx = c
		defer cancel()
	}

	dbTx, err := s.transactor.Begin(txCtx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(txCtx) //nolint:errcheck

	// Lock & re-read everything fresh; the pre-checks above are not trusted.
	wallet, err := s.walletRepo.GetByPlayerIDForUpdate(txCtx, dbTx, player.ID)
	if err != nil {
		return nil, wrapTxError("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	product, err := s.productRepo.GetByIDForUpdate(txCtx, dbTx, productID)
	if err != nil {
		return nil, wrapTxError("lock product", err)
	}
	if product == nil {
		return nil, apperror.ErrNotFound("product")
	}
	if !product.IsActive {
		return nil, apperror.ErrProductInactive()
	}

	if !wallet.CanDebit(product.Price) {
		return nil, apperror.ErrInsufficientFunds()
	}

	prizes, err := s.productRepo.ListActivePrizes(txCtx, productID)
	if err != nil {
		return nil, wrapTxError("list prizes", err)
	}

	outcome := s.resolver.Resolve(prizes, product.CurrentRTP, product.TargetRTP, player.IsInfluencer, draw)

	amountWon := int64(0)
	prizeType := domain.WonPrizeNone
	var prizeID *uuid.UUID
	newBalance := wallet.Balance - product.Price
	if outcome.IsWinner {
		prizeID = &outcome.Prize.ID
		if outcome.Prize.Type == domain.PrizeTypeMoney {
			amountWon = outcome.Prize.Value
			newBalance += amountWon
			prizeType = domain.WonPrizeMoney
		} else {
			// PRODUCT prizes pay out only if the winner later redeems for cash.
			prizeType = domain.WonPrizeProduct
		}
	}

	if err := s.walletRepo.UpdateBalance(txCtx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, wrapTxError("update balance", err)
	}

	game := &domain.GameRecord{
		ID:               uuid.New(),
		PlayerID:         player.ID,
		ProductID:        product.ID,
		PrizeID:          prizeID,
		IsWinner:         outcome.IsWinner,
		AmountWon:        amountWon,
		PrizeType:        prizeType,
		RedemptionChoice: domain.RedemptionUndecided,
		Status:           domain.GameStatusCompleted,
		PlayedAt:         time.Now().UTC(),
	}
	if err := s.gameRepo.Create(txCtx, dbTx, game); err != nil {
		return nil, wrapTxError("create game record", err)
	}

	if err := s.playerRepo.IncrementCounters(txCtx, dbTx, player.ID, outcome.IsWinner); err != nil {
		return nil, wrapTxError("increment player counters", err)
	}

	product.ApplyPlay(product.Price, amountWon, player.IsInfluencer)
	if err := s.productRepo.UpdateStats(txCtx, dbTx, product); err != nil {
		return nil, wrapTxError("update product stats", err)
	}

	// License metering is the final gate: failure here rolls back the debit,
	// the game record and the statistics above.
	if err := s.licenseMeter.ConsumeCreditsAndAddEarnings(txCtx, dbTx, product.Price, player.ID, product.ID); err != nil {
		return nil, err
	}

	result := &ports.PlayResult{Game: game, Prize: outcome.Prize, Balance: newBalance}

	if idempKey != "" {
		respJSON, err := json.Marshal(result)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		idempLog := &domain.PlayIdempotencyLog{
			Key:          idempKey,
			GameID:       game.ID,
			ResponseJSON: respJSON,
			CreatedAt:    game.PlayedAt,
		}
		var pgErr *pgconn.PgError
		if err := s.idempRepo.Create(txCtx, dbTx, idempLog); err != nil {
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// A concurrent request with the same reference committed
				// first; roll back and serve its stored outcome instead.
				return nil, apperror.ErrDuplicatePlay()
			}
			return nil, wrapTxError("save idempotency log", err)
		}
	}

	if err := dbTx.Commit(txCtx); err != nil {
		return nil, wrapTxError("commit tx", err)
	}

	return result, nil
}

// ChooseRedemption converts a PRODUCT-prize win to cash or confirms the
// physical prize. The transition is exactly-once.
func (s *GameServiceImpl) ChooseRedemption(ctx context.Context, playerID, gameID uuid.UUID, choice string) (*domain.GameRecord, error) {
	var choseMoney bool
	switch strings.ToLower(choice) {
	case "money":
		choseMoney = true
	case "product":
		choseMoney = false
	default:
		return nil, apperror.ErrInvalidChoice()
	}

	txCtx := ctx
	if _, has := ctx.Deadline(); !has && s.txTimeout > 0 {
		c, cancel := context.WithTimeout(ctx, s.txTimeout)
		txCtx = c
		defer cancel()
	}

	dbTx, err := s.transactor.Begin(txCtx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(txCtx) //nolint:errcheck

	game, err := s.gameRepo.GetByIDForUpdate(txCtx, dbTx, gameID)
	if err != nil {
		return nil, wrapTxError("lock game record", err)
	}
	if game == nil || game.PlayerID != playerID {
		return nil, apperror.ErrNotFound("game record")
	}

	if game.RedemptionChoice != domain.RedemptionUndecided {
		return nil, apperror.ErrAlreadyRedeemed()
	}
	if !game.IsRedeemable() {
		return nil, apperror.ErrNotEligible()
	}

	if choseMoney {
		if game.PrizeID == nil {
			return nil, apperror.InternalError(fmt.Errorf("winning game %s has no prize reference", game.ID))
		}
		prize, err := s.productRepo.GetPrizeByID(txCtx, *game.PrizeID)
		if err != nil {
			return nil, wrapTxError("fetch prize", err)
		}
		if prize == nil {
			return nil, apperror.ErrNotFound("prize")
		}

		wallet, err := s.walletRepo.GetByPlayerIDForUpdate(txCtx, dbTx, playerID)
		if err != nil {
			return nil, wrapTxError("lock wallet", err)
		}
		if wallet == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		if err := s.walletRepo.UpdateBalance(txCtx, dbTx, wallet.ID, wallet.Balance+prize.RedemptionValue); err != nil {
			return nil, wrapTxError("credit redemption", err)
		}

		product, err := s.productRepo.GetByIDForUpdate(txCtx, dbTx, game.ProductID)
		if err != nil {
			return nil, wrapTxError("lock product", err)
		}
		if product == nil {
			return nil, apperror.ErrNotFound("product")
		}
		player, err := s.playerRepo.GetByID(txCtx, playerID)
		if err != nil {
			return nil, wrapTxError("fetch player", err)
		}
		product.ApplyRedemptionPayout(prize.RedemptionValue, player != nil && player.IsInfluencer)
		if err := s.productRepo.UpdateStats(txCtx, dbTx, product); err != nil {
			return nil, wrapTxError("update product stats", err)
		}

		game.RedemptionChoice = domain.RedemptionChoseMoney
		game.AmountWon = prize.RedemptionValue
		game.PrizeType = domain.WonPrizeRedemption
	} else {
		game.RedemptionChoice = domain.RedemptionChoseProduct
		game.Status = domain.GameStatusPendingDelivery
	}

	if err := s.gameRepo.UpdateRedemption(txCtx, dbTx, game); err != nil {
		return nil, wrapTxError("update redemption", err)
	}

	if err := dbTx.Commit(txCtx); err != nil {
		return nil, wrapTxError("commit tx", err)
	}

	s.log.Info().
		Str("game_id", game.ID.String()).
		Str("player_id", playerID.String()).
		Str("choice", string(game.RedemptionChoice)).
		Int64("amount_won", game.AmountWon).
		Msg("redemption chosen")

	return game, nil
}

// GetGame returns one of the caller's game records.
func (s *GameServiceImpl) GetGame(ctx context.Context, playerID, gameID uuid.UUID) (*domain.GameRecord, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch game: %w", err))
	}
	if game == nil || game.PlayerID != playerID {
		return nil, apperror.ErrNotFound("game record")
	}
	return game, nil
}

// GetProductStats returns the public statistics of a product.
func (s *GameServiceImpl) GetProductStats(ctx context.Context, productID uuid.UUID) (*domain.ProductStats, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch product: %w", err))
	}
	if product == nil {
		return nil, apperror.ErrNotFound("product")
	}
	stats := product.Stats()
	return &stats, nil
}

// unmarshalCachedResult deserializes a cached play result.
func (s *GameServiceImpl) unmarshalCachedResult(data []byte) (*ports.PlayResult, error) {
	result := &ports.PlayResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached play: %w", err))
	}
	return result, nil
}

// wrapTxError preserves retryable conflicts and wraps everything else as a
// system error.
func wrapTxError(op string, err error) error {
	if isRetryableTxError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}

// isRetryableTxError reports whether err is a serialization failure, a
// deadlock, a lock timeout or a transaction deadline, all of which leave no
// partial state and are safe to retry.
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return true
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
