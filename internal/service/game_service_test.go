package service

import (
	"context"
	"encoding/json"
	"testing"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/internal/core/ports/mocks"
	"prize-scratch-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type gameTestDeps struct {
	svc          *GameServiceImpl
	playerRepo   *mocks.MockPlayerRepository
	walletRepo   *mocks.MockWalletRepository
	productRepo  *mocks.MockProductRepository
	gameRepo     *mocks.MockGameRepository
	idempRepo    *mocks.MockIdempotencyRepository
	idempCache   *mocks.MockIdempotencyCache
	licenseMeter *mocks.MockLicenseMeter
	transactor   *mocks.MockDBTransactor
	draws        *mocks.MockDrawSource
	ctrl         *gomock.Controller
}

func setupGameService(t *testing.T) *gameTestDeps {
	ctrl := gomock.NewController(t)
	d := &gameTestDeps{
		playerRepo:   mocks.NewMockPlayerRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		productRepo:  mocks.NewMockProductRepository(ctrl),
		gameRepo:     mocks.NewMockGameRepository(ctrl),
		idempRepo:    mocks.NewMockIdempotencyRepository(ctrl),
		idempCache:   mocks.NewMockIdempotencyCache(ctrl),
		licenseMeter: mocks.NewMockLicenseMeter(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		draws:        mocks.NewMockDrawSource(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewGameService(
		d.playerRepo, d.walletRepo, d.productRepo, d.gameRepo,
		d.idempRepo, d.idempCache, d.licenseMeter, d.transactor,
		NewOutcomeResolver(DefaultBoostPolicy()), d.draws,
		0, // no tx timeout in unit tests so contexts match exactly
		zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func activeProduct(id uuid.UUID, price int64) *domain.ScratchCardProduct {
	return &domain.ScratchCardProduct{
		ID:         id,
		Name:       "Lucky Seven",
		Price:      price,
		TargetRTP:  85,
		CurrentRTP: 85,
		IsActive:   true,
	}
}

func activePlayer(id uuid.UUID) *domain.Player {
	return &domain.Player{ID: id, Username: "alice", Status: domain.PlayerStatusActive}
}

// ==================== PlayScratchCard Tests ====================

func TestGameService_PlayScratchCard_MoneyWin(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	player := activePlayer(playerID)
	product := activeProduct(productID, 10_000)
	prize := domain.Prize{
		ID:          uuid.New(),
		ProductID:   productID,
		Type:        domain.PrizeTypeMoney,
		Value:       50_000,
		Probability: 10,
		IsActive:    true,
	}

	req := ports.PlayRequest{PlayerID: playerID, ProductID: productID, Reference: "PLAY-001"}
	idempKey := domain.BuildPlayIdempotencyKey(playerID, "PLAY-001")

	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(player, nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 100_000,
	}, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	// Draw inside the first probability band: guaranteed win.
	d.draws.EXPECT().Draw().Return(3.0)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 100_000,
	}, nil)
	d.productRepo.EXPECT().GetByIDForUpdate(ctx, tx, productID).Return(product, nil)
	d.productRepo.EXPECT().ListActivePrizes(ctx, productID).Return([]domain.Prize{prize}, nil)
	// 100_000 - 10_000 + 50_000
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(140_000)).Return(nil)
	d.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.playerRepo.EXPECT().IncrementCounters(ctx, tx, playerID, true).Return(nil)
	d.productRepo.EXPECT().UpdateStats(ctx, tx, product).Return(nil)
	d.licenseMeter.EXPECT().ConsumeCreditsAndAddEarnings(ctx, tx, int64(10_000), playerID, productID).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idempCache.EXPECT().Set(ctx, idempKey, gomock.Any(), playIdempotencyTTL).Return(nil)

	result, err := d.svc.PlayScratchCard(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Game.IsWinner)
	assert.Equal(t, int64(50_000), result.Game.AmountWon)
	assert.Equal(t, domain.WonPrizeMoney, result.Game.PrizeType)
	assert.Equal(t, domain.RedemptionUndecided, result.Game.RedemptionChoice)
	assert.Equal(t, int64(140_000), result.Balance)
	// Product statistics folded in (one non-influencer play, 10k in, 50k out).
	assert.Equal(t, int64(10_000), product.TotalRevenue)
	assert.Equal(t, int64(50_000), product.TotalPayouts)
	assert.Equal(t, int64(1), product.TotalGamesPlayed)
	assert.InDelta(t, 500.0, product.CurrentRTP, 1e-9)
}

func TestGameService_PlayScratchCard_Loss(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	product := activeProduct(productID, 10_000)
	prize := domain.Prize{
		ID: uuid.New(), Type: domain.PrizeTypeMoney, Value: 50_000, Probability: 10, IsActive: true,
	}

	req := ports.PlayRequest{PlayerID: playerID, ProductID: productID}

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 50_000,
	}, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	// Draw past the whole prize list: guaranteed loss.
	d.draws.EXPECT().Draw().Return(99.0)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 50_000,
	}, nil)
	d.productRepo.EXPECT().GetByIDForUpdate(ctx, tx, productID).Return(product, nil)
	d.productRepo.EXPECT().ListActivePrizes(ctx, productID).Return([]domain.Prize{prize}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(40_000)).Return(nil)
	d.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.playerRepo.EXPECT().IncrementCounters(ctx, tx, playerID, false).Return(nil)
	d.productRepo.EXPECT().UpdateStats(ctx, tx, product).Return(nil)
	d.licenseMeter.EXPECT().ConsumeCreditsAndAddEarnings(ctx, tx, int64(10_000), playerID, productID).Return(nil)

	result, err := d.svc.PlayScratchCard(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Game.IsWinner)
	assert.Equal(t, int64(0), result.Game.AmountWon)
	assert.Equal(t, domain.WonPrizeNone, result.Game.PrizeType)
	assert.Nil(t, result.Game.PrizeID)
	assert.Equal(t, int64(40_000), result.Balance)
}

func TestGameService_PlayScratchCard_ProductPrizeWin(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	product := activeProduct(productID, 10_000)
	prize := domain.Prize{
		ID:              uuid.New(),
		Type:            domain.PrizeTypeProduct,
		ProductName:     "Bluetooth Speaker",
		RedemptionValue: 80_000,
		Probability:     10,
		IsActive:        true,
	}

	req := ports.PlayRequest{PlayerID: playerID, ProductID: productID}

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 50_000,
	}, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	d.draws.EXPECT().Draw().Return(3.0)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 50_000,
	}, nil)
	d.productRepo.EXPECT().GetByIDForUpdate(ctx, tx, productID).Return(product, nil)
	d.productRepo.EXPECT().ListActivePrizes(ctx, productID).Return([]domain.Prize{prize}, nil)
	// PRODUCT wins pay nothing until redeemed: only the stake moves.
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(40_000)).Return(nil)
	d.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.playerRepo.EXPECT().IncrementCounters(ctx, tx, playerID, true).Return(nil)
	d.productRepo.EXPECT().UpdateStats(ctx, tx, product).Return(nil)
	d.licenseMeter.EXPECT().ConsumeCreditsAndAddEarnings(ctx, tx, int64(10_000), playerID, productID).Return(nil)

	result, err := d.svc.PlayScratchCard(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Game.IsWinner)
	assert.Equal(t, int64(0), result.Game.AmountWon)
	assert.Equal(t, domain.WonPrizeProduct, result.Game.PrizeType)
	require.NotNil(t, result.Game.PrizeID)
	assert.Equal(t, prize.ID, *result.Game.PrizeID)
	assert.True(t, result.Game.IsRedeemable())
	assert.Equal(t, int64(40_000), result.Balance)
	assert.Equal(t, int64(0), product.TotalPayouts)
}

func TestGameService_PlayScratchCard_InsufficientFunds(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(activeProduct(productID, 10_000), nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: uuid.New(), PlayerID: playerID, Balance: 9_999,
	}, nil)

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{PlayerID: playerID, ProductID: productID})
	assert.Nil(t, result)
	assertAppError(t, err, "GAME_001")
}

func TestGameService_PlayScratchCard_ProductInactive(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()

	product := activeProduct(productID, 10_000)
	product.IsActive = false

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{PlayerID: playerID, ProductID: productID})
	assert.Nil(t, result)
	assertAppError(t, err, "GAME_002")
}

func TestGameService_PlayScratchCard_LicenseExhausted(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(activeProduct(productID, 10_000), nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: uuid.New(), PlayerID: playerID, Balance: 100_000,
	}, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(apperror.ErrLicenseUnavailable())

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{PlayerID: playerID, ProductID: productID})
	assert.Nil(t, result)
	assertAppError(t, err, "LIC_001")
}

func TestGameService_PlayScratchCard_LicenseFailureRollsBack(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	product := activeProduct(productID, 10_000)

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 100_000,
	}, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	d.draws.EXPECT().Draw().Return(99.0)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 100_000,
	}, nil)
	d.productRepo.EXPECT().GetByIDForUpdate(ctx, tx, productID).Return(product, nil)
	d.productRepo.EXPECT().ListActivePrizes(ctx, productID).Return(nil, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(90_000)).Return(nil)
	d.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.playerRepo.EXPECT().IncrementCounters(ctx, tx, playerID, false).Return(nil)
	d.productRepo.EXPECT().UpdateStats(ctx, tx, product).Return(nil)
	// The in-transaction re-check fires: a concurrent play drained the pool.
	d.licenseMeter.EXPECT().ConsumeCreditsAndAddEarnings(ctx, tx, int64(10_000), playerID, productID).
		Return(apperror.ErrLicenseUnavailable())

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{PlayerID: playerID, ProductID: productID})
	assert.Nil(t, result)
	assertAppError(t, err, "LIC_001")
}

func TestGameService_PlayScratchCard_IdempotentRedisHit(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	gameID := uuid.New()

	cached := &ports.PlayResult{
		Game:    &domain.GameRecord{ID: gameID, PlayerID: playerID, IsWinner: true, AmountWon: 50_000},
		Balance: 140_000,
	}
	cachedJSON, _ := json.Marshal(cached)

	idempKey := domain.BuildPlayIdempotencyKey(playerID, "PLAY-CACHED")
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(cachedJSON, nil)

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{
		PlayerID: playerID, ProductID: uuid.New(), Reference: "PLAY-CACHED",
	})
	require.NoError(t, err)
	assert.Equal(t, gameID, result.Game.ID)
	assert.Equal(t, int64(140_000), result.Balance)
}

func TestGameService_PlayScratchCard_RetriesOnConflictWithPinnedDraw(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	product := activeProduct(productID, 10_000)
	wallet := &domain.Wallet{ID: walletID, PlayerID: playerID, Balance: 50_000}

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(wallet, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	// The draw is pinned: one call, reused across both attempts.
	d.draws.EXPECT().Draw().Return(99.0).Times(1)

	deadlock := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}

	// First attempt deadlocks on the wallet lock.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(nil, deadlock)

	// Second attempt succeeds.
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(gomock.Any(), tx, playerID).Return(wallet, nil)
	d.productRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, productID).Return(product, nil)
	d.productRepo.EXPECT().ListActivePrizes(gomock.Any(), productID).Return(nil, nil)
	d.walletRepo.EXPECT().UpdateBalance(gomock.Any(), tx, walletID, int64(40_000)).Return(nil)
	d.gameRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.playerRepo.EXPECT().IncrementCounters(gomock.Any(), tx, playerID, false).Return(nil)
	d.productRepo.EXPECT().UpdateStats(gomock.Any(), tx, product).Return(nil)
	d.licenseMeter.EXPECT().ConsumeCreditsAndAddEarnings(gomock.Any(), tx, int64(10_000), playerID, productID).Return(nil)

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{PlayerID: playerID, ProductID: productID})
	require.NoError(t, err)
	assert.False(t, result.Game.IsWinner)
	assert.Equal(t, int64(40_000), result.Balance)
}

func TestGameService_PlayScratchCard_ConflictExhaustsRetries(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	tx := &mockTx{}

	product := activeProduct(productID, 10_000)

	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(&domain.Wallet{
		ID: uuid.New(), PlayerID: playerID, Balance: 50_000,
	}, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	d.draws.EXPECT().Draw().Return(99.0).Times(1)

	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(maxPlayAttempts)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(gomock.Any(), tx, playerID).
		Return(nil, serialization).Times(maxPlayAttempts)

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{PlayerID: playerID, ProductID: productID})
	assert.Nil(t, result)
	assertAppError(t, err, "CON_001")
}

func TestGameService_PlayScratchCard_ConcurrentDuplicateReference(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	product := activeProduct(productID, 10_000)
	wallet := &domain.Wallet{ID: walletID, PlayerID: playerID, Balance: 50_000}
	idempKey := domain.BuildPlayIdempotencyKey(playerID, "PLAY-RACE")

	// Nothing committed yet when this request starts.
	d.idempCache.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(nil, nil)
	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().GetByID(ctx, productID).Return(product, nil)
	d.walletRepo.EXPECT().GetByPlayerID(ctx, playerID).Return(wallet, nil)
	d.licenseMeter.EXPECT().HasEnoughCredits(ctx, int64(10_000)).Return(nil)
	d.draws.EXPECT().Draw().Return(99.0)

	// The transaction runs to the idempotency log, where a concurrent
	// request with the same reference has already committed.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(wallet, nil)
	d.productRepo.EXPECT().GetByIDForUpdate(ctx, tx, productID).Return(product, nil)
	d.productRepo.EXPECT().ListActivePrizes(ctx, productID).Return(nil, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(40_000)).Return(nil)
	d.gameRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.playerRepo.EXPECT().IncrementCounters(ctx, tx, playerID, false).Return(nil)
	d.productRepo.EXPECT().UpdateStats(ctx, tx, product).Return(nil)
	d.licenseMeter.EXPECT().ConsumeCreditsAndAddEarnings(ctx, tx, int64(10_000), playerID, productID).Return(nil)
	d.idempRepo.EXPECT().Create(ctx, tx, gomock.Any()).
		Return(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	// The stored result of the winning request is served instead.
	winnerGameID := uuid.New()
	winnerJSON, _ := json.Marshal(&ports.PlayResult{
		Game:    &domain.GameRecord{ID: winnerGameID, PlayerID: playerID, AmountWon: 0},
		Balance: 40_000,
	})
	d.idempRepo.EXPECT().Get(ctx, idempKey).Return(&domain.PlayIdempotencyLog{
		Key:          idempKey,
		GameID:       winnerGameID,
		ResponseJSON: winnerJSON,
	}, nil)

	result, err := d.svc.PlayScratchCard(ctx, ports.PlayRequest{
		PlayerID: playerID, ProductID: productID, Reference: "PLAY-RACE",
	})
	require.NoError(t, err)
	assert.Equal(t, winnerGameID, result.Game.ID)
	assert.Equal(t, int64(40_000), result.Balance)
}

// ==================== ChooseRedemption Tests ====================

func redeemableGame(playerID, productID, prizeID uuid.UUID) *domain.GameRecord {
	return &domain.GameRecord{
		ID:               uuid.New(),
		PlayerID:         playerID,
		ProductID:        productID,
		PrizeID:          &prizeID,
		IsWinner:         true,
		PrizeType:        domain.WonPrizeProduct,
		RedemptionChoice: domain.RedemptionUndecided,
		Status:           domain.GameStatusCompleted,
	}
}

func TestGameService_ChooseRedemption_Money(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	productID := uuid.New()
	prizeID := uuid.New()
	walletID := uuid.New()
	tx := &mockTx{}

	game := redeemableGame(playerID, productID, prizeID)
	product := activeProduct(productID, 10_000)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, game.ID).Return(game, nil)
	d.productRepo.EXPECT().GetPrizeByID(ctx, prizeID).Return(&domain.Prize{
		ID: prizeID, Type: domain.PrizeTypeProduct, ProductName: "Bluetooth Speaker", RedemptionValue: 80_000,
	}, nil)
	d.walletRepo.EXPECT().GetByPlayerIDForUpdate(ctx, tx, playerID).Return(&domain.Wallet{
		ID: walletID, PlayerID: playerID, Balance: 20_000,
	}, nil)
	d.walletRepo.EXPECT().UpdateBalance(ctx, tx, walletID, int64(100_000)).Return(nil)
	d.productRepo.EXPECT().GetByIDForUpdate(ctx, tx, productID).Return(product, nil)
	d.playerRepo.EXPECT().GetByID(ctx, playerID).Return(activePlayer(playerID), nil)
	d.productRepo.EXPECT().UpdateStats(ctx, tx, product).Return(nil)
	d.gameRepo.EXPECT().UpdateRedemption(ctx, tx, game).Return(nil)

	updated, err := d.svc.ChooseRedemption(ctx, playerID, game.ID, "money")
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionChoseMoney, updated.RedemptionChoice)
	assert.Equal(t, domain.WonPrizeRedemption, updated.PrizeType)
	assert.Equal(t, int64(80_000), updated.AmountWon)
	assert.Equal(t, int64(80_000), product.TotalPayouts)
}

func TestGameService_ChooseRedemption_Product(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	tx := &mockTx{}

	game := redeemableGame(playerID, uuid.New(), uuid.New())

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, game.ID).Return(game, nil)
	d.gameRepo.EXPECT().UpdateRedemption(ctx, tx, game).Return(nil)

	updated, err := d.svc.ChooseRedemption(ctx, playerID, game.ID, "product")
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionChoseProduct, updated.RedemptionChoice)
	assert.Equal(t, domain.GameStatusPendingDelivery, updated.Status)
	assert.Equal(t, int64(0), updated.AmountWon)
}

func TestGameService_ChooseRedemption_AlreadyRedeemed(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	tx := &mockTx{}

	game := redeemableGame(playerID, uuid.New(), uuid.New())
	game.RedemptionChoice = domain.RedemptionChoseMoney
	game.PrizeType = domain.WonPrizeRedemption

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, game.ID).Return(game, nil)

	updated, err := d.svc.ChooseRedemption(ctx, playerID, game.ID, "money")
	assert.Nil(t, updated)
	assertAppError(t, err, "GAME_005")
}

func TestGameService_ChooseRedemption_MoneyWinNotEligible(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	tx := &mockTx{}

	prizeID := uuid.New()
	game := &domain.GameRecord{
		ID:               uuid.New(),
		PlayerID:         playerID,
		PrizeID:          &prizeID,
		IsWinner:         true,
		AmountWon:        50_000,
		PrizeType:        domain.WonPrizeMoney,
		RedemptionChoice: domain.RedemptionUndecided,
		Status:           domain.GameStatusCompleted,
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, game.ID).Return(game, nil)

	updated, err := d.svc.ChooseRedemption(ctx, playerID, game.ID, "money")
	assert.Nil(t, updated)
	assertAppError(t, err, "GAME_004")
}

func TestGameService_ChooseRedemption_WrongPlayer(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	game := redeemableGame(uuid.New(), uuid.New(), uuid.New())

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.gameRepo.EXPECT().GetByIDForUpdate(ctx, tx, game.ID).Return(game, nil)

	updated, err := d.svc.ChooseRedemption(ctx, uuid.New(), game.ID, "money")
	assert.Nil(t, updated)
	assertAppError(t, err, "GAME_003")
}

func TestGameService_ChooseRedemption_InvalidChoice(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	updated, err := d.svc.ChooseRedemption(context.Background(), uuid.New(), uuid.New(), "both")
	assert.Nil(t, updated)
	assertAppError(t, err, "GAME_006")
}

// ==================== Query Tests ====================

func TestGameService_GetGame_OwnershipEnforced(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	owner := uuid.New()
	game := &domain.GameRecord{ID: uuid.New(), PlayerID: owner}

	d.gameRepo.EXPECT().GetByID(ctx, game.ID).Return(game, nil).Times(2)

	got, err := d.svc.GetGame(ctx, owner, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, got.ID)

	got, err = d.svc.GetGame(ctx, uuid.New(), game.ID)
	assert.Nil(t, got)
	assertAppError(t, err, "GAME_003")
}

func TestGameService_GetProductStats(t *testing.T) {
	d := setupGameService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	product := activeProduct(uuid.New(), 10_000)
	product.TotalRevenue = 1_000_000
	product.TotalPayouts = 850_000
	product.TotalGamesPlayed = 100
	product.CurrentRTP = 85

	d.productRepo.EXPECT().GetByID(ctx, product.ID).Return(product, nil)

	stats, err := d.svc.GetProductStats(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, stats.ProductID)
	assert.Equal(t, int64(1_000_000), stats.TotalRevenue)
	assert.Equal(t, int64(850_000), stats.TotalPayouts)
	assert.InDelta(t, 85.0, stats.CurrentRTP, 1e-9)
}

// ==================== Helper ====================

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
