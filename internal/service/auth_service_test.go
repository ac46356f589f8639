package service

import (
	"context"
	"testing"
	"time"

	"prize-scratch-engine/internal/core/domain"
	"prize-scratch-engine/internal/core/ports"
	"prize-scratch-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc        *AuthServiceImpl
	playerRepo *mocks.MockPlayerRepository
	walletRepo *mocks.MockWalletRepository
	hashSvc    *mocks.MockHashService
	tokenSvc   *mocks.MockTokenService
	ctrl       *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		playerRepo: mocks.NewMockPlayerRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		hashSvc:    mocks.NewMockHashService(ctrl),
		tokenSvc:   mocks.NewMockTokenService(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewAuthService(d.playerRepo, d.walletRepo, d.hashSvc, d.tokenSvc)
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.playerRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("s3cret-pass").Return("argon2id$hash", nil)
	d.playerRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, player *domain.Player) error {
			assert.Equal(t, "alice", player.Username)
			assert.Equal(t, "argon2id$hash", player.PasswordHash)
			assert.Equal(t, domain.PlayerStatusActive, player.Status)
			assert.False(t, player.IsInfluencer)
			return nil
		})
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, wallet *domain.Wallet) error {
			assert.Equal(t, int64(0), wallet.Balance)
			assert.Equal(t, "VND", wallet.Currency)
			return nil
		})

	resp, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.NotEqual(t, uuid.Nil, resp.PlayerID)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.playerRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Player{ID: uuid.New()}, nil)

	resp, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "pw"})
	assert.Nil(t, resp)
	assertAppError(t, err, "AUTH_002")
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	playerID := uuid.New()
	expiry := time.Now().Add(time.Hour)

	d.playerRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Player{
		ID: playerID, Username: "alice", PasswordHash: "hash", Status: domain.PlayerStatusActive,
	}, nil)
	d.hashSvc.EXPECT().Verify("pw", "hash").Return(true, nil)
	d.tokenSvc.EXPECT().Generate(playerID, "alice").Return("jwt-token", expiry, nil)

	token, exp, err := d.svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, expiry, exp)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.playerRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Player{
		ID: uuid.New(), PasswordHash: "hash", Status: domain.PlayerStatusActive,
	}, nil)
	d.hashSvc.EXPECT().Verify("wrong", "hash").Return(false, nil)

	_, _, err := d.svc.Login(ctx, "alice", "wrong")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.playerRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)

	_, _, err := d.svc.Login(ctx, "ghost", "pw")
	assertAppError(t, err, "AUTH_001")
}

func TestAuthService_Login_SuspendedPlayer(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.playerRepo.EXPECT().GetByUsername(ctx, "banned").Return(&domain.Player{
		ID: uuid.New(), PasswordHash: "hash", Status: domain.PlayerStatusSuspended,
	}, nil)
	d.hashSvc.EXPECT().Verify("pw", "hash").Return(true, nil)

	_, _, err := d.svc.Login(ctx, "banned", "pw")
	assertAppError(t, err, "AUTH_004")
}
