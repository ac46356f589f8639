package ports

import (
	"context"
	"time"

	"prize-scratch-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SignatureService handles HMAC-SHA256 signing and verification for the
// deposit-confirmation webhook.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(playerID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	PlayerID uuid.UUID
	Username string
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// DrawSource produces the uniform random draw r in [0,100) used to resolve
// one play. Injected so outcomes are reproducible under test.
type DrawSource interface {
	Draw() float64
}

// LicenseMeter gates every paid play on the shared license credit pool.
type LicenseMeter interface {
	// HasEnoughCredits is the advisory pre-transaction check. The
	// authoritative re-check happens inside ConsumeCreditsAndAddEarnings.
	HasEnoughCredits(ctx context.Context, amount int64) error
	// ConsumeCreditsAndAddEarnings re-validates against the locked license
	// row, decrements credits, accrues GGR earnings and appends a usage
	// record. A returned error must abort the enclosing transaction.
	ConsumeCreditsAndAddEarnings(ctx context.Context, tx pgx.Tx, amount int64, playerID, productID uuid.UUID) error
}

// --- Service Ports (Business Logic) ---

// GameService is the transactional game-play core.
type GameService interface {
	PlayScratchCard(ctx context.Context, req PlayRequest) (*PlayResult, error)
	ChooseRedemption(ctx context.Context, playerID, gameID uuid.UUID, choice string) (*domain.GameRecord, error)
	GetGame(ctx context.Context, playerID, gameID uuid.UUID) (*domain.GameRecord, error)
	GetProductStats(ctx context.Context, productID uuid.UUID) (*domain.ProductStats, error)
}

// PlayRequest holds validated input for one play.
type PlayRequest struct {
	PlayerID  uuid.UUID
	ProductID uuid.UUID
	// Reference is an optional client-supplied idempotency reference.
	Reference string
}

// PlayResult is the outcome of one play with its prize summary.
type PlayResult struct {
	Game    *domain.GameRecord `json:"game"`
	Prize   *domain.Prize      `json:"prize,omitempty"`
	Balance int64              `json:"balance"`
}

// WalletService exposes balance reads and deposit-confirmation consumption.
type WalletService interface {
	GetBalance(ctx context.Context, playerID uuid.UUID) (int64, string, error)
	ConfirmDeposit(ctx context.Context, req DepositConfirmation) (*domain.DepositRecord, error)
}

// DepositConfirmation is the abstract "deposit confirmed" event consumed
// from the external payment provider.
type DepositConfirmation struct {
	PlayerID          uuid.UUID
	ProviderReference string
	Amount            int64
}

// AuthService defines player authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for player registration.
type RegisterRequest struct {
	Username string
	Password string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	PlayerID uuid.UUID
	Username string
}
