package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"` // Transient failure, safe for the caller to retry
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Game Play Business Logic (GAME) ----

func ErrInsufficientFunds() *AppError {
	return New("GAME_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrProductInactive() *AppError {
	return New("GAME_002", "Scratch card product is not active", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("GAME_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrNotEligible() *AppError {
	return New("GAME_004", "Game record is not eligible for redemption", http.StatusConflict)
}

func ErrAlreadyRedeemed() *AppError {
	return New("GAME_005", "Prize has already been redeemed", http.StatusConflict)
}

func ErrInvalidChoice() *AppError {
	return New("GAME_006", "Redemption choice must be 'money' or 'product'", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("GAME_007", "Invalid amount", http.StatusBadRequest)
}

func ErrDuplicatePlay() *AppError {
	return New("GAME_008", "Duplicate play reference", http.StatusConflict)
}

// ---- License Metering (LIC) ----

func ErrLicenseUnavailable() *AppError {
	return New("LIC_001", "License has insufficient credits or is inactive", http.StatusConflict)
}

// ---- Concurrency (CON) ----

// ErrConcurrencyConflict signals a serialization/lock conflict. The operation
// left no partial state and may be retried by the caller.
func ErrConcurrencyConflict(err error) *AppError {
	e := Wrap("CON_001", "Concurrent update conflict, please retry", http.StatusConflict, err)
	e.Retryable = true
	return e
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrPlayerSuspended() *AppError {
	return New("AUTH_004", "Player account is suspended", http.StatusForbidden)
}

// ---- Deposit Webhook Security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_002", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_003", "Nonce has already been used", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	e := Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
