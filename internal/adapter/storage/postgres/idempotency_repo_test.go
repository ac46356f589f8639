package postgres

import (
	"context"
	"testing"
	"time"

	"prize-scratch-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	log := &domain.PlayIdempotencyLog{
		Key:          "player:PLAY-001",
		GameID:       uuid.New(),
		ResponseJSON: []byte(`{"balance":140000}`),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO play_idempotency_logs").
		WithArgs(log.Key, log.GameID, log.ResponseJSON, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, log)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	gameID := uuid.New()
	created := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM play_idempotency_logs WHERE key").
		WithArgs("player:PLAY-001").
		WillReturnRows(pgxmock.NewRows([]string{"key", "game_id", "response_json", "created_at"}).
			AddRow("player:PLAY-001", gameID, []byte(`{"balance":140000}`), created))

	log, err := repo.Get(context.Background(), "player:PLAY-001")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, gameID, log.GameID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM play_idempotency_logs WHERE key").
		WithArgs("player:UNKNOWN").
		WillReturnRows(pgxmock.NewRows([]string{"key", "game_id", "response_json", "created_at"}))

	log, err := repo.Get(context.Background(), "player:UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, log)
	assert.NoError(t, mock.ExpectationsWereMet())
}
