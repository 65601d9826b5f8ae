package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsheet/internal/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, 1, Session{Step: StepCategory, Currency: core.EUR}))
	s, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, core.EUR, s.Currency)

	_, err = m.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound, "sessions are per user")

	require.NoError(t, m.Delete(ctx, 1))
	require.NoError(t, m.Delete(ctx, 1))
	_, err = m.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsInit(t *testing.T) {
	assert.True(t, Session{Step: StepAmount, Category: "init"}.IsInit())
	assert.False(t, Session{Step: StepAmount, Category: "food"}.IsInit())
	assert.False(t, Session{Step: StepCategory, Category: "init"}.IsInit())
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := NewRedisWithClient(db, time.Hour)

	t.Run("put stores json with ttl", func(t *testing.T) {
		mock.ExpectSet("finsheet:session:42", []byte(`{"step":"category","currency":"usd"}`), time.Hour).SetVal("OK")
		require.NoError(t, store.Put(ctx, 42, Session{Step: StepCategory, Currency: core.USD}))
	})

	t.Run("get decodes session", func(t *testing.T) {
		mock.ExpectGet("finsheet:session:42").SetVal(`{"step":"amount","currency":"usd","category":"food"}`)
		s, err := store.Get(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, Session{Step: StepAmount, Currency: core.USD, Category: "food"}, s)
	})

	t.Run("missing key is not found", func(t *testing.T) {
		mock.ExpectGet("finsheet:session:7").RedisNil()
		_, err := store.Get(ctx, 7)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("redis errors propagate", func(t *testing.T) {
		mock.ExpectGet("finsheet:session:8").SetErr(errors.New("connection refused"))
		_, err := store.Get(ctx, 8)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete removes key", func(t *testing.T) {
		mock.ExpectDel("finsheet:session:42").SetVal(1)
		require.NoError(t, store.Delete(ctx, 42))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
