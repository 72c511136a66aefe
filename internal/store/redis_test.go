package store

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_SetNX(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	ctx := context.Background()

	mock.ExpectSetNX("lock:a", "token-1", time.Minute).SetVal(true)

	ok, err := s.SetNX(ctx, "lock:a", "token-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_CompareAndDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	ctx := context.Background()

	mock.ExpectEval(compareAndDeleteScript, []string{"lock:a"}, "token-1").SetVal(int64(1))
	ok, err := s.CompareAndDelete(ctx, "lock:a", "token-1")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectEval(compareAndDeleteScript, []string{"lock:a"}, "token-2").SetVal(int64(0))
	ok, err = s.CompareAndDelete(ctx, "lock:a", "token-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GetInt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	ctx := context.Background()

	mock.ExpectGet("inv:x").RedisNil()
	_, found, err := s.GetInt(ctx, "inv:x")
	require.NoError(t, err)
	assert.False(t, found)

	mock.ExpectGet("inv:x").SetVal("7")
	v, found, err := s.GetInt(ctx, "inv:x")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), v)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_DecrIfAtLeast(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	ctx := context.Background()

	mock.ExpectEval(decrIfAtLeastScript, []string{"inv:x"}, int64(2)).SetVal(int64(1))
	ok, found, err := s.DecrIfAtLeast(ctx, "inv:x", 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ok)

	mock.ExpectEval(decrIfAtLeastScript, []string{"inv:x"}, int64(2)).SetVal(int64(0))
	ok, found, err = s.DecrIfAtLeast(ctx, "inv:x", 2)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, ok)

	mock.ExpectEval(decrIfAtLeastScript, []string{"inv:x"}, int64(2)).SetVal(int64(-1))
	_, found, err = s.DecrIfAtLeast(ctx, "inv:x", 2)
	require.NoError(t, err)
	assert.False(t, found, "missing entry reports not found, never zero")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_IncrClamp(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := NewRedis(client)
	ctx := context.Background()

	mock.ExpectEval(incrClampScript, []string{"inv:x"}, int64(1), int64(5)).SetVal(int64(1))
	require.NoError(t, s.IncrClamp(ctx, "inv:x", 1, 5))

	assert.NoError(t, mock.ExpectationsWereMet())
}
