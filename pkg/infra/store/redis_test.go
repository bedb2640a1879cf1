package store_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/NeuralTrust/TrustSentinel/pkg/domain"
	"github.com/NeuralTrust/TrustSentinel/pkg/infra/store"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Get(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})

	mock.ExpectGet("alert:SEC_1").SetVal(`{"id":"SEC_1"}`)
	mock.ExpectGet("alert:SEC_2").RedisNil()
	mock.ExpectGet("alert:SEC_3").SetErr(errors.New("dial tcp: connection refused"))

	value, err := s.Get(context.Background(), "alert:SEC_1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"SEC_1"}`, string(value))

	_, err = s.Get(context.Background(), "alert:SEC_2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Get(context.Background(), "alert:SEC_3")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SetNX(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})
	value := []byte(`{"id":"SEC_1"}`)

	mock.ExpectSetNX("alert:SEC_1", value, 24*time.Hour).SetVal(true)
	mock.ExpectSetNX("alert:SEC_1", value, 24*time.Hour).SetVal(false)

	ok, err := s.SetNX(context.Background(), "alert:SEC_1", value, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(context.Background(), "alert:SEC_1", value, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SetExistsDelete(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})
	ctx := context.Background()

	mock.ExpectSet("bf:blocked:10.0.0.1", []byte("1"), time.Hour).SetVal("OK")
	mock.ExpectExists("bf:blocked:10.0.0.1").SetVal(1)
	mock.ExpectDel("bf:blocked:10.0.0.1", "bf:attempts:10.0.0.1").SetVal(2)
	mock.ExpectExists("bf:blocked:10.0.0.1").SetVal(0)

	require.NoError(t, s.Set(ctx, "bf:blocked:10.0.0.1", []byte("1"), time.Hour))

	blocked, err := s.Exists(ctx, "bf:blocked:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, s.Delete(ctx, "bf:blocked:10.0.0.1", "bf:attempts:10.0.0.1"))

	blocked, err = s.Exists(ctx, "bf:blocked:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_PushCapped(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})
	value := []byte(`{"id":"SEC_1"}`)

	mock.ExpectTxPipeline()
	mock.ExpectLPush("alerts:recent", value).SetVal(1)
	mock.ExpectLTrim("alerts:recent", 0, 99).SetVal("OK")
	mock.ExpectTxPipelineExec()

	err := s.PushCapped(context.Background(), "alerts:recent", value, 100)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Range(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})

	mock.ExpectLRange("alerts:recent", 0, 1).SetVal([]string{"b", "a"})
	mock.ExpectLRange("alerts:recent", 0, -1).SetVal([]string{"c", "b", "a"})

	two, err := s.Range(context.Background(), "alerts:recent", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("a")}, two)

	all, err := s.Range(context.Background(), "alerts:recent", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func increment(current []byte, found bool) ([]byte, error) {
	n := 0
	if found {
		n, _ = strconv.Atoi(string(current))
	}
	return []byte(strconv.Itoa(n + 1)), nil
}

func TestRedisStore_UpdateWritesInsideWatchedTransaction(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})

	mock.ExpectWatch("rapid:user-1")
	mock.ExpectGet("rapid:user-1").RedisNil()
	mock.ExpectTxPipeline()
	mock.ExpectSet("rapid:user-1", []byte("1"), time.Minute).SetVal("OK")
	mock.ExpectTxPipelineExec()

	next, err := s.Update(context.Background(), "rapid:user-1", time.Minute, increment)
	require.NoError(t, err)
	assert.Equal(t, "1", string(next))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_UpdateRetriesWhenWatchedKeyChanges(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})

	mock.ExpectWatch("rapid:user-1")
	mock.ExpectGet("rapid:user-1").SetVal("4")
	mock.ExpectTxPipeline()
	mock.ExpectSet("rapid:user-1", []byte("5"), time.Minute).SetVal("OK")
	mock.ExpectTxPipelineExec().SetErr(redis.TxFailedErr)

	// another writer got in first; the retry sees its value
	mock.ExpectWatch("rapid:user-1")
	mock.ExpectGet("rapid:user-1").SetVal("6")
	mock.ExpectTxPipeline()
	mock.ExpectSet("rapid:user-1", []byte("7"), time.Minute).SetVal("OK")
	mock.ExpectTxPipelineExec()

	next, err := s.Update(context.Background(), "rapid:user-1", time.Minute, increment)
	require.NoError(t, err)
	assert.Equal(t, "7", string(next))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_UpdateGivesUpAfterMaxRetries(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{MaxRetries: 2})

	for i := 0; i < 2; i++ {
		mock.ExpectWatch("bruteforce:10.0.0.1:attempts")
		mock.ExpectGet("bruteforce:10.0.0.1:attempts").SetVal("1")
		mock.ExpectTxPipeline()
		mock.ExpectSet("bruteforce:10.0.0.1:attempts", []byte("2"), time.Minute).SetVal("OK")
		mock.ExpectTxPipelineExec().SetErr(redis.TxFailedErr)
	}

	_, err := s.Update(context.Background(), "bruteforce:10.0.0.1:attempts", time.Minute, increment)
	assert.ErrorIs(t, err, store.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_UpdateDeletesOnNilResult(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})

	mock.ExpectWatch("session:abc")
	mock.ExpectGet("session:abc").SetVal("stale")
	mock.ExpectTxPipeline()
	mock.ExpectDel("session:abc").SetVal(1)
	mock.ExpectTxPipelineExec()

	next, err := s.Update(context.Background(), "session:abc", time.Minute, func(current []byte, found bool) ([]byte, error) {
		assert.True(t, found)
		assert.Equal(t, "stale", string(current))
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, next)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_UpdateFailures(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})
	ctx := context.Background()

	mock.ExpectWatch("rapid:user-1")
	mock.ExpectGet("rapid:user-1").SetErr(errors.New("connection refused"))

	_, err := s.Update(ctx, "rapid:user-1", time.Minute, increment)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	mock.ExpectWatch("rapid:user-1")
	mock.ExpectGet("rapid:user-1").SetVal("not json")

	decodeErr := errors.New("corrupt record")
	_, err = s.Update(ctx, "rapid:user-1", time.Minute, func([]byte, bool) ([]byte, error) {
		return nil, decodeErr
	})
	assert.ErrorIs(t, err, decodeErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_PushCappedWithoutCapacityStoresNothing(t *testing.T) {
	redisMock, mock := redismock.NewClientMock()
	s := store.NewRedisStore(redisMock, store.RedisOptions{})

	require.NoError(t, s.PushCapped(context.Background(), "alerts:recent", []byte("a"), 0))
	require.NoError(t, s.PushCapped(context.Background(), "alerts:recent", []byte("a"), -1))

	assert.NoError(t, mock.ExpectationsWereMet())
}
