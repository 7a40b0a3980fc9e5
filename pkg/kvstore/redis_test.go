package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_GetAbsent(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "")

	mock.ExpectGet("@eventos").RedisNil()

	v, ok, err := store.Get(context.Background(), "@eventos")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GetWithPrefix(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "comunidad:")

	mock.ExpectGet("comunidad:@currentUser").SetVal(`{"id":"1","name":"ana","role":"user"}`)

	v, ok, err := store.Get(context.Background(), "@currentUser")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"id":"1","name":"ana","role":"user"}`, string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_SetAndRemove(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "")
	ctx := context.Background()

	mock.ExpectSet("@eventos", []byte(`[]`), 0).SetVal("OK")
	mock.ExpectDel("@eventos").SetVal(1)

	require.NoError(t, store.Set(ctx, "@eventos", []byte(`[]`)))
	require.NoError(t, store.Remove(ctx, "@eventos"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_ErrorsAreWrapped(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedis(db, "")
	boom := errors.New("connection refused")

	mock.ExpectGet("@eventos").SetErr(boom)

	_, _, err := store.Get(context.Background(), "@eventos")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "redis get @eventos")
}
