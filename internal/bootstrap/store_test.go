package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/config"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageMemory}}

	b, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.Redis)
	require.NoError(t, b.Store.Set(context.Background(), "k", []byte("v")))
	v, ok, err := b.Store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "etcd"}}
	_, err := Open(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
