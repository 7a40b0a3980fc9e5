package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "@eventos")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "@eventos", []byte(`[]`)))
	v, ok, err := m.Get(ctx, "@eventos")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(v))

	require.NoError(t, m.Remove(ctx, "@eventos"))
	_, ok, err = m.Get(ctx, "@eventos")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing an absent key is fine
	assert.NoError(t, m.Remove(ctx, "@eventos"))
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()
	assert.ErrorIs(t, m.Set(ctx, "k", []byte("v")), context.Canceled)
	_, _, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
