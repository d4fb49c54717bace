package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := Open(context.Background(), Options{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestOpenReturnsClientWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	client, err := Open(context.Background(), Options{Addr: addr, PingTimeout: 200 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	require.NotNil(t, client)
	_ = client.Close()
}

func TestOpenRequiresAddress(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}
