package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
	"github.com/defistate/lending-console-go/source/mock"
	"github.com/defistate/lending-console-go/streams/jsonrpc"
)

func dial(t *testing.T) *rpc.Client {
	t.Helper()
	srv, err := NewRPCServer(mock.New())
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	c := rpc.DialInProc(srv)
	t.Cleanup(c.Close)
	return c
}

func TestService_Methods(t *testing.T) {
	ctx := context.Background()
	c := dial(t)

	var meta blend.PoolMeta
	require.NoError(t, c.CallContext(ctx, &meta, jsonrpc.MethodPoolMeta, stellar.StablePoolID))
	assert.Equal(t, "Stable Pool", meta.Name)
	assert.Equal(t, blend.V1, meta.Version)

	var backstop blend.Backstop
	require.NoError(t, c.CallContext(ctx, &backstop, jsonrpc.MethodBackstop, meta.Version))
	assert.Equal(t, stellar.Mainnet.Backstops[blend.V1], backstop.ID)

	var raw json.RawMessage
	require.NoError(t, c.CallContext(ctx, &raw, jsonrpc.MethodPool, meta))
	assert.Contains(t, string(raw), `"metadata"`)
}

func TestService_NotFoundCode(t *testing.T) {
	ctx := context.Background()
	c := dial(t)

	var meta blend.PoolMeta
	err := c.CallContext(ctx, &meta, jsonrpc.MethodBackstop, "v9")
	require.Error(t, err)

	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, jsonrpc.ErrCodeNotFound, rpcErr.ErrorCode())
}

func TestService_RejectsInvalidPoolID(t *testing.T) {
	ctx := context.Background()
	c := dial(t)

	var meta blend.PoolMeta
	err := c.CallContext(ctx, &meta, jsonrpc.MethodPoolMeta, "CBAD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestWireError(t *testing.T) {
	assert.NoError(t, wireError(nil))

	plain := errors.New("boom")
	assert.Same(t, plain, wireError(plain))

	var rpcErr rpc.Error
	require.True(t, errors.As(wireError(source.ErrNotFound), &rpcErr))
	assert.Equal(t, jsonrpc.ErrCodeNotFound, rpcErr.ErrorCode())
}
