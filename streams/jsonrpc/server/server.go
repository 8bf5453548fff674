// Package server exposes any source.Source over JSON-RPC under the blend
// namespace, so a console can read pool data from another process.
package server

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
	"github.com/defistate/lending-console-go/streams/jsonrpc"
)

// Service is the RPC receiver. Each exported method becomes blend_<method>.
type Service struct {
	src source.Source
}

// NewService creates a Service reading from src.
func NewService(src source.Source) *Service {
	return &Service{src: src}
}

// notFoundError carries jsonrpc.ErrCodeNotFound to the client.
type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string  { return e.msg }
func (e *notFoundError) ErrorCode() int { return jsonrpc.ErrCodeNotFound }

var _ rpc.Error = (*notFoundError)(nil)

func wireError(err error) error {
	if errors.Is(err, source.ErrNotFound) {
		return &notFoundError{msg: err.Error()}
	}
	return err
}

func (s *Service) PoolMeta(ctx context.Context, id blend.PoolID) (blend.PoolMeta, error) {
	v, err := s.src.PoolMeta(ctx, id)
	return v, wireError(err)
}

func (s *Service) Pool(ctx context.Context, meta blend.PoolMeta) (blend.Pool, error) {
	v, err := s.src.Pool(ctx, meta)
	return v, wireError(err)
}

func (s *Service) Oracle(ctx context.Context, pool blend.Pool) (blend.Oracle, error) {
	v, err := s.src.Oracle(ctx, pool)
	return v, wireError(err)
}

func (s *Service) Backstop(ctx context.Context, version blend.Version) (blend.Backstop, error) {
	v, err := s.src.Backstop(ctx, version)
	return v, wireError(err)
}

func (s *Service) BackstopPool(ctx context.Context, meta blend.PoolMeta) (blend.BackstopPool, error) {
	v, err := s.src.BackstopPool(ctx, meta)
	return v, wireError(err)
}

// NewRPCServer returns an rpc.Server with a Service for src registered under
// the blend namespace. The server implements http.Handler.
func NewRPCServer(src source.Source) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(jsonrpc.Namespace, NewService(src)); err != nil {
		srv.Stop()
		return nil, err
	}
	return srv, nil
}
