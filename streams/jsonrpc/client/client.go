package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
	"github.com/defistate/lending-console-go/streams/jsonrpc"
)

const defaultCallTimeout = 10 * time.Second

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DecoderFunc turns the raw result of a query into its typed value.
type DecoderFunc func(query string, data json.RawMessage) (any, error)

// Config holds the configuration for the client.
type Config struct {
	URL         string
	Logger      Logger
	CallTimeout time.Duration // defaults to 10s
	Decoder     DecoderFunc   // defaults to stellar.DecodeResultJSON
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.CallTimeout < 0 {
		return errors.New("config: CallTimeout must not be negative")
	}
	return nil
}

// Client is a source.Source backed by a JSON-RPC endpoint serving the
// blend namespace.
type Client struct {
	rpc         *rpc.Client
	decoder     DecoderFunc
	callTimeout time.Duration
	logger      Logger
}

var _ source.Source = (*Client)(nil)

// Dial connects to cfg.URL (http, ws or ipc) and returns a Client.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Logger.Info("Connecting to RPC server", "url", cfg.URL)
	rpcClient, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC server: %w", err)
	}
	return New(rpcClient, cfg)
}

// New wraps an already connected rpc client. cfg.URL is only used for logging
// and may be anything non-empty.
func New(rpcClient *rpc.Client, cfg Config) (*Client, error) {
	if rpcClient == nil {
		return nil, errors.New("rpc client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Decoder == nil {
		cfg.Decoder = stellar.DecodeResultJSON
	}
	return &Client{
		rpc:         rpcClient,
		decoder:     cfg.Decoder,
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) PoolMeta(ctx context.Context, id blend.PoolID) (blend.PoolMeta, error) {
	return call[blend.PoolMeta](ctx, c, source.QueryPoolMeta, jsonrpc.MethodPoolMeta, id)
}

func (c *Client) Pool(ctx context.Context, meta blend.PoolMeta) (blend.Pool, error) {
	return call[blend.Pool](ctx, c, source.QueryPool, jsonrpc.MethodPool, meta)
}

func (c *Client) Oracle(ctx context.Context, pool blend.Pool) (blend.Oracle, error) {
	return call[blend.Oracle](ctx, c, source.QueryOracle, jsonrpc.MethodOracle, pool)
}

func (c *Client) Backstop(ctx context.Context, version blend.Version) (blend.Backstop, error) {
	return call[blend.Backstop](ctx, c, source.QueryBackstop, jsonrpc.MethodBackstop, version)
}

func (c *Client) BackstopPool(ctx context.Context, meta blend.PoolMeta) (blend.BackstopPool, error) {
	return call[blend.BackstopPool](ctx, c, source.QueryBackstopPool, jsonrpc.MethodBackstopPool, meta)
}

// call performs one request and decodes its result with the configured decoder.
func call[T any](ctx context.Context, c *Client, query, method string, args ...any) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, method, args...); err != nil {
		c.logger.Debug("RPC call failed", "method", method, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return zero, mapError(err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return zero, fmt.Errorf("%w: empty %s result", source.ErrNotFound, query)
	}

	typedData, err := c.decoder(query, raw)
	if err != nil {
		c.logger.Error("Failed to decode RPC result", "method", method, "error", err)
		return zero, fmt.Errorf("decode %s: %w", query, err)
	}
	v, ok := typedData.(T)
	if !ok {
		return zero, fmt.Errorf("decode %s: unexpected type %T", query, typedData)
	}

	c.logger.Debug("RPC call", "method", method, "duration_ms", time.Since(start).Milliseconds())
	return v, nil
}

// mapError translates the not-found error code into source.ErrNotFound.
func mapError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == jsonrpc.ErrCodeNotFound {
		return fmt.Errorf("%w: %s", source.ErrNotFound, rpcErr.Error())
	}
	return err
}
