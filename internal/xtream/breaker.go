package xtream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// Circuit breaker settings. A panel that keeps failing is left alone for
// breakerTimeout instead of being hit by every scheduled refresh.
const (
	breakerMaxHalfOpen  = 1
	breakerInterval     = 5 * time.Minute
	breakerTimeout      = 2 * time.Minute
	breakerMinRequests  = 5
	breakerFailureRatio = 0.6
)

// BreakerClient wraps a Client with a circuit breaker. It exposes the same
// calls; when the circuit is open they fail fast with ErrCircuitOpen.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	logger *slog.Logger
}

// NewBreakerClient wraps client in a breaker named after the source.
func NewBreakerClient(client *Client, name string, logger *slog.Logger) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "xtream-" + name,
		MaxRequests: breakerMaxHalfOpen,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// Caller cancellation says nothing about panel health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerClient{client: client, cb: cb, logger: logger}
}

// Authenticate calls Client.Authenticate through the breaker.
func (b *BreakerClient) Authenticate(ctx context.Context) (*AccountInfo, error) {
	return castResult[*AccountInfo](b.execute(func() (any, error) {
		return b.client.Authenticate(ctx)
	}))
}

// ListCategories calls Client.ListCategories through the breaker.
func (b *BreakerClient) ListCategories(ctx context.Context, kind catalog.Kind) ([]Category, error) {
	return castResult[[]Category](b.execute(func() (any, error) {
		return b.client.ListCategories(ctx, kind)
	}))
}

// OpenCatalog calls Client.OpenCatalog through the breaker. Only opening the
// stream counts towards the breaker; failures while reading the body do not.
func (b *BreakerClient) OpenCatalog(ctx context.Context, kind catalog.Kind) (io.ReadCloser, error) {
	return castResult[io.ReadCloser](b.execute(func() (any, error) {
		return b.client.OpenCatalog(ctx, kind)
	}))
}

// State reports the breaker state for status output.
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}

func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		return nil, err
	}

	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("xtream: unexpected breaker result type %T", result)
	}

	return typed, nil
}
