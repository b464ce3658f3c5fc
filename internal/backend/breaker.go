package backend

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

// BreakerClient wraps a Client with a circuit breaker. Only transport
// failures trip the breaker; upstream-reported domain errors are healthy
// round trips and never count against it.
type BreakerClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
	logger  observability.Logger
}

// NewBreakerClient wraps inner with a circuit breaker.
func NewBreakerClient(inner Client, logger observability.Logger) *BreakerClient {
	if logger == nil {
		logger = observability.NopLogger()
	}

	bc := &BreakerClient{inner: inner, logger: logger}
	bc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				observability.String("breaker", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})
	return bc
}

type callResult struct {
	resp *Response
	err  error
}

func (b *BreakerClient) execute(call func() (*Response, error)) (*Response, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		resp, err := call()
		if err != nil && !isDomainError(err) {
			return nil, err
		}
		// Domain errors ride through as successes so the breaker only
		// tracks connectivity.
		return callResult{resp: resp, err: err}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, gwerror.BackendUnavailable().WithCause(err)
		}
		return nil, err
	}

	result := out.(callResult)
	return result.resp, result.err
}

func isDomainError(err error) bool {
	var gwErr *gwerror.Error
	return errors.As(err, &gwErr) && gwErr.Code != gwerror.CodeBackendUnavailable
}

// Get implements Client.
func (b *BreakerClient) Get(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return b.execute(func() (*Response, error) {
		return b.inner.Get(ctx, path, headers)
	})
}

// Post implements Client.
func (b *BreakerClient) Post(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error) {
	return b.execute(func() (*Response, error) {
		return b.inner.Post(ctx, path, body, headers)
	})
}

// Put implements Client.
func (b *BreakerClient) Put(ctx context.Context, path string, body []byte, headers map[string]string) (*Response, error) {
	return b.execute(func() (*Response, error) {
		return b.inner.Put(ctx, path, body, headers)
	})
}

// Delete implements Client.
func (b *BreakerClient) Delete(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return b.execute(func() (*Response, error) {
		return b.inner.Delete(ctx, path, headers)
	})
}
