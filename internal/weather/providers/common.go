package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/metno-forecast/norwegianweather/internal/weather"
)

// HTTPClientConfig bundles the HTTP client and its outbound limits.
type HTTPClientConfig struct {
	Client  *http.Client
	Timeout time.Duration
	Limiter *rate.Limiter
}

var (
	errNoHTTPClient = errors.New("http client not configured")
	errCircuitOpen  = errors.New("circuit breaker open")
)

// newCircuitBreaker trips after five consecutive failed requests and probes
// again after two minutes. Counts are never cleared on a timer while closed,
// only by a success, so failures spread over scheduled cycles still add up.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doRequest executes req exactly once through the rate limiter and the
// circuit breaker. Responses with a status accepted by ok are returned to the
// caller, which must close the body; every other status is an error.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
	ok func(status int) bool,
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	req = req.WithContext(ctx)
	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if !ok(resp.StatusCode) {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", weather.ErrUnexpectedStatus, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, isResp := result.(*http.Response)
	if !isResp {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// classify maps a request error onto the weather fetch failure classes.
func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, weather.ErrUnexpectedStatus),
		errors.Is(err, weather.ErrMalformedResponse),
		errors.Is(err, weather.ErrTransportTimeout),
		errors.Is(err, weather.ErrTransport):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", weather.ErrTransportTimeout, err)
	default:
		return fmt.Errorf("%w: %v", weather.ErrTransport, err)
	}
}
