package minetur

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fuelmap-es/gasolineras-api/station"
)

// Error taxonomy for the upstream feed. Callers discriminate with errors.Is.
var (
	ErrTimeout    = errors.New("upstream request timed out")
	ErrConnection = errors.New("upstream connection failed")
	ErrHTTPStatus = errors.New("upstream returned unexpected status")
	ErrParse      = errors.New("upstream payload is not valid")
)

const (
	defaultMaxRetries     = 5
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// statusError carries the HTTP status code while unwrapping to ErrHTTPStatus.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %s", e.status) }
func (e *statusError) Unwrap() error { return ErrHTTPStatus }

// Client fetches the government fuel-price feed.
//
// The upstream is a single fixed, known endpoint whose certificate chain is
// broken, so TLS verification is disabled on this client's dedicated
// transport. That trust decision applies to this one host only.
type Client struct {
	url            string
	httpClient     *http.Client
	breaker        *gobreaker.CircuitBreaker
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewClient builds a client for the given endpoint. The timeout bounds each
// whole request including body read.
func NewClient(endpoint string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "minetur",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		url: endpoint,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		breaker:        cb,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
}

// FetchStations performs one GET against the feed and returns the parsed raw
// records. An absent or empty list field is a successful empty fetch, not an
// error; callers treat it as "nothing to sync".
func (c *Client) FetchStations(ctx context.Context) ([]station.Raw, error) {
	resp, err := c.get(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetworkErr(fmt.Errorf("read body: %w", err))
	}

	var envelope struct {
		Lista json.RawMessage `json:"ListaEESSPrecio"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrParse, err)
	}
	if len(envelope.Lista) == 0 || string(envelope.Lista) == "null" {
		return []station.Raw{}, nil
	}

	var records []station.Raw
	if err := json.Unmarshal(envelope.Lista, &records); err != nil {
		return nil, fmt.Errorf("%w: list field is not a list: %v", ErrParse, err)
	}
	return records, nil
}

// get executes the request with bounded retries, exponential backoff and a
// circuit breaker. Timeouts and 4xx statuses fail immediately; connection
// failures and 5xx statuses retry up to maxRetries.
func (c *Client) get(ctx context.Context) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if err := ctx.Err(); err != nil {
			return nil, classifyNetworkErr(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		// The government server rejects requests without browser-ish headers.
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/json")

		result, err := c.breaker.Execute(func() (interface{}, error) {
			resp, execErr := c.httpClient.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, &statusError{code: resp.StatusCode, status: resp.Status}
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrConnection)
		}
		if !retryable(err) {
			return nil, classifyNetworkErr(err)
		}

		lastErr = err
		if attempt >= c.maxRetries {
			return nil, classifyNetworkErr(lastErr)
		}

		delay := c.initialBackoff * time.Duration(math.Pow(2, float64(attempt)))
		if c.maxBackoff > 0 && delay > c.maxBackoff {
			delay = c.maxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, classifyNetworkErr(ctx.Err())
		case <-timer.C:
		}

		attempt++
	}
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return false
	}
	return true
}

func classifyNetworkErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrHTTPStatus):
		return fmt.Errorf("%w: %v", ErrHTTPStatus, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
