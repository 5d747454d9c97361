package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// pacedClient is the HTTP side shared by the REST feeds: one timeout-bound
// client, a request rate limiter and a retry budget.
type pacedClient struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries uint64
	UserAgent  string
}

func newPacedClient(proxy string, timeout time.Duration, requestsPerSec float64, maxRetries uint64) pacedClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if requestsPerSec == 0 {
		requestsPerSec = 10
	}
	transport := &http.Transport{}
	if proxy != "" {
		if u, err := url.Parse(proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return pacedClient{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), int(requestsPerSec)+1),
		MaxRetries: maxRetries,
	}
}

// HTTPStatusError represents a non-200 response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.StatusCode, e.Body)
}

// get performs a paced GET, retrying transient failures (network errors,
// 429 and 5xx) at most MaxRetries times.
func (c pacedClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		resp, err := c.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(b)}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.Client.Timeout
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, err
	}
	return body, nil
}
