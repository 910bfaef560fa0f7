package kalshi_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/quotelab/kalshi-avellaneda/internal/adapters/kalshi_auth"
	"github.com/quotelab/kalshi-avellaneda/internal/telemetry"
)

// Client is the signed Kalshi REST client shared by every strategy
// instance. A single limiter enforces a minimum interval between
// outbound calls, so concurrent strategies serialize through it instead
// of tripping the venue's rate limits.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *kalshi_auth.Signer
	limiter    *rate.Limiter
}

// NewClient builds a client throttled to one call per minInterval.
func NewClient(baseURL string, signer *kalshi_auth.Signer, minInterval time.Duration) *Client {
	if minInterval <= 0 {
		minInterval = 100 * time.Millisecond
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		signer:  signer,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.signer.SignRequest(req); err != nil {
		return nil, 0, fmt.Errorf("sign: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	telemetry.Metrics.GatewayLatency.Record(time.Since(start))
	telemetry.Debugf("kalshi_http: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	return respBody, resp.StatusCode, nil
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, int, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, int, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) ([]byte, int, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}
