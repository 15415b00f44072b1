// Package skinport is the upstream price source: a rate-limited client for the
// Skinport public items endpoint.
package skinport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iho/marketplace/internal/domain"
)

// Defaults mirror the public API limits.
const (
	DefaultBaseURL      = "https://api.skinport.com/v1"
	DefaultAppID        = 730
	DefaultCurrency     = "EUR"
	DefaultTimeout      = 10 * time.Second
	DefaultRateInterval = 5 * time.Minute
	DefaultRateBurst    = 8
	DefaultMaxRetries   = 2

	maxBodyBytes = 64 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	AppID        int
	Currency     string
	Timeout      time.Duration
	RateInterval time.Duration
	RateBurst    int
	MaxRetries   int
}

// Client implements usecase.PriceSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      int
	currency   string
	timeout    time.Duration
	limiter    *rate.Limiter
	maxRetries int
	retryWait  time.Duration
	logger     zerolog.Logger
	observe    func(tradable bool, outcome string, d time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetryWait sets the first backoff interval between attempts.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

// WithObserver registers a callback receiving the outcome and latency of every fetch.
func WithObserver(fn func(tradable bool, outcome string, d time.Duration)) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient creates a new Client. Zero config values take the defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AppID == 0 {
		cfg.AppID = DefaultAppID
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateInterval <= 0 {
		cfg.RateInterval = DefaultRateInterval
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	c := &Client{
		httpClient: cleanhttp.DefaultPooledClient(),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		currency:   cfg.Currency,
		timeout:    cfg.Timeout,
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RateBurst)/cfg.RateInterval.Seconds()), cfg.RateBurst),
		maxRetries: cfg.MaxRetries,
		retryWait:  500 * time.Millisecond,
		logger:     zerolog.Nop(),
		observe:    func(bool, string, time.Duration) {},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListItems fetches every listed item with its minimum price. Any failure is
// reported as domain.ErrUnavailable.
func (c *Client) ListItems(ctx context.Context, tradable bool) ([]domain.MarketItem, error) {
	start := time.Now()

	items, err := c.listItems(ctx, tradable)
	if err != nil {
		c.observe(tradable, "failed", time.Since(start))
		return nil, fmt.Errorf("%w: skinport items (tradable=%t): %w", domain.ErrUnavailable, tradable, err)
	}

	c.observe(tradable, "ok", time.Since(start))
	return items, nil
}

func (c *Client) listItems(ctx context.Context, tradable bool) ([]domain.MarketItem, error) {
	endpoint := c.itemsURL(tradable)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxElapsedTime = 0

	var items []domain.MarketItem
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++

		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		fetched, err := c.fetch(ctx, endpoint)
		if err == nil {
			items = fetched
			return nil
		}

		var statusErr *statusError
		retryable := !errors.As(err, &statusErr) || statusErr.retryable()
		if !retryable || attempt > c.maxRetries || ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.logger.Warn().
			Err(err).
			Bool("tradable", tradable).
			Int("attempt", attempt).
			Msg("skinport request failed, retrying")

		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []domain.MarketItem{}
	}

	return items, nil
}

func (c *Client) itemsURL(tradable bool) string {
	q := url.Values{}
	q.Set("app_id", strconv.Itoa(c.appID))
	q.Set("currency", c.currency)
	q.Set("tradable", strconv.FormatBool(tradable))
	return c.baseURL + "/items?" + q.Encode()
}

// fetch decodes the upstream array straight into domain.MarketItem; prices stay
// decimal and a null min_price stays nil.
func (c *Client) fetch(ctx context.Context, endpoint string) ([]domain.MarketItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}

	var items []domain.MarketItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	return items, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable reports whether the status is worth another attempt.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}
