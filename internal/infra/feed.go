package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// FeedWarehouse identifies where a fact happened, at the granularity the
// marketplace reports. Stock facts only carry a name.
type FeedWarehouse struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Oblast  string `json:"oblast"`
	Region  string `json:"region"`
}

// FeedFact is one normalized sale, order or stock row. Quantity is only set
// on stock rows; a sale or order row is one unit.
type FeedFact struct {
	VendorCode string        `json:"vendor_code"`
	Barcode    string        `json:"barcode"`
	Date       string        `json:"date"` // YYYY-MM-DD
	Warehouse  FeedWarehouse `json:"warehouse"`
	Quantity   int           `json:"quantity"`
}

// FeedBatch is the sidecar's answer for one company, marketplace and window.
type FeedBatch struct {
	Sales  []FeedFact `json:"sales"`
	Orders []FeedFact `json:"orders"`
	Stocks []FeedFact `json:"stocks"`
}

// ErrRateLimited is returned once every retry of a throttled call is spent.
var ErrRateLimited = errors.New("feed: rate limited")

// FeedClient pulls normalized marketplace facts from the feed sidecar, which
// owns each marketplace's auth, pagination and payload shape.
type FeedClient struct {
	baseURL       string
	httpClient    *http.Client
	maxRetries    int
	backoffFactor time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	jitter        func() time.Duration
}

// FeedClientConfig holds tunable parameters.
type FeedClientConfig struct {
	BaseURL       string
	MaxRetries    int           // retries after a 429 (default: 5)
	BackoffFactor time.Duration // base delay, doubled per attempt (default: 1s)
	Timeout       time.Duration // per request (default: 60s)
}

func NewFeedClient(cfg FeedClientConfig) *FeedClient {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &FeedClient{
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		maxRetries:    cfg.MaxRetries,
		backoffFactor: cfg.BackoffFactor,
		sleep:         sleepCtx,
		jitter:        func() time.Duration { return time.Duration(rand.Int63n(int64(time.Second))) },
	}
}

// Fetch returns the company's facts of one marketplace in [from, to].
// A 429 is retried after factor·2^attempt plus up to one second of jitter.
func (c *FeedClient) Fetch(ctx context.Context, companyID, marketplace string, from, to time.Time) (*FeedBatch, error) {
	endpoint := fmt.Sprintf("%s/v1/companies/%s/marketplaces/%s/facts?%s",
		c.baseURL, url.PathEscape(companyID), url.PathEscape(marketplace),
		url.Values{
			"date_from": {from.Format("2006-01-02")},
			"date_to":   {to.Format("2006-01-02")},
		}.Encode())

	for attempt := 0; ; attempt++ {
		batch, retry, err := c.fetchOnce(ctx, endpoint)
		if !retry {
			return batch, err
		}
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%s after %d attempts: %w", marketplace, attempt+1, ErrRateLimited)
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
}

func (c *FeedClient) backoff(attempt int) time.Duration {
	return c.backoffFactor*time.Duration(1<<attempt) + c.jitter()
}

// fetchOnce performs one request; retry is true only for a 429.
func (c *FeedClient) fetchOnce(ctx context.Context, endpoint string) (*FeedBatch, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("feed: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("feed: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("feed: sidecar returned %d", resp.StatusCode)
	}

	var batch FeedBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, false, fmt.Errorf("feed: decode response: %w", err)
	}
	return &batch, false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
