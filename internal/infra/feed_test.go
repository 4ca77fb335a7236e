package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFeed(t *testing.T, h http.HandlerFunc, retries int) (*FeedClient, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewFeedClient(FeedClientConfig{BaseURL: srv.URL, MaxRetries: retries, BackoffFactor: 10 * time.Millisecond})
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	c.jitter = func() time.Duration { return 0 }
	return c, &slept
}

var (
	feedFrom = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	feedTo   = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
)

func TestFeedFetchDecodesBatch(t *testing.T) {
	c, _ := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/companies/c1/marketplaces/ozon/facts", r.URL.Path)
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("date_from"))
		assert.Equal(t, "2024-05-31", r.URL.Query().Get("date_to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sales":[{"vendor_code":"A","barcode":"1","date":"2024-05-02","warehouse":{"name":"Kazan"}}],
			"stocks":[{"vendor_code":"A","barcode":"1","date":"2024-05-31","warehouse":{"name":"Kazan"},"quantity":7}]}`))
	}, 2)

	batch, err := c.Fetch(context.Background(), "c1", "ozon", feedFrom, feedTo)
	require.NoError(t, err)
	require.Len(t, batch.Sales, 1)
	assert.Equal(t, "Kazan", batch.Sales[0].Warehouse.Name)
	assert.Empty(t, batch.Orders)
	require.Len(t, batch.Stocks, 1)
	assert.Equal(t, 7, batch.Stocks[0].Quantity)
}

func TestFeedFetchRetriesRateLimit(t *testing.T) {
	calls := 0
	c, slept := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, 5)

	_, err := c.Fetch(context.Background(), "c1", "wildberries", feedFrom, feedTo)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
}

func TestFeedFetchGivesUpAfterRetries(t *testing.T) {
	calls := 0
	c, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}, 2)

	_, err := c.Fetch(context.Background(), "c1", "wildberries", feedFrom, feedTo)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, calls)
}

func TestFeedFetchServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	c, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}, 5)

	_, err := c.Fetch(context.Background(), "c1", "ozon", feedFrom, feedTo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, 1, calls)
}

func TestFeedFetchMalformedBody(t *testing.T) {
	c, _ := newTestFeed(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sales":`))
	}, 0)

	_, err := c.Fetch(context.Background(), "c1", "ozon", feedFrom, feedTo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
