//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"marketstock/internal/app"
	"marketstock/internal/config"
	"marketstock/internal/dto"
	"marketstock/internal/infra"
	"marketstock/internal/middleware"
	"marketstock/internal/model"
	"marketstock/internal/router"
	"marketstock/internal/worker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

const secret = "test-secret-key"

// ── Helpers ──────────────────────────────────────────────────────────────────

func token(t *testing.T, companyID, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
		CompanyID:        companyID,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, tok string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Suite setup ──────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	rdb    *redis.Client
	admin  string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("marketstock_test"),
		tcPostgres.WithUsername("marketstock"),
		tcPostgres.WithPassword("marketstock"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(context.Background()) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                 8000,
		Env:                  "test",
		WorkerPoolSize:       1,
		CORSAllowedOrigins:   []string{"*"},
		RateLimitPerMinute:   1000,
		DatabaseURL:          pgURL,
		RedisURL:             rdURL,
		JWTSecret:            secret,
		FeedBaseURL:          "http://localhost:9999", // unused
		JobMaxAttempts:       3,
		RecomputeLockTTL:     time.Minute,
		DemandSignal:         "sales",
		SupplierUpdatePolicy: "accumulate",
		StockoutFloorQty:     30,
		DefaultLastSaleDays:  30,
		DefaultNextSaleDays:  100,
	}

	// NewDatabase runs the migrations.
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	svc, err := app.Build(cfg, db, rdb)
	require.NoError(t, err)

	wg := worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
		Recompute: worker.NewRecomputeWorker(svc.Recompute, worker.NewRedisLocker(rdb), cfg.RecomputeLockTTL),
		Ingest:    worker.NewIngestWorker(svc.Ingestion),
	}, worker.PoolConfig{Size: cfg.WorkerPoolSize, MaxAttempts: cfg.JobMaxAttempts})
	t.Cleanup(func() { cancel(); wg.Wait() })

	srv := httptest.NewServer(router.New(ctx, cfg, db, rdb, svc))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, db: db, rdb: rdb, admin: token(t, "", middleware.RoleAdmin)}
}

// seedSales books 60 sales over the last 30 days and 5 units of marketplace
// stock for one Wildberries listing.
func seedSales(t *testing.T, db *gorm.DB, companyID uuid.UUID) {
	t.Helper()
	product := model.Product{VendorCode: "KB-100", Barcode: "4600000000017", MarketplaceType: model.MarketplaceWildberries}
	require.NoError(t, db.Create(&product).Error)
	wh := model.Warehouse{Name: "Koledino", Country: "RU", Oblast: "Moscow", Region: "Central"}
	require.NoError(t, db.Create(&wh).Error)
	swh := model.WarehouseForStock{Name: "Koledino", MarketplaceType: model.MarketplaceWildberries}
	require.NoError(t, db.Create(&swh).Error)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	sales := make([]model.ProductSale, 0, 60)
	for i := 0; i < 60; i++ {
		sales = append(sales, model.ProductSale{
			ProductID:       product.ID,
			CompanyID:       companyID,
			Date:            today.AddDate(0, 0, -(i % 30)),
			WarehouseID:     wh.ID,
			MarketplaceType: model.MarketplaceWildberries,
		})
	}
	require.NoError(t, db.Create(&sales).Error)
	require.NoError(t, db.Create(&model.ProductStock{
		ProductID:       product.ID,
		CompanyID:       companyID,
		Date:            today,
		WarehouseID:     swh.ID,
		MarketplaceType: model.MarketplaceWildberries,
		Quantity:        5,
	}).Error)
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_RecomputeAndWarehouseFlow(t *testing.T) {
	env := setupTestEnv(t)

	// 1. Provision the tenant
	resp := do(t, env.server, http.MethodPost, "/v1/companies", map[string]any{"name": "Acme Textiles"}, env.admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var company dto.CompanyResponse
	decode(t, resp, &company)
	require.NotNil(t, company.Settings)
	assert.Equal(t, 30, company.Settings.LastSaleDays)

	companyID := uuid.MustParse(company.ID)
	op := token(t, company.ID, middleware.RoleOperator)
	seedSales(t, env.db, companyID)

	// 2. Recompute runs on the worker pool
	resp = do(t, env.server, http.MethodPost, "/v1/recompute", nil, op)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	var recs dto.Page[dto.RecommendationResponse]
	require.Eventually(t, func() bool {
		r := do(t, env.server, http.MethodGet, "/v1/recommendations", nil, op)
		decode(t, r, &recs)
		return recs.Total == 1
	}, 30*time.Second, 250*time.Millisecond)
	rec := recs.Data[0]
	assert.Equal(t, "KB-100", rec.Product.VendorCode)
	require.Greater(t, rec.Quantity, 50)

	// 3. Commit, then produce everything
	resp = do(t, env.server, http.MethodPost, "/v1/production", map[string]any{"recommendation_id": rec.ID, "quantity": 50}, op)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var prod dto.InProductionResponse
	decode(t, resp, &prod)

	resp = do(t, env.server, http.MethodPost, "/v1/production/"+prod.ID+"/produced", map[string]any{"produced_delta": 50}, op)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &prod)
	assert.True(t, prod.Retired)

	// 4. Sort onto two shelves
	var sorting dto.Page[dto.SortingResponse]
	decode(t, do(t, env.server, http.MethodGet, "/v1/sorting", nil, op), &sorting)
	require.Len(t, sorting.Data, 1)
	assert.Equal(t, 50, sorting.Data[0].Unsorted)

	for name, qty := range map[string]int{"A1": 30, "A2": 20} {
		resp = do(t, env.server, http.MethodPost, "/v1/shelves",
			map[string]any{"sorting_id": sorting.Data[0].ID, "shelf_name": name, "quantity": qty}, op)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	// Over-allocation is refused once sorting is empty
	resp = do(t, env.server, http.MethodPost, "/v1/shelves",
		map[string]any{"sorting_id": sorting.Data[0].ID, "shelf_name": "A3", "quantity": 1}, op)
	assert.Contains(t, []int{http.StatusNotFound, http.StatusConflict}, resp.StatusCode)
	resp.Body.Close()

	// 5. Shelves and finished-goods history agree
	var rec5 dto.ReconciliationResponse
	decode(t, do(t, env.server, http.MethodGet, "/v1/reports/reconciliation", nil, op), &rec5)
	require.Len(t, rec5.Rows, 1)
	assert.Equal(t, 50, rec5.Rows[0].ShelfStock)
	assert.Equal(t, 50, rec5.Rows[0].HistoryStock)
	assert.True(t, rec5.Balanced)

	// 6. Another tenant sees nothing
	other := token(t, uuid.NewString(), middleware.RoleOperator)
	var shelves dto.Page[dto.ShelfResponse]
	decode(t, do(t, env.server, http.MethodGet, "/v1/shelves", nil, other), &shelves)
	assert.Zero(t, shelves.Total)
}

func TestE2E_MalformedJobLandsInDLQ(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.rdb.LPush(ctx, worker.QueueRecompute, "{not json").Err())

	require.Eventually(t, func() bool {
		n, err := worker.DLQLength(ctx, env.rdb, worker.QueueRecompute)
		return err == nil && n == 1
	}, 15*time.Second, 100*time.Millisecond)

	resp := do(t, env.server, http.MethodGet, "/health", nil, "")
	var health struct {
		OK  bool             `json:"ok"`
		DLQ map[string]int64 `json:"dlq"`
	}
	decode(t, resp, &health)
	assert.True(t, health.OK)
	assert.Equal(t, int64(1), health.DLQ[worker.QueueRecompute])
}

func TestE2E_ConfigurationErrorIsParkedAndReplayable(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// A company without settings fails the recompute permanently.
	ghost := uuid.New()
	require.NoError(t, worker.NewDispatcher(env.rdb).EnqueueRecompute(ctx, ghost))

	require.Eventually(t, func() bool {
		n, err := worker.DLQLength(ctx, env.rdb, worker.QueueRecompute)
		return err == nil && n == 1
	}, 15*time.Second, 100*time.Millisecond)

	var peek struct {
		Data []worker.DLQEntry `json:"data"`
	}
	decode(t, do(t, env.server, http.MethodGet, "/v1/admin/dlq/recompute", nil, env.admin), &peek)
	require.Len(t, peek.Data, 1)
	assert.Equal(t, ghost.String(), peek.Data[0].CompanyID)
	assert.Equal(t, 1, peek.Data[0].Attempts)

	// Operators cannot reach the admin routes.
	resp := do(t, env.server, http.MethodGet, "/v1/admin/dlq/recompute", nil, token(t, ghost.String(), middleware.RoleOperator))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	var replay struct {
		Replayed int `json:"replayed"`
	}
	decode(t, do(t, env.server, http.MethodPost, "/v1/admin/dlq/recompute/replay", nil, env.admin), &replay)
	assert.Equal(t, 1, replay.Replayed)

	resp = do(t, env.server, http.MethodGet, "/v1/admin/dlq/nope", nil, env.admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestE2E_ConcurrentProductionCompletesIntoOneSortingRow(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, http.MethodPost, "/v1/companies", map[string]any{"name": "Parallel Looms"}, env.admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var company dto.CompanyResponse
	decode(t, resp, &company)
	op := token(t, company.ID, middleware.RoleOperator)
	seedSales(t, env.db, uuid.MustParse(company.ID))

	resp = do(t, env.server, http.MethodPost, "/v1/recompute", nil, op)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	var recs dto.Page[dto.RecommendationResponse]
	require.Eventually(t, func() bool {
		decode(t, do(t, env.server, http.MethodGet, "/v1/recommendations", nil, op), &recs)
		return recs.Total == 1
	}, 30*time.Second, 250*time.Millisecond)

	// Several commitments of one product, no sorting row yet.
	const batches, each = 4, 10
	ids := make([]string, 0, batches)
	for i := 0; i < batches; i++ {
		resp = do(t, env.server, http.MethodPost, "/v1/production", map[string]any{"recommendation_id": recs.Data[0].ID, "quantity": each}, op)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var prod dto.InProductionResponse
		decode(t, resp, &prod)
		ids = append(ids, prod.ID)
	}

	codes := make([]int, batches)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]any{"produced_delta": each})
			req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/v1/production/"+id+"/produced", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+op)
			r, err := env.server.Client().Do(req)
			if err != nil {
				return
			}
			r.Body.Close()
			codes[i] = r.StatusCode
		}(i, id)
	}
	wg.Wait()
	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	var sorting dto.Page[dto.SortingResponse]
	decode(t, do(t, env.server, http.MethodGet, "/v1/sorting", nil, op), &sorting)
	require.Len(t, sorting.Data, 1)
	assert.Equal(t, batches*each, sorting.Data[0].Unsorted)
}
