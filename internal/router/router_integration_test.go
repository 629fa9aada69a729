//go:build integration

package router

// Runs the HTTP flow against real Postgres and Redis containers.
// go test -tags integration ./internal/router/...

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"colmena/internal/infra"
	"colmena/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestIntegration_VentaFlow(t *testing.T) {
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("colmena_test"),
		tcPostgres.WithUsername("colmena"),
		tcPostgres.WithPassword("colmena"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.DatabaseURL = pgURL
	cfg.RedisURL = rdURL
	cfg.CategoryCacheTTL = time.Minute

	db, err := infra.NewDatabase(cfg.DatabaseURL, infra.DBOptions{})
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	seedAdmin(t, db, cfg)
	srv := httptest.NewServer(New(cfg, db, rdb, infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp"})))
	t.Cleanup(srv.Close)

	runVentaFlow(t, srv)

	t.Run("receipt job queued for the committed sale", func(t *testing.T) {
		n, err := rdb.LLen(ctx, worker.QueueRecibos).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("category tree cached until the next write", func(t *testing.T) {
		resp := do(t, srv, http.MethodGet, "/api/categories/tree", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
		assert.Equal(t, int64(1), rdb.Exists(ctx, "catalogo:arbol").Val())

		admin := login(t, srv, "admin@colmena.mx", "colmena2026")
		resp = do(t, srv, http.MethodPost, "/api/categories", jsonBody(t, map[string]any{"nombre": "Derivados"}), admin)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
		assert.Equal(t, int64(0), rdb.Exists(ctx, "catalogo:arbol").Val())
	})

	t.Run("concurrent sales never oversell", func(t *testing.T) {
		admin := login(t, srv, "admin@colmena.mx", "colmena2026")
		cats := do(t, srv, http.MethodGet, "/api/categories", nil, "")
		require.Equal(t, http.StatusOK, cats.StatusCode)
		var catList envelope[[]struct {
			ID string `json:"id"`
		}]
		decodeJSON(t, cats, &catList)
		require.NotEmpty(t, catList.Data)

		resp := do(t, srv, http.MethodPost, "/api/products", jsonBody(t, map[string]any{
			"codigo":       "POLEN-100",
			"nombre":       "Polen de Abeja",
			"categoria_id": catList.Data[0].ID,
			"descripcion":  "Polen seco",
			"presentaciones": []map[string]any{
				{"sku": "POLEN-100-G", "capacidad": "100 g", "precio_venta": "180", "stock": 10},
			},
		}), admin)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var prod envelope[struct {
			ID             string `json:"id"`
			Presentaciones []struct {
				ID    string `json:"id"`
				Stock int    `json:"stock"`
			} `json:"presentaciones"`
		}]
		decodeJSON(t, resp, &prod)
		presID := prod.Data.Presentaciones[0].ID

		const compradores = 25
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			folios   = map[string]bool{}
			exitosas int
			otros    []int
		)
		for i := 0; i < compradores; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b, _ := json.Marshal(venta(prod.Data.ID, presID, 1))
				req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/sales", bytes.NewReader(b))
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("Authorization", "Bearer "+admin)
				r, err := srv.Client().Do(req)
				if err != nil {
					mu.Lock()
					otros = append(otros, -1)
					mu.Unlock()
					return
				}
				defer r.Body.Close()
				var body envelope[struct {
					Folio string `json:"folio"`
				}]
				_ = json.NewDecoder(r.Body).Decode(&body)

				mu.Lock()
				defer mu.Unlock()
				switch r.StatusCode {
				case http.StatusCreated:
					exitosas++
					folios[body.Data.Folio] = true
				case http.StatusBadRequest:
				default:
					otros = append(otros, r.StatusCode)
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, otros, "every sale is either committed or rejected for stock")
		assert.Equal(t, 10, exitosas)
		assert.Len(t, folios, 10)

		resp = do(t, srv, http.MethodGet, "/api/products/"+prod.Data.ID, nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decodeJSON(t, resp, &prod)
		assert.Equal(t, 0, prod.Data.Presentaciones[0].Stock)
	})

	t.Run("parked receipts can be requeued", func(t *testing.T) {
		require.NoError(t, rdb.Del(ctx, worker.QueueRecibos).Err())
		entry := `{"queue":"jobs:recibos","job_type":"recibo","venta_id":"v1","payload":{"venta_id":"v1","email":"a@b.mx"},"reason":"smtp","attempts":3}`
		require.NoError(t, rdb.LPush(ctx, "dlq:"+worker.QueueRecibos, entry, `{"queue":"jobs:recibos","job_type":"unknown","raw":"{x","reason":"invalid envelope"}`).Err())

		parked, err := worker.DeadLetters(ctx, rdb, worker.QueueRecibos, 10)
		require.NoError(t, err)
		assert.Len(t, parked, 2)

		n, err := worker.Requeue(ctx, rdb, worker.QueueRecibos)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, int64(1), rdb.LLen(ctx, worker.QueueRecibos).Val())
		assert.Equal(t, int64(1), rdb.LLen(ctx, "dlq:"+worker.QueueRecibos).Val())
	})

	t.Run("health reports redis", func(t *testing.T) {
		resp := do(t, srv, http.MethodGet, "/api/health", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		decodeJSON(t, resp, &body)
		assert.Equal(t, "connected", body["redis"])
		assert.Equal(t, "closed", body["mailer"])
	})

	t.Run("locks exclude concurrent runs", func(t *testing.T) {
		err := infra.WithLock(ctx, rdb, "colmenactl:test", time.Minute, func(ctx context.Context) error {
			return infra.WithLock(ctx, rdb, "colmenactl:test", time.Minute, func(context.Context) error { return nil })
		})
		assert.ErrorIs(t, err, infra.ErrLockTaken)
	})
}
