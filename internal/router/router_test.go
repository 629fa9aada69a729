package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"colmena/internal/config"
	"colmena/internal/infra"
	"colmena/internal/repository"
	"colmena/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 1,
		RateLimitPerMinute: 1000,
		NombreTienda:       "Colmena",
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func login(t *testing.T, srv *httptest.Server, email, password string) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/auth/login",
		jsonBody(t, map[string]string{"email": email, "password": password}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body envelope[struct {
		Token string `json:"token"`
	}]
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

// seedAdmin creates the administrator account directly, the way colmenactl does.
func seedAdmin(t *testing.T, db *gorm.DB, cfg *config.Config) {
	t.Helper()
	auth := service.NewAuthService(repository.NewUsuarioRepository(db), cfg)
	_, err := auth.UpsertAdmin(context.Background(), "Admin", "admin@colmena.mx", "colmena2026")
	require.NoError(t, err)
}

func venta(productoID, presentacionID string, cantidad int) map[string]any {
	precio := 180
	subtotal := fmt.Sprintf("%d", precio*cantidad)
	return map[string]any{
		"cliente": map[string]any{"nombre": "María López", "email": "maria@ejemplo.com"},
		"productos": []map[string]any{{
			"producto_id":       productoID,
			"presentacion_id":   presentacionID,
			"cantidad":          cantidad,
			"precio_unitario":   fmt.Sprintf("%d", precio),
			"subtotal_producto": subtotal,
		}},
		"totales":     map[string]any{"subtotal": subtotal, "total": subtotal},
		"metodo_pago": "tarjeta",
	}
}

// runVentaFlow drives the catalog and sale endpoints against a running server
// whose database already holds the admin account.
func runVentaFlow(t *testing.T, srv *httptest.Server) {
	admin := login(t, srv, "admin@colmena.mx", "colmena2026")

	// 1. Catalog
	resp := do(t, srv, http.MethodPost, "/api/categories", jsonBody(t, map[string]any{"nombre": "Mieles"}), admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var cat envelope[struct {
		ID string `json:"id"`
	}]
	decodeJSON(t, resp, &cat)

	resp = do(t, srv, http.MethodPost, "/api/products", jsonBody(t, map[string]any{
		"codigo":       "MIEL-AZ",
		"nombre":       "Miel de Azahar",
		"categoria_id": cat.Data.ID,
		"descripcion":  "Miel clara de flor de naranjo",
		"presentaciones": []map[string]any{
			{"sku": "MIEL-AZ-250", "capacidad": "250 g", "precio_venta": "180", "stock": 5, "stock_minimo": 1},
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
	require.Len(t, prod.Data.Presentaciones, 1)
	presID := prod.Data.Presentaciones[0].ID

	// 2. A visitor registers and buys
	resp = do(t, srv, http.MethodPost, "/api/auth/register", jsonBody(t, map[string]string{
		"name": "Luis Pérez", "email": "luis@ejemplo.com", "password": "abejas1",
	}), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	visitante := login(t, srv, "luis@ejemplo.com", "abejas1")

	resp = do(t, srv, http.MethodPost, "/api/categories", jsonBody(t, map[string]any{"nombre": "Derivados"}), visitante)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, srv, http.MethodPost, "/api/sales", jsonBody(t, venta(prod.Data.ID, presID, 3)), visitante)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v envelope[struct {
		ID     string `json:"id"`
		Folio  string `json:"folio"`
		Estado string `json:"estado"`
	}]
	decodeJSON(t, resp, &v)
	assert.Equal(t, "VTA-0001", v.Data.Folio)
	assert.Equal(t, "completada", v.Data.Estado)

	// 3. Only 2 left: the second sale is rejected without side effects
	resp = do(t, srv, http.MethodPost, "/api/sales", jsonBody(t, venta(prod.Data.ID, presID, 3)), visitante)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var rechazo envelope[any]
	decodeJSON(t, resp, &rechazo)
	assert.False(t, rechazo.Success)
	assert.Contains(t, rechazo.Message, "Miel de Azahar")

	resp = do(t, srv, http.MethodPost, "/api/sales", jsonBody(t, venta(prod.Data.ID, uuid.NewString(), 1)), visitante)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, srv, http.MethodGet, "/api/products/"+prod.Data.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &prod)
	assert.Equal(t, 2, prod.Data.Presentaciones[0].Stock)

	// 4. Reads
	resp = do(t, srv, http.MethodGet, "/api/sales/"+v.Data.ID, nil, visitante)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got envelope[struct {
		Folio string `json:"folio"`
	}]
	decodeJSON(t, resp, &got)
	assert.Equal(t, "VTA-0001", got.Data.Folio)

	resp = do(t, srv, http.MethodGet, "/api/sales/"+uuid.NewString(), nil, visitante)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, srv, http.MethodGet, "/api/sales", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, srv, http.MethodGet, "/api/sales/export", nil, admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRouter_VentaFlow(t *testing.T) {
	cfg := testConfig()
	db, err := infra.NewDatabase("sqlite:file:"+uuid.NewString()+"?mode=memory&cache=shared", infra.DBOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	seedAdmin(t, db, cfg)

	srv := httptest.NewServer(New(cfg, db, nil, nil))
	t.Cleanup(srv.Close)

	runVentaFlow(t, srv)
}

func TestRouter_Health(t *testing.T) {
	db, err := infra.NewDatabase("sqlite:file:"+uuid.NewString()+"?mode=memory&cache=shared", infra.DBOptions{MaxOpenConns: 1})
	require.NoError(t, err)

	srv := httptest.NewServer(New(testConfig(), db, nil, nil))
	t.Cleanup(srv.Close)

	resp := do(t, srv, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeJSON(t, resp, &body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "disabled", body["redis"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
