package handler

import (
	"context"
	"net/http"
	"testing"

	"colmena/internal/dto"
	"colmena/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProductos struct {
	service.ProductoService
	filter *dto.ProductoFilter
}

func (s *stubProductos) Listar(_ context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	s.filter = &filter
	return &dto.ProductoListResponse{Data: []dto.ProductoResponse{}, Page: filter.Page, Limit: filter.Limit}, nil
}

func TestListarProductos_Filtros(t *testing.T) {
	svc := &stubProductos{}
	e := gin.New()
	e.GET("/api/products", NewProductosHandler(svc).Listar)

	w := send(e, http.MethodGet, "/api/products?search=azahar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter)
	assert.Equal(t, 1, svc.filter.Page)
	assert.Equal(t, 10, svc.filter.Limit)
	assert.Equal(t, "azahar", svc.filter.Search)

	svc.filter = nil
	w = send(e, http.MethodGet, "/api/products?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":"max"`)
	assert.Nil(t, svc.filter)

	w = send(e, http.MethodGet, "/api/products?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Parámetros inválidos")
}
