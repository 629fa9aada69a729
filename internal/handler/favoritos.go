package handler

import (
	"net/http"

	"colmena/internal/apierror"
	"colmena/internal/dto"
	"colmena/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FavoritosHandler struct{ svc service.FavoritoService }

func NewFavoritosHandler(svc service.FavoritoService) *FavoritosHandler {
	return &FavoritosHandler{svc: svc}
}

// Listar GET /api/favorites
func (h *FavoritosHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context(), actor(c).UsuarioID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(resp))
}

// Agregar POST /api/favorites
func (h *FavoritosHandler) Agregar(c *gin.Context) {
	var req dto.FavoritoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de producto inválido"))
		return
	}
	ids, err := h.svc.Agregar(c.Request.Context(), actor(c).UsuarioID, productoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKMensaje("Producto agregado a favoritos", dto.FavoritosIDsResponse{Favoritos: ids}))
}

// Sincronizar POST /api/favorites/sync
func (h *FavoritosHandler) Sincronizar(c *gin.Context) {
	var req dto.SincronizarFavoritosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Se requiere un arreglo de favoritos"))
		return
	}
	ids, err := h.svc.Sincronizar(c.Request.Context(), actor(c).UsuarioID, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(dto.FavoritosIDsResponse{Favoritos: ids}))
}

// Quitar DELETE /api/favorites/:productId
func (h *FavoritosHandler) Quitar(c *gin.Context) {
	productoID, ok := paramUUID(c, "productId")
	if !ok {
		return
	}
	ids, err := h.svc.Quitar(c.Request.Context(), actor(c).UsuarioID, productoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKMensaje("Producto eliminado de favoritos", dto.FavoritosIDsResponse{Favoritos: ids}))
}
