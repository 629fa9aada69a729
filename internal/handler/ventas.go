package handler

import (
	"fmt"
	"net/http"

	"colmena/internal/dto"
	"colmena/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type VentasHandler struct {
	svc      service.VentaService
	reportes service.ReporteService
}

func NewVentasHandler(svc service.VentaService, reportes service.ReporteService) *VentasHandler {
	return &VentasHandler{svc: svc, reportes: reportes}
}

// CrearVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Crea la venta en una transacción: asigna folio, descuenta el stock de cada presentación y guarda el pedido. Si alguna línea no tiene stock suficiente no se aplica ningún cambio.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.Respuesta
// @Failure      400  {object} apierror.APIError
// @Failure      500  {object} apierror.APIError
// @Router       /sales [post]
func (h *VentasHandler) CrearVenta(c *gin.Context) {
	var req dto.CrearVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearVenta(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OKMensaje("Venta creada exitosamente", resp))
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} dto.Respuesta
// @Router       /sales [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	resp, err := h.svc.ListarVentas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(resp), "data": resp})
}

// ObtenerVenta GET /api/sales/:id
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(resp))
}

// Dashboard GET /api/sales/dashboard
func (h *VentasHandler) Dashboard(c *gin.Context) {
	resp, err := h.reportes.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(resp))
}

// VentasPorPeriodo GET /api/sales/sales-by-period?period=day|week|month|year
func (h *VentasHandler) VentasPorPeriodo(c *gin.Context) {
	resp, err := h.reportes.VentasPorPeriodo(c.Request.Context(), c.Query("period"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(resp))
}

// Historial GET /api/sales/history?startDate=&endDate=
func (h *VentasHandler) Historial(c *gin.Context) {
	var filter dto.HistorialFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.reportes.Historial(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(resp))
}

// Exportar GET /api/sales/export
func (h *VentasHandler) Exportar(c *gin.Context) {
	buf, nombre, err := h.reportes.ExportarExcel(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", nombre))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
