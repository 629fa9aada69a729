package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PresentacionRequest struct {
	// ID is set when updating an existing presentation; empty creates a new one.
	ID               string          `json:"id"               validate:"omitempty,uuid"`
	SKU              *string         `json:"sku"              validate:"omitempty,max=60"`
	Formato          *string         `json:"formato"          validate:"omitempty,max=80"`
	Capacidad        *string         `json:"capacidad"        validate:"omitempty,max=80"`
	PrecioVenta      decimal.Decimal `json:"precio_venta"     validate:"min=0"`
	PrecioCompra     decimal.Decimal `json:"precio_compra"    validate:"min=0"`
	Stock            int             `json:"stock"            validate:"min=0"`
	StockMinimo      *int            `json:"stock_minimo"     validate:"omitempty,min=0"`
	Lote             *string         `json:"lote"`
	FechaIngreso     *time.Time      `json:"fecha_ingreso"`
	FechaVencimiento *time.Time      `json:"fecha_vencimiento"`
	Proveedor        *string         `json:"proveedor"`
	Ubicacion        *string         `json:"ubicacion"`
	Observaciones    *string         `json:"observaciones"`
	Activo           *bool           `json:"activo"`
}

type ProductoRequest struct {
	Codigo         string                `json:"codigo"          validate:"required,min=1,max=60"`
	Nombre         string                `json:"nombre"          validate:"required,min=2,max=200"`
	Tipo           *string               `json:"tipo"            validate:"omitempty,max=80"`
	CategoriaID    string                `json:"categoria_id"    validate:"required,uuid"`
	SubcategoriaID *string               `json:"subcategoria_id" validate:"omitempty,uuid"`
	EstadoFisico   string                `json:"estado_fisico"   validate:"omitempty,oneof=Líquido Sólido Semi-sólido"`
	Descripcion    string                `json:"descripcion"     validate:"required"`
	Atributos      map[string]any        `json:"atributos"`
	Imagenes       []string              `json:"imagenes"`
	Presentaciones []PresentacionRequest `json:"presentaciones"  validate:"dive"`
	Activo         *bool                 `json:"activo"`
}

type ProductosPorIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Search      string `form:"search"`
	CategoriaID string `form:"categoria_id"`
	Activo      *bool  `form:"activo"`
	Sort        string `form:"sort,default=-fecha_creacion"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=10" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PresentacionResponse struct {
	ID               string          `json:"id"`
	SKU              *string         `json:"sku,omitempty"`
	Formato          *string         `json:"formato,omitempty"`
	Capacidad        *string         `json:"capacidad,omitempty"`
	PrecioVenta      decimal.Decimal `json:"precio_venta"`
	PrecioCompra     decimal.Decimal `json:"precio_compra"`
	Stock            int             `json:"stock"`
	StockMinimo      int             `json:"stock_minimo"`
	Lote             *string         `json:"lote,omitempty"`
	FechaIngreso     *time.Time      `json:"fecha_ingreso,omitempty"`
	FechaVencimiento *time.Time      `json:"fecha_vencimiento,omitempty"`
	Proveedor        *string         `json:"proveedor,omitempty"`
	Ubicacion        *string         `json:"ubicacion,omitempty"`
	Observaciones    *string         `json:"observaciones,omitempty"`
	Activo           bool            `json:"activo"`
}

type ProductoResponse struct {
	ID                 string                 `json:"id"`
	Codigo             string                 `json:"codigo"`
	Nombre             string                 `json:"nombre"`
	Tipo               *string                `json:"tipo,omitempty"`
	CategoriaID        string                 `json:"categoria_id"`
	CategoriaNombre    string                 `json:"categoria_nombre,omitempty"`
	SubcategoriaID     *string                `json:"subcategoria_id,omitempty"`
	SubcategoriaNombre string                 `json:"subcategoria_nombre,omitempty"`
	EstadoFisico       string                 `json:"estado_fisico"`
	Descripcion        string                 `json:"descripcion"`
	Atributos          map[string]any         `json:"atributos,omitempty"`
	Imagenes           []string               `json:"imagenes"`
	Presentaciones     []PresentacionResponse `json:"presentaciones"`
	Activo             bool                   `json:"activo"`
	FechaCreacion      string                 `json:"fecha_creacion"`
	FechaActualizacion string                 `json:"fecha_actualizacion"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int64              `json:"total"`
	Count int                `json:"count"`
	Page  int                `json:"page"`
	Pages int                `json:"pages"`
	Limit int                `json:"limit"`
}

// AlertaStockResponse lists a presentation at or below its minimum stock.
type AlertaStockResponse struct {
	ProductoID     string  `json:"producto_id"`
	Producto       string  `json:"producto"`
	PresentacionID string  `json:"presentacion_id"`
	SKU            *string `json:"sku,omitempty"`
	Stock          int     `json:"stock"`
	StockMinimo    int     `json:"stock_minimo"`
}
