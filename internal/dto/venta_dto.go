package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ClienteVentaRequest struct {
	Tipo      string  `json:"tipo"       validate:"omitempty,oneof=registrado invitado"`
	UsuarioID *string `json:"usuario_id" validate:"omitempty,uuid"`
	Nombre    string  `json:"nombre"     validate:"required,max=200"`
	Email     *string `json:"email"      validate:"omitempty,email"`
	RFC       *string `json:"rfc"        validate:"omitempty,max=20"`
	Direccion *string `json:"direccion"`
}

type ProductoVentaRequest struct {
	ProductoID       string          `json:"producto_id"       validate:"required,uuid"`
	PresentacionID   string          `json:"presentacion_id"   validate:"required,uuid"`
	Nombre           string          `json:"nombre"`
	Unidad           *string         `json:"unidad"`
	Cantidad         int             `json:"cantidad"          validate:"required,min=1"`
	PrecioUnitario   decimal.Decimal `json:"precio_unitario"   validate:"min=0"`
	SubtotalProducto decimal.Decimal `json:"subtotal_producto" validate:"min=0"`
}

type TotalesRequest struct {
	Subtotal  decimal.Decimal `json:"subtotal"  validate:"min=0"`
	Descuento decimal.Decimal `json:"descuento" validate:"min=0"`
	IVA       decimal.Decimal `json:"iva"       validate:"min=0"`
	Total     decimal.Decimal `json:"total"     validate:"min=0"`
	Moneda    string          `json:"moneda"    validate:"omitempty,len=3"`
}

type CrearVentaRequest struct {
	Cliente        ClienteVentaRequest    `json:"cliente"`
	Productos      []ProductoVentaRequest `json:"productos"       validate:"required,min=1,dive"`
	Totales        TotalesRequest         `json:"totales"`
	MetodoPago     string                 `json:"metodo_pago"     validate:"required,oneof=efectivo tarjeta transferencia"`
	UbicacionVenta *string                `json:"ubicacion_venta" validate:"omitempty,max=120"`
	Notas          *string                `json:"notas"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteVentaResponse struct {
	Tipo      string  `json:"tipo"`
	UsuarioID *string `json:"usuario_id,omitempty"`
	Nombre    string  `json:"nombre"`
	Email     *string `json:"email,omitempty"`
	RFC       *string `json:"rfc,omitempty"`
	Direccion *string `json:"direccion,omitempty"`
}

type ProductoVentaResponse struct {
	ProductoID       string          `json:"producto_id"`
	PresentacionID   string          `json:"presentacion_id"`
	Nombre           string          `json:"nombre"`
	Codigo           string          `json:"codigo,omitempty"`
	SKU              *string         `json:"sku,omitempty"`
	Unidad           *string         `json:"unidad,omitempty"`
	Cantidad         int             `json:"cantidad"`
	PrecioUnitario   decimal.Decimal `json:"precio_unitario"`
	SubtotalProducto decimal.Decimal `json:"subtotal_producto"`
}

type TotalesResponse struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Descuento decimal.Decimal `json:"descuento"`
	IVA       decimal.Decimal `json:"iva"`
	Total     decimal.Decimal `json:"total"`
	Moneda    string          `json:"moneda"`
}

type VendedorResponse struct {
	ID     string `json:"id"`
	Nombre string `json:"name"`
	Email  string `json:"email"`
}

type VentaResponse struct {
	ID                string                  `json:"id"`
	Folio             string                  `json:"folio"`
	Cliente           ClienteVentaResponse    `json:"cliente"`
	Productos         []ProductoVentaResponse `json:"productos"`
	Totales           TotalesResponse         `json:"totales"`
	MetodoPago        string                  `json:"metodo_pago"`
	Estado            string                  `json:"estado"`
	UsuarioVendedorID string                  `json:"usuario_vendedor_id"`
	Vendedor          *VendedorResponse       `json:"vendedor,omitempty"`
	UbicacionVenta    *string                 `json:"ubicacion_venta,omitempty"`
	Notas             *string                 `json:"notas,omitempty"`
	FechaCreacion     string                  `json:"fecha_creacion"`
}
