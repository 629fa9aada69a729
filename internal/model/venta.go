package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MetodoPago values.
const (
	MetodoEfectivo      = "efectivo"
	MetodoTarjeta       = "tarjeta"
	MetodoTransferencia = "transferencia"
)

// Estado values for Venta.
const (
	EstadoCompletada = "completada"
	EstadoPendiente  = "pendiente"
	EstadoCancelada  = "cancelada"
)

// ClienteSnapshot is copied into the sale at creation time. It is never a live
// reference: later edits to the user record do not change historical sales.
type ClienteSnapshot struct {
	Tipo      string     `gorm:"size:20;not null;default:'invitado'"` // registrado | invitado
	UsuarioID *uuid.UUID `gorm:"type:char(36)"`
	Nombre    string     `gorm:"size:200;not null"`
	Email     *string    `gorm:"size:180"`
	RFC       *string    `gorm:"size:20"`
	Direccion *string    `gorm:"type:text"`
}

// Venta is an immutable sale record. Its existence implies every stock decrement
// of its items was committed in the same transaction.
type Venta struct {
	ID                uuid.UUID       `gorm:"type:char(36);primaryKey"`
	Folio             string          `gorm:"size:20;uniqueIndex;not null"`
	Cliente           ClienteSnapshot `gorm:"embedded;embeddedPrefix:cliente_"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IVA               decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Moneda            string          `gorm:"size:3;not null;default:'MXN'"`
	MetodoPago        string          `gorm:"size:20;not null"`
	Estado            string          `gorm:"size:20;not null;default:'completada'"`
	UsuarioVendedorID uuid.UUID       `gorm:"type:char(36);not null;index"`
	UbicacionVenta    *string         `gorm:"size:120"`
	Notas             *string         `gorm:"type:text"`
	CreatedAt         time.Time       `gorm:"index"`
	UpdatedAt         time.Time

	Vendedor *Usuario    `gorm:"foreignKey:UsuarioVendedorID"`
	Items    []VentaItem `gorm:"foreignKey:VentaID"`
}

func (Venta) TableName() string { return "ventas" }

func (v *Venta) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// VentaItem snapshots name, SKU, quantity and price of one presentation sold.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:char(36);primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:char(36);not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:char(36);not null;index"`
	PresentacionID uuid.UUID       `gorm:"type:char(36);not null"`
	Nombre         string          `gorm:"size:200;not null"`
	SKU            *string         `gorm:"size:60"`
	Unidad         *string         `gorm:"size:80"`
	Cantidad       int             `gorm:"not null;check:chk_venta_items_cantidad,cantidad >= 1"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Orden          int             `gorm:"not null;default:0"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (VentaItem) TableName() string { return "venta_items" }

func (i *VentaItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// FolioCounter is a named monotonically increasing counter. The row is locked by
// the UPDATE that increments it, so concurrent sales obtain distinct values.
type FolioCounter struct {
	Nombre string `gorm:"size:40;primaryKey"`
	Valor  int    `gorm:"not null"`
}

func (FolioCounter) TableName() string { return "folio_counters" }
