package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EstadoFisico values for Producto.
const (
	EstadoLiquido    = "Líquido"
	EstadoSolido     = "Sólido"
	EstadoSemiSolido = "Semi-sólido"
)

// Producto owns an ordered list of Presentaciones. A presentation has no
// existence outside its product; the pair (producto_id, id) addresses it.
type Producto struct {
	ID               uuid.UUID      `gorm:"type:char(36);primaryKey"`
	Codigo           string         `gorm:"size:60;uniqueIndex;not null"`
	Nombre           string         `gorm:"size:200;not null"`
	Tipo             *string        `gorm:"size:80"`
	CategoriaID      uuid.UUID      `gorm:"type:char(36);not null;index"`
	SubcategoriaID   *uuid.UUID     `gorm:"type:char(36);index"`
	EstadoFisico     string         `gorm:"size:20;not null;default:'Líquido'"`
	Descripcion      string         `gorm:"type:text;not null"`
	Atributos        map[string]any `gorm:"serializer:json;type:text"`
	Imagenes         []string       `gorm:"serializer:json;type:text"`
	Activo           bool           `gorm:"not null;default:true"`
	Eliminado        bool           `gorm:"not null;default:false;index"`
	FechaEliminacion *time.Time
	// Busqueda is the normalized nombre + codigo + descripcion used by catalog search.
	Busqueda  string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Categoria      *Categoria     `gorm:"foreignKey:CategoriaID"`
	Subcategoria   *Subcategoria  `gorm:"foreignKey:SubcategoriaID"`
	Presentaciones []Presentacion `gorm:"foreignKey:ProductoID"`
}

func (Producto) TableName() string { return "productos" }

func (p *Producto) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *Producto) BeforeSave(*gorm.DB) error {
	p.Codigo = strings.TrimSpace(p.Codigo)
	if p.EstadoFisico == "" {
		p.EstadoFisico = EstadoLiquido
	}
	p.ActualizarBusqueda()
	return nil
}

// ActualizarBusqueda recomputes the search column from the current fields.
func (p *Producto) ActualizarBusqueda() {
	p.Busqueda = joinBusqueda(&p.Nombre, &p.Codigo, &p.Descripcion)
}

// Presentacion is a sellable variant of a product: its own SKU, size, price and stock.
// Stock is only ever mutated through a conditional decrement and can never go below zero.
type Presentacion struct {
	ID               uuid.UUID       `gorm:"type:char(36);primaryKey"`
	ProductoID       uuid.UUID       `gorm:"type:char(36);not null;index"`
	SKU              *string         `gorm:"size:60"`
	Formato          *string         `gorm:"size:80"`
	Capacidad        *string         `gorm:"size:80"`
	PrecioVenta      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrecioCompra     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Stock            int             `gorm:"not null;default:0;check:chk_presentaciones_stock,stock >= 0"`
	StockMinimo      int             `gorm:"not null;default:10"`
	Lote             *string         `gorm:"size:80"`
	FechaIngreso     *time.Time
	FechaVencimiento *time.Time
	Proveedor        *string `gorm:"size:120"`
	Ubicacion        *string `gorm:"size:120"`
	Observaciones    *string `gorm:"type:text"`
	// Orden keeps the position the presentation had in the product payload.
	Orden            int    `gorm:"not null;default:0"`
	Activo           bool   `gorm:"not null;default:true"`
	Eliminado        bool   `gorm:"not null;default:false"`
	FechaEliminacion *time.Time
	Busqueda         string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (Presentacion) TableName() string { return "presentaciones" }

func (p *Presentacion) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *Presentacion) BeforeSave(*gorm.DB) error {
	if p.SKU != nil {
		sku := strings.ToUpper(strings.TrimSpace(*p.SKU))
		p.SKU = &sku
	}
	p.Busqueda = joinBusqueda(p.SKU, p.Formato, p.Capacidad)
	return nil
}
