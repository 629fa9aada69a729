package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Categoria represents a top-level product category (e.g. "Mieles", "Derivados").
type Categoria struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Nombre      string    `gorm:"size:120;uniqueIndex;not null"`
	Descripcion *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Subcategorias []Subcategoria `gorm:"foreignKey:CategoriaID"`
}

// TableName overrides GORM's default singular → plural logic for Spanish names.
func (Categoria) TableName() string { return "categorias" }

func (c *Categoria) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Subcategoria always belongs to an existing Categoria. Names are unique per category.
type Subcategoria struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Nombre      string    `gorm:"size:120;not null;uniqueIndex:idx_subcategoria_nombre"`
	CategoriaID uuid.UUID `gorm:"type:char(36);not null;index;uniqueIndex:idx_subcategoria_nombre"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Categoria *Categoria `gorm:"foreignKey:CategoriaID"`
}

func (Subcategoria) TableName() string { return "subcategorias" }

func (s *Subcategoria) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
