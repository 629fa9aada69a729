package dto

import "github.com/google/uuid"

// ── Request DTOs ──────────────────────────────────────────────────────────────

type CrearCategoriaRequest struct {
	Nombre      string  `json:"nombre"      validate:"required,min=2,max=100"`
	Descripcion *string `json:"descripcion"`
}

type ActualizarCategoriaRequest struct {
	Nombre      *string `json:"nombre"      validate:"omitempty,min=2,max=100"`
	Descripcion *string `json:"descripcion"`
	Activo      *bool   `json:"activo"`
}

type CrearSubcategoriaRequest struct {
	Nombre      string `json:"nombre"       validate:"required,min=2,max=100"`
	CategoriaID string `json:"categoria_id" validate:"required,uuid"`
}

// ── Response DTOs ─────────────────────────────────────────────────────────────

type CategoriaResponse struct {
	ID          uuid.UUID `json:"id"`
	Nombre      string    `json:"nombre"`
	Descripcion *string   `json:"descripcion,omitempty"`
	Activo      bool      `json:"activo"`
}

type SubcategoriaResponse struct {
	ID              uuid.UUID `json:"id"`
	Nombre          string    `json:"nombre"`
	CategoriaID     uuid.UUID `json:"categoria_id"`
	CategoriaNombre string    `json:"categoria_nombre,omitempty"`
}

// CategoriaArbol is a category with its subcategories, served from cache.
type CategoriaArbol struct {
	CategoriaResponse
	Subcategorias []SubcategoriaResponse `json:"subcategorias"`
}
