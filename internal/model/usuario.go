package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RolAdministrador = "administrador"
	RolVisitante     = "visitante"
)

// Usuario stores accounts with role-based access.
// Rol: "administrador" | "visitante"
type Usuario struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	Nombre       string    `gorm:"size:120;not null"`
	Email        string    `gorm:"size:180;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Rol          string    `gorm:"size:20;not null;default:'visitante'"`
	UltimoAcceso *time.Time
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (Usuario) TableName() string { return "usuarios" }

func (u *Usuario) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (u *Usuario) BeforeSave(*gorm.DB) error {
	u.Email = NormalizarEmail(u.Email)
	if u.Rol == "" {
		u.Rol = RolVisitante
	}
	return nil
}

func NormalizarEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsuarioFavorito is the join row between a user and a favorite product.
type UsuarioFavorito struct {
	UsuarioID  uuid.UUID `gorm:"type:char(36);primaryKey"`
	ProductoID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt  time.Time
}

func (UsuarioFavorito) TableName() string { return "usuario_favoritos" }
