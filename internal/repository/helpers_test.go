package repository

import (
	"context"
	"testing"

	"colmena/internal/infra"
	"colmena/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory sqlite database with the full schema.
// One connection keeps the memory database alive and serializes transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase("sqlite:file:"+uuid.NewString()+"?mode=memory&cache=shared", infra.DBOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func strPtr(s string) *string { return &s }

func seedCategoria(t *testing.T, db *gorm.DB, nombre string) *model.Categoria {
	t.Helper()
	c := &model.Categoria{Nombre: nombre, Activo: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedProducto(t *testing.T, db *gorm.DB, cat *model.Categoria, codigo, nombre string, stocks ...int) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Codigo:      codigo,
		Nombre:      nombre,
		CategoriaID: cat.ID,
		Descripcion: "Producto de prueba",
		Activo:      true,
	}
	for i, s := range stocks {
		p.Presentaciones = append(p.Presentaciones, model.Presentacion{
			SKU:         strPtr(codigo + "-" + string(rune('A'+i))),
			Capacidad:   strPtr("500 g"),
			PrecioVenta: decimal.NewFromInt(150),
			Stock:       s,
			StockMinimo: 2,
			Orden:       i,
			Activo:      true,
		})
	}
	require.NoError(t, NewProductoRepository(db).Create(context.Background(), p))
	return p
}

func seedUsuario(t *testing.T, db *gorm.DB, email string) *model.Usuario {
	t.Helper()
	u := &model.Usuario{Nombre: "Vendedor", Email: email, PasswordHash: "x", Rol: model.RolAdministrador}
	require.NoError(t, db.Create(u).Error)
	return u
}

func stockOf(t *testing.T, db *gorm.DB, presentacionID uuid.UUID) int {
	t.Helper()
	var p model.Presentacion
	require.NoError(t, db.First(&p, "id = ?", presentacionID).Error)
	return p.Stock
}
