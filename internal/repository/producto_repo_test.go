package repository

import (
	"context"
	"testing"

	"colmena/internal/dto"
	"colmena/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── DecrementStockTx ──────────────────────────────────────────────────────────

func TestDecrementStockTx_Descuenta(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	p := seedProducto(t, db, seedCategoria(t, db, "Mieles"), "MIEL-001", "Miel Multifloral", 5)
	pres := p.Presentaciones[0]

	res, err := repo.DecrementStockTx(context.Background(), db, p.ID, pres.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, StockDescontado, res)
	assert.Equal(t, 2, stockOf(t, db, pres.ID))
}

func TestDecrementStockTx_TodoElStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	p := seedProducto(t, db, seedCategoria(t, db, "Mieles"), "MIEL-001", "Miel Multifloral", 5)
	pres := p.Presentaciones[0]

	res, err := repo.DecrementStockTx(context.Background(), db, p.ID, pres.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, StockDescontado, res)
	assert.Equal(t, 0, stockOf(t, db, pres.ID))

	res, err = repo.DecrementStockTx(context.Background(), db, p.ID, pres.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StockInsuficiente, res)
	assert.Equal(t, 0, stockOf(t, db, pres.ID))
}

func TestDecrementStockTx_Insuficiente_NoCambiaStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	p := seedProducto(t, db, seedCategoria(t, db, "Mieles"), "MIEL-001", "Miel Multifloral", 2)
	pres := p.Presentaciones[0]

	res, err := repo.DecrementStockTx(context.Background(), db, p.ID, pres.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, StockInsuficiente, res)
	assert.Equal(t, 2, stockOf(t, db, pres.ID))
}

func TestDecrementStockTx_NoEncontrado(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	cat := seedCategoria(t, db, "Mieles")
	p := seedProducto(t, db, cat, "MIEL-001", "Miel Multifloral", 5)
	otro := seedProducto(t, db, cat, "POLEN-001", "Polen", 5)
	ctx := context.Background()

	t.Run("presentacion inexistente", func(t *testing.T) {
		res, err := repo.DecrementStockTx(ctx, db, p.ID, uuid.New(), 1)
		require.NoError(t, err)
		assert.Equal(t, StockNoEncontrado, res)
	})

	t.Run("presentacion de otro producto", func(t *testing.T) {
		res, err := repo.DecrementStockTx(ctx, db, p.ID, otro.Presentaciones[0].ID, 1)
		require.NoError(t, err)
		assert.Equal(t, StockNoEncontrado, res)
		assert.Equal(t, 5, stockOf(t, db, otro.Presentaciones[0].ID))
	})

	t.Run("presentacion eliminada", func(t *testing.T) {
		ok, err := repo.SoftDeletePresentacion(ctx, p.ID, p.Presentaciones[0].ID)
		require.NoError(t, err)
		require.True(t, ok)

		res, err := repo.DecrementStockTx(ctx, db, p.ID, p.Presentaciones[0].ID, 1)
		require.NoError(t, err)
		assert.Equal(t, StockNoEncontrado, res)
	})

	t.Run("producto eliminado", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, otro.ID))

		res, err := repo.DecrementStockTx(ctx, db, otro.ID, otro.Presentaciones[0].ID, 1)
		require.NoError(t, err)
		assert.Equal(t, StockNoEncontrado, res)
		assert.Equal(t, 5, stockOf(t, db, otro.Presentaciones[0].ID))
	})
}

func TestDecrementStockTx_RollbackDevuelveStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	p := seedProducto(t, db, seedCategoria(t, db, "Mieles"), "MIEL-001", "Miel Multifloral", 5)
	pres := p.Presentaciones[0]

	err := db.Transaction(func(tx *gorm.DB) error {
		res, err := repo.DecrementStockTx(context.Background(), tx, p.ID, pres.ID, 4)
		require.NoError(t, err)
		require.Equal(t, StockDescontado, res)
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)
	assert.Equal(t, 5, stockOf(t, db, pres.ID))
}

func TestStockResult_String(t *testing.T) {
	assert.Equal(t, "descontado", StockDescontado.String())
	assert.Equal(t, "insuficiente", StockInsuficiente.String())
	assert.Equal(t, "no_encontrado", StockNoEncontrado.String())
}

// ── Presentaciones ────────────────────────────────────────────────────────────

func TestSavePresentacionesTx(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	ctx := context.Background()
	p := seedProducto(t, db, seedCategoria(t, db, "Mieles"), "MIEL-001", "Miel Multifloral", 5, 8)

	conservada := p.Presentaciones[0]
	conservada.Stock = 12
	nueva := model.Presentacion{SKU: strPtr("miel-001-c"), Capacidad: strPtr("1 kg"), Stock: 3, Orden: 1, Activo: true}

	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.SavePresentacionesTx(ctx, tx, p.ID, []model.Presentacion{conservada, nueva})
	})
	require.NoError(t, err)

	vivas, err := repo.ListPresentaciones(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, vivas, 2)
	assert.Equal(t, conservada.ID, vivas[0].ID)
	assert.Equal(t, 12, vivas[0].Stock)
	assert.Equal(t, "MIEL-001-C", *vivas[1].SKU, "SKU is stored upper case")

	var eliminada model.Presentacion
	require.NoError(t, db.First(&eliminada, "id = ?", p.Presentaciones[1].ID).Error)
	assert.True(t, eliminada.Eliminado)
	assert.False(t, eliminada.Activo)
	assert.NotNil(t, eliminada.FechaEliminacion)
}

func TestListAlertas(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	cat := seedCategoria(t, db, "Mieles")
	p := seedProducto(t, db, cat, "MIEL-001", "Miel Multifloral", 1, 50)
	borrado := seedProducto(t, db, cat, "MIEL-002", "Miel de Mezquite", 0)
	require.NoError(t, repo.SoftDelete(context.Background(), borrado.ID))

	alertas, err := repo.ListAlertas(context.Background())
	require.NoError(t, err)
	require.Len(t, alertas, 1)
	assert.Equal(t, p.Presentaciones[0].ID, alertas[0].ID)
	require.NotNil(t, alertas[0].Producto)
	assert.Equal(t, "Miel Multifloral", alertas[0].Producto.Nombre)
}

// ── Search / List ─────────────────────────────────────────────────────────────

func TestSearch_IgnoraAcentosYEscapaComodines(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	cat := seedCategoria(t, db, "Mieles")
	seedProducto(t, db, cat, "MIEL-ORG", "Miel Orgánica", 1)
	seedProducto(t, db, cat, "MIEL-100", "Miel 100% pura", 1)
	seedProducto(t, db, cat, "MIEL-CRU", "Miel cruda", 1)
	ctx := context.Background()

	got, err := repo.Search(ctx, "organica")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MIEL-ORG", got[0].Codigo)

	got, err = repo.Search(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MIEL-100", got[0].Codigo)

	got, err = repo.Search(ctx, "%")
	require.NoError(t, err)
	assert.Len(t, got, 1, "a bare percent sign only matches names that contain it")

	got, err = repo.Search(ctx, "miel-cru-a")
	require.NoError(t, err)
	require.Len(t, got, 1, "presentation SKUs are searchable")
	assert.Equal(t, "MIEL-CRU", got[0].Codigo)
}

func TestList_PaginaYFiltra(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductoRepository(db)
	mieles := seedCategoria(t, db, "Mieles")
	derivados := seedCategoria(t, db, "Derivados")
	seedProducto(t, db, mieles, "A-1", "Abeja", 1)
	seedProducto(t, db, mieles, "B-1", "Bálsamo", 1)
	seedProducto(t, db, derivados, "C-1", "Cera", 1)

	list, total, err := repo.List(context.Background(), dto.ProductoFilter{
		CategoriaID: mieles.ID.String(), Sort: "nombre", Page: 1, Limit: 1,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Abeja", list[0].Nombre)
	assert.Len(t, list[0].Presentaciones, 1)
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "nombre asc", orderClause("nombre"))
	assert.Equal(t, "created_at desc", orderClause("-fecha_creacion"))
	assert.Equal(t, "created_at desc", orderClause("precio; DROP TABLE productos"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "100!%", escapeLike("100%"))
	assert.Equal(t, "a!_b", escapeLike("a_b"))
	assert.Equal(t, "!!", escapeLike("!"))
}
