package service

import (
	"context"
	"testing"

	"colmena/internal/config"
	"colmena/internal/dto"
	"colmena/internal/infra"
	"colmena/internal/model"
	"colmena/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

type fixture struct {
	db           *gorm.DB
	ventaRepo    repository.VentaRepository
	productoRepo repository.ProductoRepository
	usuarioRepo  repository.UsuarioRepository
	categoria    *model.Categoria
	vendedor     *model.Usuario
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := infra.NewDatabase("sqlite:file:"+uuid.NewString()+"?mode=memory&cache=shared", infra.DBOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:           db,
		ventaRepo:    repository.NewVentaRepository(db),
		productoRepo: repository.NewProductoRepository(db),
		usuarioRepo:  repository.NewUsuarioRepository(db),
	}
	f.categoria = &model.Categoria{Nombre: "Mieles", Activo: true}
	require.NoError(t, db.Create(f.categoria).Error)
	f.vendedor = &model.Usuario{Nombre: "Ana Vendedora", Email: "ana@colmena.mx", PasswordHash: "x", Rol: model.RolAdministrador}
	require.NoError(t, db.Create(f.vendedor).Error)
	return f
}

func (f *fixture) actor() Actor {
	return Actor{UsuarioID: f.vendedor.ID, Rol: f.vendedor.Rol}
}

func strPtr(s string) *string { return &s }

// producto creates a product with one presentation per stock value.
func (f *fixture) producto(t *testing.T, codigo, nombre string, stocks ...int) *model.Producto {
	t.Helper()
	p := &model.Producto{Codigo: codigo, Nombre: nombre, CategoriaID: f.categoria.ID, Descripcion: "Miel de prueba", Activo: true}
	for i, s := range stocks {
		p.Presentaciones = append(p.Presentaciones, model.Presentacion{
			SKU:         strPtr(codigo + "-" + string(rune('A'+i))),
			Capacidad:   strPtr("250 g"),
			PrecioVenta: decimal.NewFromInt(120),
			Stock:       s,
			StockMinimo: 1,
			Orden:       i,
			Activo:      true,
		})
	}
	require.NoError(t, f.productoRepo.Create(context.Background(), p))
	return p
}

func (f *fixture) stock(t *testing.T, presentacionID uuid.UUID) int {
	t.Helper()
	var p model.Presentacion
	require.NoError(t, f.db.First(&p, "id = ?", presentacionID).Error)
	return p.Stock
}

func (f *fixture) ventas(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Venta{}).Count(&n).Error)
	return n
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
}

// ── Request builders ──────────────────────────────────────────────────────────

type linea struct {
	producto *model.Producto
	pres     int
	cantidad int
}

// ventaRequest builds a request whose totals add up, priced at 120 per unit.
func ventaRequest(lineas ...linea) dto.CrearVentaRequest {
	precio := decimal.NewFromInt(120)
	req := dto.CrearVentaRequest{
		Cliente:    dto.ClienteVentaRequest{Nombre: "Cliente Mostrador", Email: strPtr("Cliente@Ejemplo.com ")},
		MetodoPago: model.MetodoEfectivo,
	}
	subtotal := decimal.Zero
	for _, l := range lineas {
		st := precio.Mul(decimal.NewFromInt(int64(l.cantidad)))
		subtotal = subtotal.Add(st)
		req.Productos = append(req.Productos, dto.ProductoVentaRequest{
			ProductoID:       l.producto.ID.String(),
			PresentacionID:   l.producto.Presentaciones[l.pres].ID.String(),
			Nombre:           l.producto.Nombre,
			Cantidad:         l.cantidad,
			PrecioUnitario:   precio,
			SubtotalProducto: st,
		})
	}
	req.Totales = dto.TotalesRequest{Subtotal: subtotal, Total: subtotal}
	return req
}

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubEnqueuer struct {
	calls []string
	err   error
}

func (s *stubEnqueuer) EnqueueRecibo(_ context.Context, ventaID uuid.UUID, email string) error {
	s.calls = append(s.calls, ventaID.String()+" "+email)
	return s.err
}

var _ ReciboEnqueuer = (*stubEnqueuer)(nil)
