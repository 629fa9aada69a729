package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"colmena/internal/apierror"
	"colmena/internal/dto"
	"colmena/internal/model"
	"colmena/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Actor is the authenticated principal a request runs on behalf of.
type Actor struct {
	UsuarioID uuid.UUID
	Rol       string
}

// ReciboEnqueuer schedules the receipt email of a committed sale.
type ReciboEnqueuer interface {
	EnqueueRecibo(ctx context.Context, ventaID uuid.UUID, email string) error
}

type VentaService interface {
	// CrearVenta reserves a folio, decrements every line's stock and persists the
	// sale in one transaction. Any rejected line aborts the whole sale.
	CrearVenta(ctx context.Context, actor Actor, req dto.CrearVentaRequest) (*dto.VentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context) ([]dto.VentaResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	productoRepo repository.ProductoRepository
	recibos      ReciboEnqueuer
	tracer       trace.Tracer
}

// NewVentaService builds the sale coordinator. recibos may be nil.
func NewVentaService(
	repo repository.VentaRepository,
	productoRepo repository.ProductoRepository,
	recibos ReciboEnqueuer,
) VentaService {
	return &ventaService{
		repo:         repo,
		productoRepo: productoRepo,
		recibos:      recibos,
		tracer:       otel.Tracer("colmena/service/venta"),
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// FormatFolio renders n as a sale folio, zero padded to four digits.
func FormatFolio(n int) string {
	return fmt.Sprintf("%s%04d", repository.FolioPrefix, n)
}

// ── CrearVenta ────────────────────────────────────────────────────────────────
//   1. Validate totals against the lines (outside the TX)
//   2. BEGIN TX: next folio (locks the counter row)
//   3. Conditional decrement per line, in request order; first failure aborts
//   4. Insert venta + items with name/SKU snapshots
//   5. COMMIT, then enqueue the receipt (best effort)

func (s *ventaService) CrearVenta(ctx context.Context, actor Actor, req dto.CrearVentaRequest) (*dto.VentaResponse, error) {
	ctx, span := s.tracer.Start(ctx, "VentaService.CrearVenta",
		trace.WithAttributes(
			attribute.String("venta.vendedor_id", actor.UsuarioID.String()),
			attribute.Int("venta.items", len(req.Productos)),
		))
	defer span.End()

	if actor.UsuarioID == uuid.Nil {
		return nil, apierror.Unauthorized("Se requiere un usuario autenticado")
	}

	lineas, err := validarVenta(req)
	if err != nil {
		return nil, err
	}

	cliente, err := clienteSnapshot(req.Cliente)
	if err != nil {
		return nil, err
	}
	moneda := strings.ToUpper(strings.TrimSpace(req.Totales.Moneda))
	if moneda == "" {
		moneda = "MXN"
	}

	var venta model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		n, err := s.repo.NextFolioTx(ctx, tx)
		if err != nil {
			return err
		}

		venta = model.Venta{
			Folio:             FormatFolio(n),
			Cliente:           cliente,
			Subtotal:          req.Totales.Subtotal,
			Descuento:         req.Totales.Descuento,
			IVA:               req.Totales.IVA,
			Total:             req.Totales.Total,
			Moneda:            moneda,
			MetodoPago:        req.MetodoPago,
			Estado:            model.EstadoCompletada,
			UsuarioVendedorID: actor.UsuarioID,
			UbicacionVenta:    req.UbicacionVenta,
			Notas:             req.Notas,
		}

		for i, l := range lineas {
			res, err := s.productoRepo.DecrementStockTx(ctx, tx, l.productoID, l.presentacionID, l.cantidad)
			if err != nil {
				return err
			}
			if res == repository.StockNoEncontrado {
				return apierror.Business(fmt.Sprintf("Producto o presentación con ID %s / %s no fue encontrado.", l.productoID, l.presentacionID))
			}

			prod, pres, err := s.productoRepo.FindPresentacionTx(ctx, tx, l.productoID, l.presentacionID)
			if err != nil {
				return err
			}
			if res == repository.StockInsuficiente {
				return apierror.Business(fmt.Sprintf("Stock insuficiente para el producto: %s (solicitado %d, disponible %d).", prod.Nombre, l.cantidad, pres.Stock))
			}

			unidad := l.unidad
			if unidad == nil {
				unidad = pres.Capacidad
			}
			venta.Items = append(venta.Items, model.VentaItem{
				ProductoID:     l.productoID,
				PresentacionID: l.presentacionID,
				Nombre:         prod.Nombre,
				SKU:            pres.SKU,
				Unidad:         unidad,
				Cantidad:       l.cantidad,
				PrecioUnitario: l.precio,
				Subtotal:       l.subtotal,
				Orden:          i,
			})
		}

		return s.repo.Create(ctx, tx, &venta)
	})
	if txErr != nil {
		span.RecordError(txErr)
		span.SetStatus(codes.Error, txErr.Error())
		return nil, s.traducirError(txErr, venta.Folio, actor, len(lineas))
	}
	span.SetAttributes(attribute.String("venta.folio", venta.Folio))

	log.Info().
		Str("folio", venta.Folio).
		Str("venta_id", venta.ID.String()).
		Str("vendedor_id", actor.UsuarioID.String()).
		Str("total", venta.Total.StringFixed(2)).
		Msg("venta creada")

	if s.recibos != nil && cliente.Email != nil && *cliente.Email != "" {
		if err := s.recibos.EnqueueRecibo(context.WithoutCancel(ctx), venta.ID, *cliente.Email); err != nil {
			log.Warn().Err(err).Str("folio", venta.Folio).Msg("no se pudo encolar el recibo")
		}
	}

	return ventaToResponse(&venta), nil
}

// traducirError keeps business rejections as they are and turns everything
// else into a logged internal error. The transaction is already rolled back.
func (s *ventaService) traducirError(err error, folio string, actor Actor, items int) error {
	if apierror.KindOf(err) != apierror.KindInternal {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierror.Conflict("El folio de la venta ya existe, intente nuevamente")
	}
	log.Error().Err(err).
		Str("folio", folio).
		Str("vendedor_id", actor.UsuarioID.String()).
		Int("items", items).
		Msg("error de infraestructura al crear la venta; transacción revertida")
	return apierror.Internal("crear venta", err)
}

type lineaVenta struct {
	productoID     uuid.UUID
	presentacionID uuid.UUID
	cantidad       int
	precio         decimal.Decimal
	subtotal       decimal.Decimal
	unidad         *string
}

// validarVenta checks ids, quantities and that the totals add up.
func validarVenta(req dto.CrearVentaRequest) ([]lineaVenta, error) {
	if len(req.Productos) == 0 {
		return nil, apierror.Validation("La venta debe incluir al menos un producto")
	}
	switch req.MetodoPago {
	case model.MetodoEfectivo, model.MetodoTarjeta, model.MetodoTransferencia:
	default:
		return nil, apierror.Validation("Método de pago no válido")
	}

	lineas := make([]lineaVenta, 0, len(req.Productos))
	suma := decimal.Zero
	for i, p := range req.Productos {
		pid, err := uuid.Parse(p.ProductoID)
		if err != nil {
			return nil, apierror.Validation(fmt.Sprintf("producto_id inválido en la línea %d", i+1))
		}
		presID, err := uuid.Parse(p.PresentacionID)
		if err != nil {
			return nil, apierror.Validation(fmt.Sprintf("presentacion_id inválido en la línea %d", i+1))
		}
		if p.Cantidad < 1 {
			return nil, apierror.Validation(fmt.Sprintf("La cantidad de la línea %d debe ser al menos 1", i+1))
		}
		if p.PrecioUnitario.IsNegative() {
			return nil, apierror.Validation(fmt.Sprintf("El precio de la línea %d no puede ser negativo", i+1))
		}
		esperado := p.PrecioUnitario.Mul(decimal.NewFromInt(int64(p.Cantidad)))
		if !esperado.Equal(p.SubtotalProducto) {
			return nil, apierror.Validation(fmt.Sprintf("El subtotal de la línea %d no coincide con precio por cantidad", i+1))
		}
		suma = suma.Add(esperado)
		lineas = append(lineas, lineaVenta{
			productoID:     pid,
			presentacionID: presID,
			cantidad:       p.Cantidad,
			precio:         p.PrecioUnitario,
			subtotal:       esperado,
			unidad:         p.Unidad,
		})
	}

	t := req.Totales
	if t.Descuento.IsNegative() || t.IVA.IsNegative() {
		return nil, apierror.Validation("Descuento e IVA no pueden ser negativos")
	}
	if !t.Subtotal.Equal(suma) {
		return nil, apierror.Validation("El subtotal no coincide con la suma de los productos")
	}
	if !t.Total.Equal(t.Subtotal.Sub(t.Descuento).Add(t.IVA)) {
		return nil, apierror.Validation("El total no coincide con subtotal - descuento + IVA")
	}
	if t.Total.IsNegative() {
		return nil, apierror.Validation("El total no puede ser negativo")
	}
	return lineas, nil
}

func clienteSnapshot(c dto.ClienteVentaRequest) (model.ClienteSnapshot, error) {
	nombre := strings.TrimSpace(c.Nombre)
	if nombre == "" {
		return model.ClienteSnapshot{}, apierror.Validation("El nombre del cliente es requerido")
	}
	snap := model.ClienteSnapshot{
		Tipo:      c.Tipo,
		Nombre:    nombre,
		RFC:       c.RFC,
		Direccion: c.Direccion,
	}
	if snap.Tipo == "" {
		snap.Tipo = "invitado"
	}
	if c.Email != nil {
		email := model.NormalizarEmail(*c.Email)
		snap.Email = &email
	}
	if c.UsuarioID != nil && *c.UsuarioID != "" {
		uid, err := uuid.Parse(*c.UsuarioID)
		if err != nil {
			return model.ClienteSnapshot{}, apierror.Validation("usuario_id del cliente inválido")
		}
		snap.UsuarioID = &uid
	}
	return snap, nil
}

// ── Read side ─────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("Venta no encontrada")
		}
		return nil, err
	}
	return ventaToResponse(v), nil
}

func (s *ventaService) ListarVentas(ctx context.Context) ([]dto.VentaResponse, error) {
	ventas, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		result = append(result, *ventaToResponse(&ventas[i]))
	}
	return result, nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ProductoVentaResponse, 0, len(v.Items))
	for _, item := range v.Items {
		r := dto.ProductoVentaResponse{
			ProductoID:       item.ProductoID.String(),
			PresentacionID:   item.PresentacionID.String(),
			Nombre:           item.Nombre,
			SKU:              item.SKU,
			Unidad:           item.Unidad,
			Cantidad:         item.Cantidad,
			PrecioUnitario:   item.PrecioUnitario,
			SubtotalProducto: item.Subtotal,
		}
		if item.Producto != nil {
			r.Codigo = item.Producto.Codigo
		}
		items = append(items, r)
	}

	cliente := dto.ClienteVentaResponse{
		Tipo:      v.Cliente.Tipo,
		Nombre:    v.Cliente.Nombre,
		Email:     v.Cliente.Email,
		RFC:       v.Cliente.RFC,
		Direccion: v.Cliente.Direccion,
	}
	if v.Cliente.UsuarioID != nil {
		uid := v.Cliente.UsuarioID.String()
		cliente.UsuarioID = &uid
	}

	resp := &dto.VentaResponse{
		ID:        v.ID.String(),
		Folio:     v.Folio,
		Cliente:   cliente,
		Productos: items,
		Totales: dto.TotalesResponse{
			Subtotal:  v.Subtotal,
			Descuento: v.Descuento,
			IVA:       v.IVA,
			Total:     v.Total,
			Moneda:    v.Moneda,
		},
		MetodoPago:        v.MetodoPago,
		Estado:            v.Estado,
		UsuarioVendedorID: v.UsuarioVendedorID.String(),
		UbicacionVenta:    v.UbicacionVenta,
		Notas:             v.Notas,
		FechaCreacion:     v.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.Vendedor != nil {
		resp.Vendedor = &dto.VendedorResponse{
			ID:     v.Vendedor.ID.String(),
			Nombre: v.Vendedor.Nombre,
			Email:  v.Vendedor.Email,
		}
	}
	return resp
}
