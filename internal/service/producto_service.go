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
	"gorm.io/gorm"
)

// ProductoService defines the business logic contract for products and their presentations.
type ProductoService interface {
	Crear(ctx context.Context, req dto.ProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ObtenerPorIDs(ctx context.Context, ids []string) ([]dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Buscar(ctx context.Context, query string) ([]dto.ProductoResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ProductoRequest) (*dto.ProductoResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
	Presentaciones(ctx context.Context, id uuid.UUID) ([]dto.PresentacionResponse, error)
	EliminarPresentacion(ctx context.Context, productoID, presentacionID uuid.UUID) error
	Alertas(ctx context.Context) ([]dto.AlertaStockResponse, error)

	// Importar creates the products whose codigo is not taken yet and skips the rest.
	Importar(ctx context.Context, reqs []dto.ProductoRequest) (creados, omitidos int, err error)
	// Normalizar recomputes the search columns of every product and presentation.
	Normalizar(ctx context.Context) (int, error)
	ListarTodos(ctx context.Context) ([]dto.ProductoResponse, error)
}

type productoService struct {
	repo          repository.ProductoRepository
	categoriaRepo repository.CategoriaRepository
}

func NewProductoService(repo repository.ProductoRepository, categoriaRepo repository.CategoriaRepository) ProductoService {
	return &productoService{repo: repo, categoriaRepo: categoriaRepo}
}

var errProductoNoEncontrado = apierror.NotFound("Producto no encontrado")

// resolverCategoria checks the category exists and that the subcategory, when
// given, belongs to it.
func (s *productoService) resolverCategoria(ctx context.Context, categoriaID string, subcategoriaID *string) (uuid.UUID, *uuid.UUID, error) {
	catID, err := uuid.Parse(categoriaID)
	if err != nil {
		return uuid.Nil, nil, apierror.Validation("categoria_id inválido")
	}
	if _, err := s.categoriaRepo.ObtenerPorID(ctx, catID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil, apierror.Validation("La categoría indicada no existe")
		}
		return uuid.Nil, nil, err
	}
	if subcategoriaID == nil || *subcategoriaID == "" {
		return catID, nil, nil
	}
	subID, err := uuid.Parse(*subcategoriaID)
	if err != nil {
		return uuid.Nil, nil, apierror.Validation("subcategoria_id inválido")
	}
	sub, err := s.categoriaRepo.ObtenerSubcategoria(ctx, subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil, apierror.Validation("La subcategoría indicada no existe")
		}
		return uuid.Nil, nil, err
	}
	if sub.CategoriaID != catID {
		return uuid.Nil, nil, apierror.Validation("La subcategoría no pertenece a la categoría indicada")
	}
	return catID, &subID, nil
}

func (s *productoService) Crear(ctx context.Context, req dto.ProductoRequest) (*dto.ProductoResponse, error) {
	catID, subID, err := s.resolverCategoria(ctx, req.CategoriaID, req.SubcategoriaID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByCodigo(ctx, req.Codigo); err == nil {
		return nil, apierror.Conflict(fmt.Sprintf("Ya existe un producto con el código %s", strings.TrimSpace(req.Codigo)))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &model.Producto{Activo: true}
	aplicarProducto(p, req, catID, subID)
	for i, pr := range req.Presentaciones {
		pres := model.Presentacion{Activo: true, StockMinimo: 10}
		aplicarPresentacion(&pres, pr, i)
		p.Presentaciones = append(p.Presentaciones, pres)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict(fmt.Sprintf("Ya existe un producto con el código %s", p.Codigo))
		}
		return nil, err
	}
	return s.ObtenerPorID(ctx, p.ID)
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProductoNoEncontrado
		}
		return nil, err
	}
	resp := productoToResponse(p)
	return &resp, nil
}

// ObtenerPorIDs returns the products in the order the ids were given,
// silently dropping ids that do not name a live product.
func (s *productoService) ObtenerPorIDs(ctx context.Context, ids []string) ([]dto.ProductoResponse, error) {
	if len(ids) == 0 {
		return nil, apierror.Validation("Se requiere al menos un ID de producto")
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apierror.Validation(fmt.Sprintf("ID de producto inválido: %s", raw))
		}
		parsed = append(parsed, id)
	}

	list, err := s.repo.FindByIDs(ctx, parsed)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Producto, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}

	result := make([]dto.ProductoResponse, 0, len(list))
	seen := make(map[uuid.UUID]bool, len(parsed))
	for _, id := range parsed {
		p, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, productoToResponse(p))
	}
	return result, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Sort == "" {
		filter.Sort = "-fecha_creacion"
	}

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(list))
	for i := range list {
		data = append(data, productoToResponse(&list[i]))
	}
	pages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &dto.ProductoListResponse{
		Data:  data,
		Total: total,
		Count: len(data),
		Page:  filter.Page,
		Pages: pages,
		Limit: filter.Limit,
	}, nil
}

func (s *productoService) Buscar(ctx context.Context, query string) ([]dto.ProductoResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apierror.Validation("El parámetro de búsqueda es requerido")
	}
	list, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProductoResponse, 0, len(list))
	for i := range list {
		result = append(result, productoToResponse(&list[i]))
	}
	return result, nil
}

// Actualizar replaces the product fields. Presentations carrying a known id are
// updated in place, the others are created, and live presentations missing from
// the payload are soft-deleted.
func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errProductoNoEncontrado
		}
		return nil, err
	}
	catID, subID, err := s.resolverCategoria(ctx, req.CategoriaID, req.SubcategoriaID)
	if err != nil {
		return nil, err
	}
	if codigo := strings.TrimSpace(req.Codigo); codigo != p.Codigo {
		if other, err := s.repo.FindByCodigo(ctx, codigo); err == nil && other.ID != p.ID {
			return nil, apierror.Conflict(fmt.Sprintf("Ya existe un producto con el código %s", codigo))
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	existentes := make(map[uuid.UUID]model.Presentacion, len(p.Presentaciones))
	for _, pres := range p.Presentaciones {
		existentes[pres.ID] = pres
	}

	keep := make([]model.Presentacion, 0, len(req.Presentaciones))
	for i, pr := range req.Presentaciones {
		pres := model.Presentacion{Activo: true, StockMinimo: 10}
		if pr.ID != "" {
			if pid, err := uuid.Parse(pr.ID); err == nil {
				if prev, ok := existentes[pid]; ok {
					pres = prev
					pres.Producto = nil
				}
			}
		}
		aplicarPresentacion(&pres, pr, i)
		keep = append(keep, pres)
	}

	aplicarProducto(p, req, catID, subID)
	p.Categoria, p.Subcategoria, p.Presentaciones = nil, nil, nil

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
			return err
		}
		return s.repo.SavePresentacionesTx(ctx, tx, p.ID, keep)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict(fmt.Sprintf("Ya existe un producto con el código %s", p.Codigo))
		}
		return nil, err
	}
	return s.ObtenerPorID(ctx, id)
}

func (s *productoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.ExistsActivo(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errProductoNoEncontrado
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *productoService) Presentaciones(ctx context.Context, id uuid.UUID) ([]dto.PresentacionResponse, error) {
	ok, err := s.repo.ExistsActivo(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errProductoNoEncontrado
	}
	list, err := s.repo.ListPresentaciones(ctx, id)
	if err != nil {
		return nil, err
	}
	result := make([]dto.PresentacionResponse, 0, len(list))
	for i := range list {
		result = append(result, presentacionToResponse(&list[i]))
	}
	return result, nil
}

func (s *productoService) EliminarPresentacion(ctx context.Context, productoID, presentacionID uuid.UUID) error {
	ok, err := s.repo.ExistsActivo(ctx, productoID)
	if err != nil {
		return err
	}
	if !ok {
		return errProductoNoEncontrado
	}
	deleted, err := s.repo.SoftDeletePresentacion(ctx, productoID, presentacionID)
	if err != nil {
		return err
	}
	if !deleted {
		return apierror.NotFound("Presentación no encontrada")
	}
	return nil
}

func (s *productoService) Alertas(ctx context.Context) ([]dto.AlertaStockResponse, error) {
	list, err := s.repo.ListAlertas(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.AlertaStockResponse, 0, len(list))
	for _, pres := range list {
		alerta := dto.AlertaStockResponse{
			ProductoID:     pres.ProductoID.String(),
			PresentacionID: pres.ID.String(),
			SKU:            pres.SKU,
			Stock:          pres.Stock,
			StockMinimo:    pres.StockMinimo,
		}
		if pres.Producto != nil {
			alerta.Producto = pres.Producto.Nombre
		}
		result = append(result, alerta)
	}
	return result, nil
}

func (s *productoService) Importar(ctx context.Context, reqs []dto.ProductoRequest) (int, int, error) {
	creados, omitidos := 0, 0
	for _, req := range reqs {
		_, err := s.Crear(ctx, req)
		switch {
		case err == nil:
			creados++
		case apierror.Is(err, apierror.KindConflict):
			omitidos++
		default:
			return creados, omitidos, fmt.Errorf("importar %s: %w", req.Codigo, err)
		}
	}
	return creados, omitidos, nil
}

func (s *productoService) Normalizar(ctx context.Context) (int, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range list {
		p := &list[i]
		err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			pres := p.Presentaciones
			p.Presentaciones = nil
			if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
				return err
			}
			return s.repo.SavePresentacionesTx(ctx, tx, p.ID, pres)
		})
		if err != nil {
			return n, fmt.Errorf("normalizar %s: %w", p.Codigo, err)
		}
		n++
	}
	return n, nil
}

func (s *productoService) ListarTodos(ctx context.Context) ([]dto.ProductoResponse, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProductoResponse, 0, len(list))
	for i := range list {
		result = append(result, productoToResponse(&list[i]))
	}
	return result, nil
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func aplicarProducto(p *model.Producto, req dto.ProductoRequest, catID uuid.UUID, subID *uuid.UUID) {
	p.Codigo = strings.TrimSpace(req.Codigo)
	p.Nombre = strings.TrimSpace(req.Nombre)
	p.Tipo = req.Tipo
	p.CategoriaID = catID
	p.SubcategoriaID = subID
	p.EstadoFisico = req.EstadoFisico
	p.Descripcion = req.Descripcion
	p.Atributos = req.Atributos
	p.Imagenes = req.Imagenes
	if p.Imagenes == nil {
		p.Imagenes = []string{}
	}
	if req.Activo != nil {
		p.Activo = *req.Activo
	}
}

func aplicarPresentacion(pres *model.Presentacion, req dto.PresentacionRequest, orden int) {
	pres.SKU = req.SKU
	pres.Formato = req.Formato
	pres.Capacidad = req.Capacidad
	pres.PrecioVenta = req.PrecioVenta
	pres.PrecioCompra = req.PrecioCompra
	pres.Stock = req.Stock
	if req.StockMinimo != nil {
		pres.StockMinimo = *req.StockMinimo
	}
	pres.Lote = req.Lote
	pres.FechaIngreso = req.FechaIngreso
	pres.FechaVencimiento = req.FechaVencimiento
	pres.Proveedor = req.Proveedor
	pres.Ubicacion = req.Ubicacion
	pres.Observaciones = req.Observaciones
	pres.Orden = orden
	if req.Activo != nil {
		pres.Activo = *req.Activo
	}
}

func presentacionToResponse(p *model.Presentacion) dto.PresentacionResponse {
	return dto.PresentacionResponse{
		ID:               p.ID.String(),
		SKU:              p.SKU,
		Formato:          p.Formato,
		Capacidad:        p.Capacidad,
		PrecioVenta:      p.PrecioVenta,
		PrecioCompra:     p.PrecioCompra,
		Stock:            p.Stock,
		StockMinimo:      p.StockMinimo,
		Lote:             p.Lote,
		FechaIngreso:     p.FechaIngreso,
		FechaVencimiento: p.FechaVencimiento,
		Proveedor:        p.Proveedor,
		Ubicacion:        p.Ubicacion,
		Observaciones:    p.Observaciones,
		Activo:           p.Activo,
	}
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	pres := make([]dto.PresentacionResponse, 0, len(p.Presentaciones))
	for i := range p.Presentaciones {
		pres = append(pres, presentacionToResponse(&p.Presentaciones[i]))
	}
	resp := dto.ProductoResponse{
		ID:                 p.ID.String(),
		Codigo:             p.Codigo,
		Nombre:             p.Nombre,
		Tipo:               p.Tipo,
		CategoriaID:        p.CategoriaID.String(),
		EstadoFisico:       p.EstadoFisico,
		Descripcion:        p.Descripcion,
		Atributos:          p.Atributos,
		Imagenes:           p.Imagenes,
		Presentaciones:     pres,
		Activo:             p.Activo,
		FechaCreacion:      p.CreatedAt.UTC().Format(time.RFC3339),
		FechaActualizacion: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if resp.Imagenes == nil {
		resp.Imagenes = []string{}
	}
	if p.Categoria != nil {
		resp.CategoriaNombre = p.Categoria.Nombre
	}
	if p.SubcategoriaID != nil {
		sid := p.SubcategoriaID.String()
		resp.SubcategoriaID = &sid
	}
	if p.Subcategoria != nil {
		resp.SubcategoriaNombre = p.Subcategoria.Nombre
	}
	return resp
}
