package repository

import (
	"context"
	"strings"
	"time"

	"colmena/internal/dto"
	"colmena/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockResult is the outcome of a conditional stock decrement.
type StockResult int

const (
	StockDescontado   StockResult = iota // stock decremented
	StockInsuficiente                    // presentation exists but stock < cantidad
	StockNoEncontrado                    // product or presentation missing or deleted
)

func (r StockResult) String() string {
	switch r {
	case StockDescontado:
		return "descontado"
	case StockInsuficiente:
		return "insuficiente"
	default:
		return "no_encontrado"
	}
}

type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	Search(ctx context.Context, query string) ([]model.Producto, error)
	ListAll(ctx context.Context) ([]model.Producto, error)
	CountActivos(ctx context.Context) (int64, error)
	ExistsActivo(ctx context.Context, id uuid.UUID) (bool, error)
	FilterExistentes(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	ListPresentaciones(ctx context.Context, productoID uuid.UUID) ([]model.Presentacion, error)
	ListAlertas(ctx context.Context) ([]model.Presentacion, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SoftDeletePresentacion(ctx context.Context, productoID, presentacionID uuid.UUID) (bool, error)

	UpdateTx(ctx context.Context, tx *gorm.DB, p *model.Producto) error
	SavePresentacionesTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, keep []model.Presentacion) error

	// DecrementStockTx atomically subtracts cantidad from a presentation's stock
	// only when the presentation belongs to productoID and has enough stock.
	DecrementStockTx(ctx context.Context, tx *gorm.DB, productoID, presentacionID uuid.UUID, cantidad int) (StockResult, error)
	FindPresentacionTx(ctx context.Context, tx *gorm.DB, productoID, presentacionID uuid.UUID) (*model.Producto, *model.Presentacion, error)
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) DB() *gorm.DB { return r.db }

// activePresentaciones preloads the non-deleted presentations in payload order.
func activePresentaciones(db *gorm.DB) *gorm.DB {
	return db.Where("eliminado = ?", false).Order("orden asc, created_at asc")
}

func (r *productoRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Presentaciones", activePresentaciones).
		Preload("Categoria").
		Preload("Subcategoria")
}

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Omit("Categoria", "Subcategoria").Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.withRelations(ctx).Where("id = ? AND eliminado = ?", id, false).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error) {
	var list []model.Producto
	err := r.withRelations(ctx).Where("id IN ? AND eliminado = ?", ids, false).Find(&list).Error
	return list, err
}

func (r *productoRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo = ?", strings.TrimSpace(codigo)).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// sortColumns whitelists the public sort keys. A leading "-" means descending.
var sortColumns = map[string]string{
	"fecha_creacion":      "created_at",
	"fecha_actualizacion": "updated_at",
	"nombre":              "nombre",
	"codigo":              "codigo",
}

func orderClause(sort string) string {
	dir := "asc"
	if strings.HasPrefix(sort, "-") {
		dir = "desc"
		sort = sort[1:]
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "created_at desc"
	}
	return col + " " + dir
}

// escapeLike escapes LIKE wildcards in user input; '!' is the escape char.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

func (r *productoRepo) searchScope(query string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + escapeLike(model.Normalizar(query)) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"productos.busqueda LIKE ? ESCAPE '!' OR EXISTS (SELECT 1 FROM presentaciones p WHERE p.producto_id = productos.id AND p.eliminado = ? AND p.busqueda LIKE ? ESCAPE '!')",
			pattern, false, pattern,
		)
	}
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var list []model.Producto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Producto{}).Where("productos.eliminado = ?", false)
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Scopes(r.searchScope(s))
	}
	if filter.CategoriaID != "" {
		q = q.Where("productos.categoria_id = ?", filter.CategoriaID)
	}
	if filter.Activo != nil {
		q = q.Where("productos.activo = ?", *filter.Activo)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Presentaciones", activePresentaciones).
		Preload("Categoria").
		Preload("Subcategoria").
		Order(orderClause(filter.Sort)).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&list).Error
	return list, total, err
}

func (r *productoRepo) Search(ctx context.Context, query string) ([]model.Producto, error) {
	var list []model.Producto
	err := r.withRelations(ctx).
		Where("productos.eliminado = ?", false).
		Scopes(r.searchScope(query)).
		Order("nombre asc").
		Find(&list).Error
	return list, err
}

func (r *productoRepo) ListAll(ctx context.Context) ([]model.Producto, error) {
	var list []model.Producto
	err := r.db.WithContext(ctx).Preload("Presentaciones", activePresentaciones).Order("codigo asc").Find(&list).Error
	return list, err
}

func (r *productoRepo) CountActivos(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Producto{}).Where("eliminado = ?", false).Count(&n).Error
	return n, err
}

func (r *productoRepo) ExistsActivo(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ? AND eliminado = ?", id, false).Count(&n).Error
	return n > 0, err
}

// FilterExistentes returns the subset of ids that name non-deleted products.
func (r *productoRepo) FilterExistentes(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Producto{}).
		Where("id IN ? AND eliminado = ?", ids, false).
		Pluck("id", &found).Error
	return found, err
}

func (r *productoRepo) ListPresentaciones(ctx context.Context, productoID uuid.UUID) ([]model.Presentacion, error) {
	var list []model.Presentacion
	err := activePresentaciones(r.db.WithContext(ctx)).Where("producto_id = ?", productoID).Find(&list).Error
	return list, err
}

func (r *productoRepo) ListAlertas(ctx context.Context) ([]model.Presentacion, error) {
	var list []model.Presentacion
	err := r.db.WithContext(ctx).
		Joins("JOIN productos ON productos.id = presentaciones.producto_id").
		Preload("Producto").
		Where("presentaciones.eliminado = ? AND presentaciones.activo = ? AND presentaciones.stock <= presentaciones.stock_minimo", false, true).
		Where("productos.eliminado = ?", false).
		Order("presentaciones.stock asc").
		Find(&list).Error
	return list, err
}

func (r *productoRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).
		Updates(map[string]any{"activo": false, "eliminado": true, "fecha_eliminacion": now}).Error
}

func (r *productoRepo) SoftDeletePresentacion(ctx context.Context, productoID, presentacionID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&model.Presentacion{}).
		Where("id = ? AND producto_id = ? AND eliminado = ?", presentacionID, productoID, false).
		Updates(map[string]any{"activo": false, "eliminado": true, "fecha_eliminacion": now})
	return res.RowsAffected > 0, res.Error
}

func (r *productoRepo) UpdateTx(ctx context.Context, tx *gorm.DB, p *model.Producto) error {
	return tx.WithContext(ctx).Omit("Presentaciones", "Categoria", "Subcategoria").Save(p).Error
}

// SavePresentacionesTx updates the presentations in keep that already exist,
// creates the rest, and soft-deletes every other live presentation of the product.
// Presentations are never hard-deleted because sales reference them.
func (r *productoRepo) SavePresentacionesTx(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, keep []model.Presentacion) error {
	db := tx.WithContext(ctx)

	var existing []uuid.UUID
	if err := db.Model(&model.Presentacion{}).Where("producto_id = ?", productoID).Pluck("id", &existing).Error; err != nil {
		return err
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	kept := make([]uuid.UUID, 0, len(keep))
	for i := range keep {
		p := &keep[i]
		p.ProductoID = productoID
		var err error
		if p.ID != uuid.Nil && known[p.ID] {
			err = db.Omit("Producto").Save(p).Error
		} else {
			err = db.Omit("Producto").Create(p).Error
		}
		if err != nil {
			return err
		}
		kept = append(kept, p.ID)
	}

	q := db.Model(&model.Presentacion{}).Where("producto_id = ? AND eliminado = ?", productoID, false)
	if len(kept) > 0 {
		q = q.Where("id NOT IN ?", kept)
	}
	return q.Updates(map[string]any{"activo": false, "eliminado": true, "fecha_eliminacion": time.Now().UTC()}).Error
}

func (r *productoRepo) DecrementStockTx(ctx context.Context, tx *gorm.DB, productoID, presentacionID uuid.UUID, cantidad int) (StockResult, error) {
	db := tx.WithContext(ctx)
	res := db.Model(&model.Presentacion{}).
		Where("id = ? AND producto_id = ? AND eliminado = ? AND stock >= ?", presentacionID, productoID, false, cantidad).
		Where("EXISTS (SELECT 1 FROM productos WHERE productos.id = presentaciones.producto_id AND productos.eliminado = ?)", false).
		Update("stock", gorm.Expr("stock - ?", cantidad))
	if res.Error != nil {
		return StockNoEncontrado, res.Error
	}
	if res.RowsAffected > 0 {
		return StockDescontado, nil
	}

	// Nothing matched: tell a missing presentation from a short one.
	var n int64
	err := db.Table("presentaciones").
		Joins("JOIN productos ON productos.id = presentaciones.producto_id").
		Where("presentaciones.id = ? AND presentaciones.producto_id = ? AND presentaciones.eliminado = ? AND productos.eliminado = ?",
			presentacionID, productoID, false, false).
		Count(&n).Error
	if err != nil {
		return StockNoEncontrado, err
	}
	if n == 0 {
		return StockNoEncontrado, nil
	}
	return StockInsuficiente, nil
}

func (r *productoRepo) FindPresentacionTx(ctx context.Context, tx *gorm.DB, productoID, presentacionID uuid.UUID) (*model.Producto, *model.Presentacion, error) {
	db := tx.WithContext(ctx)
	var p model.Producto
	if err := db.Where("id = ?", productoID).First(&p).Error; err != nil {
		return nil, nil, err
	}
	var pres model.Presentacion
	if err := db.Where("id = ? AND producto_id = ?", presentacionID, productoID).First(&pres).Error; err != nil {
		return nil, nil, err
	}
	return &p, &pres, nil
}
