package repository

import (
	"context"

	"colmena/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoriaRepository defines CRUD operations for Categoria and Subcategoria.
type CategoriaRepository interface {
	Crear(ctx context.Context, c *model.Categoria) error
	Listar(ctx context.Context) ([]model.Categoria, error)
	Arbol(ctx context.Context) ([]model.Categoria, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*model.Categoria, error)
	ObtenerPorNombre(ctx context.Context, nombre string) (*model.Categoria, error)
	Actualizar(ctx context.Context, c *model.Categoria) error
	Desactivar(ctx context.Context, id uuid.UUID) error

	CrearSubcategoria(ctx context.Context, s *model.Subcategoria) error
	ListarSubcategorias(ctx context.Context, categoriaID *uuid.UUID) ([]model.Subcategoria, error)
	ObtenerSubcategoria(ctx context.Context, id uuid.UUID) (*model.Subcategoria, error)
	ObtenerSubcategoriaPorNombre(ctx context.Context, categoriaID uuid.UUID, nombre string) (*model.Subcategoria, error)
	EliminarTodo(ctx context.Context) error
}

type categoriaRepository struct{ db *gorm.DB }

func NewCategoriaRepository(db *gorm.DB) CategoriaRepository {
	return &categoriaRepository{db: db}
}

func (r *categoriaRepository) Crear(ctx context.Context, c *model.Categoria) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoriaRepository) Listar(ctx context.Context) ([]model.Categoria, error) {
	var list []model.Categoria
	err := r.db.WithContext(ctx).Order("nombre asc").Find(&list).Error
	return list, err
}

func (r *categoriaRepository) Arbol(ctx context.Context) ([]model.Categoria, error) {
	var list []model.Categoria
	err := r.db.WithContext(ctx).
		Preload("Subcategorias", func(db *gorm.DB) *gorm.DB { return db.Order("nombre asc") }).
		Where("activo = ?", true).
		Order("nombre asc").
		Find(&list).Error
	return list, err
}

func (r *categoriaRepository) ObtenerPorID(ctx context.Context, id uuid.UUID) (*model.Categoria, error) {
	var c model.Categoria
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoriaRepository) ObtenerPorNombre(ctx context.Context, nombre string) (*model.Categoria, error) {
	var c model.Categoria
	err := r.db.WithContext(ctx).Where("lower(nombre) = lower(?)", nombre).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoriaRepository) Actualizar(ctx context.Context, c *model.Categoria) error {
	return r.db.WithContext(ctx).Omit("Subcategorias").Save(c).Error
}

func (r *categoriaRepository) Desactivar(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Categoria{}).Where("id = ?", id).Update("activo", false).Error
}

func (r *categoriaRepository) CrearSubcategoria(ctx context.Context, s *model.Subcategoria) error {
	return r.db.WithContext(ctx).Omit("Categoria").Create(s).Error
}

func (r *categoriaRepository) ListarSubcategorias(ctx context.Context, categoriaID *uuid.UUID) ([]model.Subcategoria, error) {
	var list []model.Subcategoria
	q := r.db.WithContext(ctx).Preload("Categoria")
	if categoriaID != nil {
		q = q.Where("categoria_id = ?", *categoriaID)
	}
	err := q.Order("nombre asc").Find(&list).Error
	return list, err
}

func (r *categoriaRepository) ObtenerSubcategoria(ctx context.Context, id uuid.UUID) (*model.Subcategoria, error) {
	var s model.Subcategoria
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *categoriaRepository) ObtenerSubcategoriaPorNombre(ctx context.Context, categoriaID uuid.UUID, nombre string) (*model.Subcategoria, error) {
	var s model.Subcategoria
	err := r.db.WithContext(ctx).
		Where("categoria_id = ? AND lower(nombre) = lower(?)", categoriaID, nombre).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// EliminarTodo removes every subcategory and category in one transaction.
func (r *categoriaRepository) EliminarTodo(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Subcategoria{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.Categoria{}).Error
	})
}
