package repository

import (
	"context"
	"time"

	"colmena/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	FindByEmail(ctx context.Context, email string) (*model.Usuario, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	Update(ctx context.Context, u *model.Usuario) error
	TouchUltimoAcceso(ctx context.Context, id uuid.UUID, at time.Time) error
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)

	AddFavorito(ctx context.Context, usuarioID, productoID uuid.UUID) error
	RemoveFavorito(ctx context.Context, usuarioID, productoID uuid.UUID) error
	FavoritoIDs(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error)
	ListFavoritos(ctx context.Context, usuarioID uuid.UUID) ([]model.Producto, error)
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).Where("email = ?", model.NormalizarEmail(email)).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var u model.Usuario
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) Update(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *usuarioRepo) TouchUltimoAcceso(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Usuario{}).Where("id = ?", id).UpdateColumn("ultimo_acceso", at).Error
}

func (r *usuarioRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Usuario{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

// AddFavorito is idempotent: adding an existing favorite is a no-op.
func (r *usuarioRepo) AddFavorito(ctx context.Context, usuarioID, productoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UsuarioFavorito{UsuarioID: usuarioID, ProductoID: productoID}).Error
}

func (r *usuarioRepo) RemoveFavorito(ctx context.Context, usuarioID, productoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("usuario_id = ? AND producto_id = ?", usuarioID, productoID).
		Delete(&model.UsuarioFavorito{}).Error
}

func (r *usuarioRepo) FavoritoIDs(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error) {
	var favs []model.UsuarioFavorito
	err := r.db.WithContext(ctx).Where("usuario_id = ?", usuarioID).Order("created_at asc").Find(&favs).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(favs))
	for i, f := range favs {
		ids[i] = f.ProductoID
	}
	return ids, nil
}

func (r *usuarioRepo) ListFavoritos(ctx context.Context, usuarioID uuid.UUID) ([]model.Producto, error) {
	var list []model.Producto
	err := r.db.WithContext(ctx).
		Joins("JOIN usuario_favoritos uf ON uf.producto_id = productos.id").
		Where("uf.usuario_id = ? AND productos.eliminado = ?", usuarioID, false).
		Preload("Presentaciones", activePresentaciones).
		Preload("Categoria").
		Order("uf.created_at asc").
		Find(&list).Error
	return list, err
}
