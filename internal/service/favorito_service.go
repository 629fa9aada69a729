package service

import (
	"context"
	"errors"

	"colmena/internal/apierror"
	"colmena/internal/dto"
	"colmena/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FavoritoService interface {
	Listar(ctx context.Context, usuarioID uuid.UUID) ([]dto.ProductoResponse, error)
	Agregar(ctx context.Context, usuarioID, productoID uuid.UUID) ([]string, error)
	Quitar(ctx context.Context, usuarioID, productoID uuid.UUID) ([]string, error)
	// Sincronizar merges ids into the stored favorites, ignoring unknown or deleted products.
	Sincronizar(ctx context.Context, usuarioID uuid.UUID, ids *[]string) ([]string, error)
}

type favoritoService struct {
	usuarios  repository.UsuarioRepository
	productos repository.ProductoRepository
}

func NewFavoritoService(usuarios repository.UsuarioRepository, productos repository.ProductoRepository) FavoritoService {
	return &favoritoService{usuarios: usuarios, productos: productos}
}

func (s *favoritoService) usuarioExiste(ctx context.Context, id uuid.UUID) error {
	if _, err := s.usuarios.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("Usuario no encontrado")
		}
		return err
	}
	return nil
}

func (s *favoritoService) ids(ctx context.Context, usuarioID uuid.UUID) ([]string, error) {
	ids, err := s.usuarios.FavoritoIDs(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out, nil
}

func (s *favoritoService) Listar(ctx context.Context, usuarioID uuid.UUID) ([]dto.ProductoResponse, error) {
	if err := s.usuarioExiste(ctx, usuarioID); err != nil {
		return nil, err
	}
	list, err := s.usuarios.ListFavoritos(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ProductoResponse, 0, len(list))
	for i := range list {
		result = append(result, productoToResponse(&list[i]))
	}
	return result, nil
}

func (s *favoritoService) Agregar(ctx context.Context, usuarioID, productoID uuid.UUID) ([]string, error) {
	if err := s.usuarioExiste(ctx, usuarioID); err != nil {
		return nil, err
	}
	ok, err := s.productos.ExistsActivo(ctx, productoID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.NotFound("Producto no encontrado")
	}
	if err := s.usuarios.AddFavorito(ctx, usuarioID, productoID); err != nil {
		return nil, err
	}
	return s.ids(ctx, usuarioID)
}

func (s *favoritoService) Quitar(ctx context.Context, usuarioID, productoID uuid.UUID) ([]string, error) {
	if err := s.usuarioExiste(ctx, usuarioID); err != nil {
		return nil, err
	}
	if err := s.usuarios.RemoveFavorito(ctx, usuarioID, productoID); err != nil {
		return nil, err
	}
	return s.ids(ctx, usuarioID)
}

func (s *favoritoService) Sincronizar(ctx context.Context, usuarioID uuid.UUID, ids *[]string) ([]string, error) {
	if ids == nil {
		return nil, apierror.Validation("Se requiere un arreglo de favoritos")
	}
	if err := s.usuarioExiste(ctx, usuarioID); err != nil {
		return nil, err
	}

	candidatos := make([]uuid.UUID, 0, len(*ids))
	for _, raw := range *ids {
		if id, err := uuid.Parse(raw); err == nil {
			candidatos = append(candidatos, id)
		}
	}
	existentes, err := s.productos.FilterExistentes(ctx, candidatos)
	if err != nil {
		return nil, err
	}
	for _, id := range existentes {
		if err := s.usuarios.AddFavorito(ctx, usuarioID, id); err != nil {
			return nil, err
		}
	}
	return s.ids(ctx, usuarioID)
}
