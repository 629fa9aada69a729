package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"colmena/internal/apierror"
	"colmena/internal/dto"
	"colmena/internal/model"
	"colmena/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const arbolCacheKey = "catalogo:arbol"

// CategoriaService defines business operations for categories and subcategories.
type CategoriaService interface {
	Crear(ctx context.Context, req dto.CrearCategoriaRequest) (dto.CategoriaResponse, error)
	Listar(ctx context.Context) ([]dto.CategoriaResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarCategoriaRequest) (dto.CategoriaResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
	Arbol(ctx context.Context) ([]dto.CategoriaArbol, error)

	CrearSubcategoria(ctx context.Context, req dto.CrearSubcategoriaRequest) (dto.SubcategoriaResponse, error)
	ListarSubcategorias(ctx context.Context, categoriaID *uuid.UUID) ([]dto.SubcategoriaResponse, error)

	// Importar upserts categories by name together with their subcategories.
	Importar(ctx context.Context, semillas []SemillaCategoria) (creadas int, err error)
	EliminarTodo(ctx context.Context) error
}

// SemillaCategoria is one entry of a category seed file.
type SemillaCategoria struct {
	Categoria     string   `json:"categoria"     yaml:"categoria"`
	Subcategorias []string `json:"subcategorias" yaml:"subcategorias"`
}

type categoriaService struct {
	repo repository.CategoriaRepository
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCategoriaService builds the service. rdb may be nil, which disables the tree cache.
func NewCategoriaService(repo repository.CategoriaRepository, rdb *redis.Client, ttl time.Duration) CategoriaService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &categoriaService{repo: repo, rdb: rdb, ttl: ttl}
}

func mapCategoria(c model.Categoria) dto.CategoriaResponse {
	return dto.CategoriaResponse{
		ID:          c.ID,
		Nombre:      c.Nombre,
		Descripcion: c.Descripcion,
		Activo:      c.Activo,
	}
}

func mapSubcategoria(s model.Subcategoria) dto.SubcategoriaResponse {
	resp := dto.SubcategoriaResponse{ID: s.ID, Nombre: s.Nombre, CategoriaID: s.CategoriaID}
	if s.Categoria != nil {
		resp.CategoriaNombre = s.Categoria.Nombre
	}
	return resp
}

func (s *categoriaService) Crear(ctx context.Context, req dto.CrearCategoriaRequest) (dto.CategoriaResponse, error) {
	nombre := strings.TrimSpace(req.Nombre)
	existing, err := s.repo.ObtenerPorNombre(ctx, nombre)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.CategoriaResponse{}, err
	}
	if existing != nil {
		return dto.CategoriaResponse{}, apierror.Conflict("Ya existe una categoría con ese nombre")
	}

	c := &model.Categoria{
		Nombre:      nombre,
		Descripcion: req.Descripcion,
		Activo:      true,
	}
	if err := s.repo.Crear(ctx, c); err != nil {
		return dto.CategoriaResponse{}, err
	}
	s.invalidarArbol(ctx)
	return mapCategoria(*c), nil
}

func (s *categoriaService) Listar(ctx context.Context) ([]dto.CategoriaResponse, error) {
	list, err := s.repo.Listar(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CategoriaResponse, 0, len(list))
	for _, c := range list {
		result = append(result, mapCategoria(c))
	}
	return result, nil
}

func (s *categoriaService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarCategoriaRequest) (dto.CategoriaResponse, error) {
	c, err := s.repo.ObtenerPorID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CategoriaResponse{}, apierror.NotFound("Categoría no encontrada")
		}
		return dto.CategoriaResponse{}, err
	}

	if req.Nombre != nil {
		nombre := strings.TrimSpace(*req.Nombre)
		if !strings.EqualFold(nombre, c.Nombre) {
			existing, err := s.repo.ObtenerPorNombre(ctx, nombre)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.CategoriaResponse{}, err
			}
			if existing != nil && existing.ID != id {
				return dto.CategoriaResponse{}, apierror.Conflict("Ya existe una categoría con ese nombre")
			}
		}
		c.Nombre = nombre
	}
	if req.Descripcion != nil {
		c.Descripcion = req.Descripcion
	}
	if req.Activo != nil {
		c.Activo = *req.Activo
	}

	if err := s.repo.Actualizar(ctx, c); err != nil {
		return dto.CategoriaResponse{}, err
	}
	s.invalidarArbol(ctx)
	return mapCategoria(*c), nil
}

func (s *categoriaService) Desactivar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.ObtenerPorID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("Categoría no encontrada")
		}
		return err
	}
	if err := s.repo.Desactivar(ctx, id); err != nil {
		return err
	}
	s.invalidarArbol(ctx)
	return nil
}

// Arbol serves categories with nested subcategories, cached in Redis.
func (s *categoriaService) Arbol(ctx context.Context) ([]dto.CategoriaArbol, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, arbolCacheKey).Bytes(); err == nil {
			var arbol []dto.CategoriaArbol
			if jsonErr := json.Unmarshal(cached, &arbol); jsonErr == nil {
				return arbol, nil
			}
		}
	}

	list, err := s.repo.Arbol(ctx)
	if err != nil {
		return nil, err
	}
	arbol := make([]dto.CategoriaArbol, 0, len(list))
	for _, c := range list {
		subs := make([]dto.SubcategoriaResponse, 0, len(c.Subcategorias))
		for _, sc := range c.Subcategorias {
			sc.Categoria = &model.Categoria{Nombre: c.Nombre}
			subs = append(subs, mapSubcategoria(sc))
		}
		arbol = append(arbol, dto.CategoriaArbol{CategoriaResponse: mapCategoria(c), Subcategorias: subs})
	}

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(arbol); jsonErr == nil {
			_ = s.rdb.Set(context.WithoutCancel(ctx), arbolCacheKey, b, s.ttl).Err()
		}
	}
	return arbol, nil
}

func (s *categoriaService) invalidarArbol(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(context.WithoutCancel(ctx), arbolCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("categorias: failed to invalidate tree cache")
	}
}

func (s *categoriaService) CrearSubcategoria(ctx context.Context, req dto.CrearSubcategoriaRequest) (dto.SubcategoriaResponse, error) {
	categoriaID, err := uuid.Parse(req.CategoriaID)
	if err != nil {
		return dto.SubcategoriaResponse{}, apierror.Validation("categoria_id inválido")
	}
	cat, err := s.repo.ObtenerPorID(ctx, categoriaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubcategoriaResponse{}, apierror.NotFound("Categoría no encontrada")
		}
		return dto.SubcategoriaResponse{}, err
	}

	nombre := strings.TrimSpace(req.Nombre)
	if _, err := s.repo.ObtenerSubcategoriaPorNombre(ctx, categoriaID, nombre); err == nil {
		return dto.SubcategoriaResponse{}, apierror.Conflict("Ya existe una subcategoría con ese nombre en la categoría")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubcategoriaResponse{}, err
	}

	sub := &model.Subcategoria{Nombre: nombre, CategoriaID: categoriaID}
	if err := s.repo.CrearSubcategoria(ctx, sub); err != nil {
		return dto.SubcategoriaResponse{}, err
	}
	s.invalidarArbol(ctx)
	sub.Categoria = cat
	return mapSubcategoria(*sub), nil
}

func (s *categoriaService) ListarSubcategorias(ctx context.Context, categoriaID *uuid.UUID) ([]dto.SubcategoriaResponse, error) {
	list, err := s.repo.ListarSubcategorias(ctx, categoriaID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SubcategoriaResponse, 0, len(list))
	for _, sc := range list {
		result = append(result, mapSubcategoria(sc))
	}
	return result, nil
}

func (s *categoriaService) Importar(ctx context.Context, semillas []SemillaCategoria) (int, error) {
	creadas := 0
	for _, sem := range semillas {
		nombre := strings.TrimSpace(sem.Categoria)
		if nombre == "" {
			continue
		}
		cat, err := s.repo.ObtenerPorNombre(ctx, nombre)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cat = &model.Categoria{Nombre: nombre, Activo: true}
			if err := s.repo.Crear(ctx, cat); err != nil {
				return creadas, err
			}
			creadas++
		} else if err != nil {
			return creadas, err
		}

		for _, sn := range sem.Subcategorias {
			sn = strings.TrimSpace(sn)
			if sn == "" {
				continue
			}
			_, err := s.repo.ObtenerSubcategoriaPorNombre(ctx, cat.ID, sn)
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return creadas, err
			}
			if err := s.repo.CrearSubcategoria(ctx, &model.Subcategoria{Nombre: sn, CategoriaID: cat.ID}); err != nil {
				return creadas, err
			}
		}
	}
	s.invalidarArbol(ctx)
	return creadas, nil
}

func (s *categoriaService) EliminarTodo(ctx context.Context) error {
	if err := s.repo.EliminarTodo(ctx); err != nil {
		return err
	}
	s.invalidarArbol(ctx)
	return nil
}
