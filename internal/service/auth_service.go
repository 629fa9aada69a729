package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"colmena/internal/apierror"
	"colmena/internal/config"
	"colmena/internal/dto"
	"colmena/internal/model"
	"colmena/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

type AuthService interface {
	Registrar(ctx context.Context, req dto.RegistroRequest) (*dto.LoginResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	// UpsertAdmin creates or updates an administrator account; used by colmenactl.
	UpsertAdmin(ctx context.Context, nombre, email, password string) (*dto.UsuarioResponse, error)
	Existe(ctx context.Context, id uuid.UUID) (bool, error)
}

type authService struct {
	repo repository.UsuarioRepository
	cfg  *config.Config
	now  func() time.Time
}

func NewAuthService(repo repository.UsuarioRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg, now: time.Now}
}

func (s *authService) Registrar(ctx context.Context, req dto.RegistroRequest) (*dto.LoginResponse, error) {
	if len(req.Password) < 6 {
		return nil, apierror.Validation("La contraseña debe tener al menos 6 caracteres")
	}
	email := model.NormalizarEmail(req.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apierror.Conflict("El correo electrónico ya está registrado")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.Usuario{
		Nombre:       strings.TrimSpace(req.Nombre),
		Email:        email,
		PasswordHash: string(hash),
		Rol:          model.RolVisitante, // self-registration never grants admin
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict("El correo electrónico ya está registrado")
		}
		return nil, err
	}
	return s.loginResponse(user)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Unauthorized("Credenciales inválidas")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.Unauthorized("Credenciales inválidas")
	}

	now := s.now().UTC()
	if err := s.repo.TouchUltimoAcceso(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.UltimoAcceso = &now
	return s.loginResponse(user)
}

func (s *authService) UpsertAdmin(ctx context.Context, nombre, email, password string) (*dto.UsuarioResponse, error) {
	if len(password) < 6 {
		return nil, apierror.Validation("La contraseña debe tener al menos 6 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.Nombre = nombre
		user.Rol = model.RolAdministrador
		user.PasswordHash = string(hash)
		err = s.repo.Update(ctx, user)
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &model.Usuario{Nombre: nombre, Email: email, PasswordHash: string(hash), Rol: model.RolAdministrador}
		err = s.repo.Create(ctx, user)
	}
	if err != nil {
		return nil, err
	}
	resp := usuarioToResponse(user)
	return &resp, nil
}

func (s *authService) Existe(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *authService) loginResponse(user *model.Usuario) (*dto.LoginResponse, error) {
	hours := s.cfg.JWTExpirationHours
	if hours <= 0 {
		hours = 24
	}
	token, err := s.generateToken(user, time.Duration(hours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: hours * 3600,
		User:      usuarioToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.Usuario, duration time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"rol":     user.Rol,
		"exp":     now.Add(duration).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func usuarioToResponse(u *model.Usuario) dto.UsuarioResponse {
	resp := dto.UsuarioResponse{
		ID:        u.ID.String(),
		Nombre:    u.Nombre,
		Email:     u.Email,
		Rol:       u.Rol,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.UltimoAcceso != nil {
		at := u.UltimoAcceso.Format(time.RFC3339)
		resp.UltimoAcceso = &at
	}
	return resp
}
