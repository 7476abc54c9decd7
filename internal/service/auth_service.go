package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

var ErrInvalidCredentials = errors.New("correo o clave incorrectos")
var ErrUserAlreadyExists = errors.New("el correo o el documento ya están registrados")
var ErrTokenInvalid = errors.New("token no válido o expirado")
var ErrInvalidRole = errors.New("el rol debe ser 'Administrador' u 'Operador'")

type AuthService struct {
	userRepo           repository.UserRepository
	jwtSecret          string
	jwtExpirationHours time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpHours time.Duration) *AuthService {
	return &AuthService{
		userRepo:           userRepo,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpHours,
	}
}

func (s *AuthService) Register(ctx context.Context, dto domain.RegisterUserDTO) (*domain.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("verificando el correo: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	role := dto.Role
	if role == "" {
		role = domain.RoleOperator
	}
	if role != domain.RoleAdmin && role != domain.RoleOperator {
		return nil, ErrInvalidRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("generando hash de la clave: %w", err)
	}

	user := &domain.User{
		FirstName:      dto.FirstName,
		LastName:       dto.LastName,
		DocumentNumber: dto.DocumentNumber,
		Email:          dto.Email,
		Password:       string(hashedPassword),
		Phone:          dto.Phone,
		Role:           role,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("creando el usuario: %w", err)
	}
	created.Password = "" // nunca sale el hash
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error) {
	user, err := s.userRepo.FindByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("buscando el usuario: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expirationTime := time.Now().Add(s.jwtExpirationHours)
	claims := jwt.MapClaims{
		"sub":    fmt.Sprintf("%d", user.ID),
		"exp":    expirationTime.Unix(),
		"iat":    time.Now().Unix(),
		"rol":    user.Role,
		"correo": user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("firmando el token: %w", err)
	}

	return &domain.AuthResponseDTO{
		Token:     tokenString,
		UserID:    user.ID,
		FirstName: user.FirstName,
		Email:     user.Email,
		Role:      user.Role,
	}, nil
}

// ValidateToken lo usa el middleware de autenticación.
func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, nil, fmt.Errorf("%w: token malformado", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, fmt.Errorf("%w: token expirado", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, nil, fmt.Errorf("%w: token aún no válido", ErrTokenInvalid)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, nil, ErrTokenInvalid
	}
	return token, claims, nil
}
