package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"eatgreet/internal/config"
	"eatgreet/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrValidation         = errors.New("validation failed")
)

type Claims struct {
	UserID         uuid.UUID   `json:"uid"`
	Role           domain.Role `json:"role"`
	RestaurantName string      `json:"restaurantName,omitempty"`
	jwt.RegisteredClaims
}

type RegisterRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone"`
	Password       string `json:"password" binding:"required,min=6"`
	Role           string `json:"role"`
	RestaurantName string `json:"restaurantName"`
	TotalTables    int    `json:"totalTables"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (Session, error)
	Login(ctx context.Context, req LoginRequest) (Session, error)
	Profile(ctx context.Context, id uuid.UUID) (domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (domain.User, error)
	IssueToken(u domain.User) (string, error)
	ParseToken(token string) (*Claims, error)
}

type AuthService struct {
	repo UsersRepositoryInterface
	cfg  config.AuthConfig
}

func NewAuthService(repo UsersRepositoryInterface, cfg config.AuthConfig) AuthServiceInterface {
	return &AuthService{repo: repo, cfg: cfg}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleCustomer
	}
	switch role {
	case domain.RoleAdmin, domain.RoleKitchen, domain.RoleCustomer:
	default:
		return Session{}, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}

	var restaurant *domain.Restaurant
	if role == domain.RoleAdmin || role == domain.RoleKitchen {
		if strings.TrimSpace(req.RestaurantName) == "" {
			return Session{}, fmt.Errorf("%w: restaurantName is required for %s accounts", ErrValidation, role)
		}
		restaurant = &domain.Restaurant{
			Name:        strings.TrimSpace(req.RestaurantName),
			Slug:        domain.Slugify(req.RestaurantName),
			TotalTables: req.TotalTables,
		}
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUserTx(ctx, domain.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
	}, restaurant)
	if err != nil {
		return Session{}, err
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (Session, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}

func (s *AuthService) Profile(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) (domain.User, error) {
	if strings.TrimSpace(name) == "" {
		return domain.User{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	return s.repo.UpdateProfile(ctx, id, name, phone)
}

func (s *AuthService) IssueToken(u domain.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:         u.ID,
		Role:           u.Role,
		RestaurantName: u.RestaurantName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
