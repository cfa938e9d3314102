package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/reviewboost/review-api/internal/config"
	apperrors "github.com/reviewboost/review-api/pkg/errors"
	"github.com/reviewboost/review-api/pkg/logger"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the JWT payload for admin sessions.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Servicer interface {
	Login(req *LoginRequest) (*LoginResponse, error)
	ValidateToken(token string) (*Claims, error)
}

// Service authenticates the single administrative operator and issues
// short-lived JWTs for the admin endpoints.
type Service struct {
	cfg    config.AuthConfig
	logger *logger.Logger

	now func() time.Time
}

func NewService(cfg config.AuthConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{cfg: cfg, logger: log, now: time.Now}
}

func (s *Service) Login(req *LoginRequest) (*LoginResponse, error) {
	if req.Username != s.cfg.AdminUser {
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("admin login rejected", "username", req.Username)
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	expiresAt := s.now().Add(s.cfg.TokenExpiry)
	claims := Claims{
		Username: req.Username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to sign token: %w", err))
	}

	s.logger.Info("admin login", "username", req.Username)
	return &LoginResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

// WithClock overrides the wall clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
