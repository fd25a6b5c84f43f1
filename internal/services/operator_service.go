package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"pharmacy_admin/internal/models"
	"pharmacy_admin/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrOperatorInactive   = errors.New("operator account is disabled")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidRole        = errors.New("invalid operator role")
)

// OperatorClaims are carried by operator access tokens.
type OperatorClaims struct {
	jwt.StandardClaims
	OperatorID uint                `json:"operator_id"`
	Username   string              `json:"username"`
	Role       models.OperatorRole `json:"role"`
}

type OperatorService interface {
	CreateOperator(ctx context.Context, op *models.Operator, password string) error
	GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error)
	Login(ctx context.Context, username, password string) (string, *models.Operator, error)
	ParseToken(token string) (*OperatorClaims, error)
}

type operatorService struct {
	repo   repository.OperatorRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewOperatorService(repo repository.OperatorRepository, jwtSecret string, ttl time.Duration) OperatorService {
	return &operatorService{
		repo:   repo,
		secret: []byte(jwtSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *operatorService) CreateOperator(ctx context.Context, op *models.Operator, password string) error {
	if op.Role == "" {
		op.Role = string(models.Admin)
	}
	switch models.OperatorRole(op.Role) {
	case models.SuperAdmin, models.Admin, models.Viewer:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, op.Role)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	op.PasswordHash = string(hashedPassword)
	op.Username = strings.TrimSpace(op.Username)

	return s.repo.Create(ctx, op)
}

func (s *operatorService) GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Login checks the credentials and issues a signed access token.
func (s *operatorService) Login(ctx context.Context, username, password string) (string, *models.Operator, error) {
	op, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !op.IsActive {
		return "", nil, ErrOperatorInactive
	}

	now := s.now()
	claims := &OperatorClaims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
			Subject:   op.Username,
		},
		OperatorID: op.ID,
		Username:   op.Username,
		Role:       models.OperatorRole(op.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	op.LastLoginAt = &now
	if err := s.repo.Update(ctx, op); err != nil {
		logrus.WithError(err).WithField("operator_id", op.ID).Warn("failed to record last login")
	}
	return token, op, nil
}

func (s *operatorService) ParseToken(tokenString string) (*OperatorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
