package client

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	apperrors "github.com/reviewboost/review-api/pkg/errors"
	"github.com/reviewboost/review-api/pkg/logger"
)

const (
	reviewCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	reviewCodeLength   = 10
)

type Servicer interface {
	CreateClient(ctx context.Context, tenantID string, req *model.CreateClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, tenantID string, id uuid.UUID) (*model.Client, error)
	ListClients(ctx context.Context, tenantID string) (*model.ClientListResponse, error)
	UpdateClient(ctx context.Context, tenantID string, id uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error)
	DeleteClient(ctx context.Context, tenantID string, id uuid.UUID) error
}

type Service struct {
	repo   repository.ClientRepository
	logger *logger.Logger
}

func NewService(repo repository.ClientRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, logger: log}
}

func (s *Service) CreateClient(ctx context.Context, tenantID string, req *model.CreateClientRequest) (*model.Client, error) {
	code, err := generateReviewCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate review code: %w", err)
	}

	now := time.Now().UTC()
	client := &model.Client{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         req.Name,
		Surname:      req.Surname,
		Phone:        req.Phone,
		Email:        req.Email,
		Note:         req.Note,
		ReviewCode:   code,
		ReviewStatus: model.ReviewStatusNotSent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.logger.Info("client created", "tenant_id", tenantID, "client_id", client.ID.String())
	return client, nil
}

func (s *Service) GetClient(ctx context.Context, tenantID string, id uuid.UUID) (*model.Client, error) {
	client, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("client", err)
		}
		return nil, err
	}
	return client, nil
}

func (s *Service) ListClients(ctx context.Context, tenantID string) (*model.ClientListResponse, error) {
	clients, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &model.ClientListResponse{Clients: clients, Total: len(clients)}, nil
}

func (s *Service) UpdateClient(ctx context.Context, tenantID string, id uuid.UUID, req *model.UpdateClientRequest) (*model.Client, error) {
	client, err := s.GetClient(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Surname != nil {
		client.Surname = *req.Surname
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Note != nil {
		client.Note = *req.Note
	}

	if err := s.repo.Update(ctx, client); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("client", err)
		}
		return nil, err
	}
	return client, nil
}

func (s *Service) DeleteClient(ctx context.Context, tenantID string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("client", err)
		}
		return err
	}
	s.logger.Info("client deleted", "tenant_id", tenantID, "client_id", id.String())
	return nil
}

// generateReviewCode builds the unique public token for the review form.
func generateReviewCode() (string, error) {
	code := make([]byte, reviewCodeLength)
	max := big.NewInt(int64(len(reviewCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = reviewCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
