package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reviewboost/review-api/internal/email"
	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/internal/service/settings"
	apperrors "github.com/reviewboost/review-api/pkg/errors"
	"github.com/reviewboost/review-api/pkg/logger"
	"github.com/reviewboost/review-api/pkg/messaging"
)

const notifyTimeout = 10 * time.Second

type Servicer interface {
	GetForm(ctx context.Context, code string) (*model.ReviewForm, error)
	Submit(ctx context.Context, code string, sub *model.ReviewSubmission) (*model.ReviewResponse, error)
}

// Service handles the public review flow reached through review-code links.
type Service struct {
	clients  repository.ClientRepository
	settings settings.Servicer
	email    email.Service
	broker   messaging.Broker
	logger   *logger.Logger
}

func NewService(clients repository.ClientRepository, settings settings.Servicer, mail email.Service, broker messaging.Broker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		clients:  clients,
		settings: settings,
		email:    mail,
		broker:   broker,
		logger:   log,
	}
}

// GetForm resolves a review code to the data the public form needs. Opening
// the link moves the client to opened, but never downgrades a completed
// review.
func (s *Service) GetForm(ctx context.Context, code string) (*model.ReviewForm, error) {
	client, err := s.clients.GetByReviewCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("review", err)
		}
		return nil, fmt.Errorf("failed to resolve review code: %w", err)
	}

	if client.ReviewStatus == model.ReviewStatusSent {
		if err := s.clients.UpdateReviewStatus(ctx, client.TenantID, client.ID, model.ReviewStatusOpened); err != nil {
			s.logger.Error(err, "failed to mark review opened", "client_id", client.ID.String())
		}
	}

	company := ""
	if tenant, err := s.settings.GetSettings(ctx, client.TenantID); err == nil {
		company = tenant.CompanyName
	}
	if company == "" {
		company = model.DefaultCompanyName
	}

	return &model.ReviewForm{
		ReviewCode:  code,
		ClientName:  client.FullName(),
		CompanyName: company,
	}, nil
}

// Submit stores the review, marks the client completed and fires
// notifications. Notification failures never fail the submission.
func (s *Service) Submit(ctx context.Context, code string, sub *model.ReviewSubmission) (*model.ReviewResponse, error) {
	client, err := s.clients.GetByReviewCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("review", err)
		}
		return nil, fmt.Errorf("failed to resolve review code: %w", err)
	}

	if client.ReviewStatus == model.ReviewStatusCompleted {
		return nil, apperrors.Conflict("review already submitted", nil)
	}

	if err := s.clients.SetReview(ctx, client.TenantID, client.ID, sub.Stars, sub.Review); err != nil {
		return nil, fmt.Errorf("failed to store review: %w", err)
	}

	client.Stars = sub.Stars
	client.Review = sub.Review
	client.ReviewStatus = model.ReviewStatusCompleted

	go s.notify(client)

	s.logger.Info("review submitted",
		"tenant_id", client.TenantID, "client_id", client.ID.String(), "stars", sub.Stars)

	return &model.ReviewResponse{Success: true, Message: "Dziękujemy za opinię!"}, nil
}

// notify runs off the request path with its own deadline.
func (s *Service) notify(client *model.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if s.broker != nil {
		event := model.ReviewCompletedEvent{
			TenantID:   client.TenantID,
			ClientID:   client.ID.String(),
			ClientName: client.FullName(),
			Stars:      client.Stars,
			Review:     client.Review,
		}
		if err := s.broker.Publish(ctx, messaging.ChannelNotifications, event); err != nil {
			s.logger.Error(err, "failed to publish review event", "tenant_id", client.TenantID)
		}
	}

	if s.email == nil {
		return
	}
	tenant, err := s.settings.GetSettings(ctx, client.TenantID)
	if err != nil || tenant.Email == "" {
		return
	}
	if err := s.email.SendReviewNotification(ctx, tenant.Email, client); err != nil {
		s.logger.Error(err, "failed to send review notification email", "tenant_id", client.TenantID)
	}
}
