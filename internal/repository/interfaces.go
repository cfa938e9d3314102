package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reviewboost/review-api/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*model.Client, error)
	List(ctx context.Context, tenantID string) ([]*model.Client, error)
	Update(ctx context.Context, client *model.Client) error
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error

	// GetByReviewCode resolves a client through the review-code index,
	// regardless of tenant.
	GetByReviewCode(ctx context.Context, code string) (*model.Client, error)

	// UpdateSendState records the outcome of a successful reminder send.
	UpdateSendState(ctx context.Context, tenantID string, id uuid.UUID, sentAt time.Time, smsCount int, status model.ReviewStatus) error

	// UpdateReviewStatus moves the review status (opened / completed).
	UpdateReviewStatus(ctx context.Context, tenantID string, id uuid.UUID, status model.ReviewStatus) error

	// SetReview stores a submitted review and marks the client completed.
	SetReview(ctx context.Context, tenantID string, id uuid.UUID, stars int, review string) error
}

type TenantRepository interface {
	// Get returns ErrNotFound when the tenant has no settings yet.
	Get(ctx context.Context, tenantID string) (*model.TenantSettings, error)
	Save(ctx context.Context, settings *model.TenantSettings) error
	ListTenantIDs(ctx context.Context) ([]string, error)
	UpdatePermissionTier(ctx context.Context, tenantID string, tier model.PermissionTier) error

	// ResetMonthlyCounter zeroes the cached counter and stamps the month
	// token and recomputed limit in one statement.
	ResetMonthlyCounter(ctx context.Context, tenantID, month string, limit int) error

	// IncrementSentCounter is an atomic add at the store; never
	// read-modify-write.
	IncrementSentCounter(ctx context.Context, tenantID string) error

	// SetSentCounter realigns the cached mirror with the audit count.
	SetSentCounter(ctx context.Context, tenantID string, sent int) error
}

type SMSAuditRepository interface {
	Append(ctx context.Context, record *model.SMSAuditRecord) error
	CountForMonth(ctx context.Context, tenantID, month string) (int, error)
	ListForMonth(ctx context.Context, tenantID, month string) ([]*model.SMSAuditRecord, error)
}
