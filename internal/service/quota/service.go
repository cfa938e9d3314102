package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/pkg/logger"
	"github.com/reviewboost/review-api/pkg/metrics"
)

// SettingsInvalidator drops a tenant's cached settings document. The ledger
// mutates counters behind the settings cache, so every mutation notifies it.
type SettingsInvalidator interface {
	Invalidate(tenantID string)
}

// Service is the quota ledger: it gates every outbound SMS against the
// tenant's monthly allowance and keeps the allowance accurate across month
// boundaries. Callers must treat a check error as "not allowed".
type Service struct {
	tenants     repository.TenantRepository
	audit       repository.SMSAuditRepository
	invalidator SettingsInvalidator
	logger      *logger.Logger
	metrics     *metrics.Metrics

	now func() time.Time
}

func NewService(tenants repository.TenantRepository, audit repository.SMSAuditRepository, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tenants: tenants,
		audit:   audit,
		logger:  log,
		metrics: m,
		now:     time.Now,
	}
}

// CheckAndMaybeReset resets the ledger on a month change, then reports
// whether one more send is allowed. The audit partition count is the
// authoritative "sent" figure; the cached counter is realigned when they
// diverge. A second call within the same month is a no-op with respect to the
// reset.
func (s *Service) CheckAndMaybeReset(ctx context.Context, settings *model.TenantSettings) (*model.QuotaStatus, error) {
	month := model.MonthToken(s.now())
	limit := settings.ResolveSMSLimit()

	if settings.LastQuotaResetMonth != month {
		if err := s.tenants.ResetMonthlyCounter(ctx, settings.TenantID, month, limit); err != nil {
			return nil, fmt.Errorf("quota check failed: %w", err)
		}
		settings.LastQuotaResetMonth = month
		settings.Messaging.SMSSentThisMonth = 0
		s.invalidate(settings.TenantID)
		if s.metrics != nil {
			s.metrics.QuotaResets.Inc()
		}
		s.logger.Info("monthly sms counter reset", "tenant_id", settings.TenantID, "month", month, "limit", limit)
	}

	sent, err := s.audit.CountForMonth(ctx, settings.TenantID, month)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}

	if sent != settings.Messaging.SMSSentThisMonth {
		// Audit log is ground truth; the cached mirror drifted.
		s.logger.Warn("sms counter mismatch, realigning with audit log",
			"tenant_id", settings.TenantID, "cached", settings.Messaging.SMSSentThisMonth, "audit", sent)
		if err := s.tenants.SetSentCounter(ctx, settings.TenantID, sent); err != nil {
			s.logger.Error(err, "failed to realign sms counter", "tenant_id", settings.TenantID)
		}
		settings.Messaging.SMSSentThisMonth = sent
		s.invalidate(settings.TenantID)
	}

	status := &model.QuotaStatus{
		Limit:     limit,
		Sent:      sent,
		Remaining: limit - sent,
	}
	if status.Remaining < 0 {
		status.Remaining = 0
	}

	if sent >= limit {
		status.Allowed = false
		status.Message = fmt.Sprintf("monthly SMS limit reached (%d/%d)", sent, limit)
		if s.metrics != nil {
			s.metrics.QuotaRejections.Inc()
		}
		return status, nil
	}

	status.Allowed = true
	return status, nil
}

// RecordSend appends one audit record into the current-month partition and
// bumps the cached counter. Call it only after the transport reported
// success; a failed transport call must never consume quota.
func (s *Service) RecordSend(ctx context.Context, tenantID, phone, body, providerMessageID string) error {
	now := s.now().UTC()
	record := &model.SMSAuditRecord{
		ID:                uuid.New(),
		TenantID:          tenantID,
		Month:             model.MonthToken(now),
		Phone:             phone,
		Body:              body,
		ProviderMessageID: providerMessageID,
		SentAt:            now,
	}

	if err := s.audit.Append(ctx, record); err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}

	// The audit record is already durable, so a mirror failure only logs:
	// the next check realigns the counter from the audit count.
	if err := s.tenants.IncrementSentCounter(ctx, tenantID); err != nil {
		s.logger.Error(err, "failed to increment cached sms counter", "tenant_id", tenantID)
	}
	s.invalidate(tenantID)
	return nil
}

// Status answers the administrative "SMS limit status for tenant" query.
// Tenants without a settings row report against the default document.
func (s *Service) Status(ctx context.Context, tenantID string) (*model.QuotaStatus, error) {
	settings, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			settings = model.DefaultSettings(tenantID)
		} else {
			return nil, fmt.Errorf("failed to load tenant settings: %w", err)
		}
	}
	return s.CheckAndMaybeReset(ctx, settings)
}

func (s *Service) invalidate(tenantID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(tenantID)
	}
}

// WithInvalidator registers the settings cache to notify on counter
// mutations.
func (s *Service) WithInvalidator(inv SettingsInvalidator) *Service {
	s.invalidator = inv
	return s
}

// WithClock overrides the wall clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
