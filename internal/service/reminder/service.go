package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/internal/service/quota"
	apperrors "github.com/reviewboost/review-api/pkg/errors"
	"github.com/reviewboost/review-api/pkg/logger"
	"github.com/reviewboost/review-api/pkg/metrics"
	"github.com/reviewboost/review-api/pkg/sms"
)

// ErrSweepInProgress is returned when a manual run collides with a sweep
// that is still executing.
var ErrSweepInProgress = errors.New("a reminder sweep is already running")

const (
	triggerAuto   = "auto"
	triggerManual = "manual"
)

// Service is the send pipeline: it turns policy decisions into transport
// calls and durable state changes, with quota enforcement and per-client
// failure isolation.
type Service struct {
	clients   repository.ClientRepository
	tenants   repository.TenantRepository
	quota     *quota.Service
	transport sms.Sender
	policy    *Policy
	logger    *logger.Logger
	metrics   *metrics.Metrics

	sweeping atomic.Bool
	now      func() time.Time
}

func NewService(
	clients repository.ClientRepository,
	tenants repository.TenantRepository,
	quotaSvc *quota.Service,
	transport sms.Sender,
	policy *Policy,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		clients:   clients,
		tenants:   tenants,
		quota:     quotaSvc,
		transport: transport,
		policy:    policy,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// RunSweep executes one full pass over all tenants. Tenants and clients are
// processed sequentially; a failure anywhere is recorded in the summary and
// never aborts the remaining work. Only one sweep runs at a time.
func (s *Service) RunSweep(ctx context.Context) (*model.SweepSummary, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	start := s.now()
	summary := &model.SweepSummary{StartedAt: start.UTC()}

	tenantIDs, err := s.tenants.ListTenantIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	for _, tenantID := range tenantIDs {
		select {
		case <-ctx.Done():
			s.logger.Warn("sweep cancelled", "processed_tenants", summary.Tenants)
			summary.FinishedAt = s.now().UTC()
			return summary, ctx.Err()
		default:
		}
		summary.Merge(s.sweepTenant(ctx, tenantID))
	}

	summary.FinishedAt = s.now().UTC()
	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Info("reminder sweep finished",
		"tenants", summary.Tenants, "sent", summary.Sent, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// Sweeping reports whether a sweep is currently executing.
func (s *Service) Sweeping() bool {
	return s.sweeping.Load()
}

func (s *Service) sweepTenant(ctx context.Context, tenantID string) model.TenantSweepResult {
	result := model.TenantSweepResult{TenantID: tenantID}

	settings, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		s.logger.Error(err, "skipping tenant, settings unavailable", "tenant_id", tenantID)
		result.Reason = model.ReasonSettingsFailed
		return result
	}

	if !settings.Messaging.AutoSendEnabled {
		result.Reason = model.ReasonAutoSendDisabled
		return result
	}
	if !s.policy.HourMatches(settings) {
		result.Reason = model.ReasonWrongHour
		return result
	}

	return s.processTenant(ctx, settings, triggerAuto)
}

// processTenant runs the pipeline for every client of one tenant. Shared by
// the automatic sweep and the manual send-all trigger; the hour gate is the
// caller's concern.
func (s *Service) processTenant(ctx context.Context, settings *model.TenantSettings, trigger string) model.TenantSweepResult {
	result := model.TenantSweepResult{TenantID: settings.TenantID}

	if !settings.Transport.Complete() {
		s.logger.Warn("skipping tenant, transport credentials missing", "tenant_id", settings.TenantID)
		result.Reason = model.ReasonNoCredentials
		return result
	}

	clients, err := s.clients.List(ctx, settings.TenantID)
	if err != nil {
		s.logger.Error(err, "skipping tenant, client list unavailable", "tenant_id", settings.TenantID)
		result.Reason = model.ReasonClientListFailed
		return result
	}

	for _, client := range clients {
		result.Add(s.sendOne(ctx, settings, client, trigger))
	}
	return result
}

// sendOne executes the per-client sequence: policy decision, quota check,
// transport call, ledger record, client update. The transport call is the
// point of no return; failures after it are logged but the result still
// counts as sent.
func (s *Service) sendOne(ctx context.Context, settings *model.TenantSettings, client *model.Client, trigger string) model.ClientSendResult {
	result := model.ClientSendResult{ClientID: client.ID}

	decision := s.policy.Evaluate(client, settings)
	if !decision.Send {
		result.Outcome = model.OutcomeSkipped
		result.Reason = decision.Reason
		s.countSkip(decision.Reason)
		return result
	}

	status, err := s.quota.CheckAndMaybeReset(ctx, settings)
	if err != nil {
		// Fail closed: an unanswerable quota question blocks the send.
		s.logger.Error(err, "quota check failed, send blocked",
			"tenant_id", settings.TenantID, "client_id", client.ID.String())
		result.Outcome = model.OutcomeFailed
		result.Reason = model.ReasonQuotaCheckFailed
		result.Detail = err.Error()
		s.countFailure(model.ReasonQuotaCheckFailed)
		return result
	}
	if !status.Allowed {
		result.Outcome = model.OutcomeSkipped
		result.Reason = model.ReasonQuotaExceeded
		result.Detail = status.Message
		s.countSkip(model.ReasonQuotaExceeded)
		return result
	}

	to, err := sms.NormalizePhone(client.Phone)
	if err != nil {
		result.Outcome = model.OutcomeFailed
		result.Reason = model.ReasonInvalidPhone
		result.Detail = err.Error()
		s.countFailure(model.ReasonInvalidPhone)
		return result
	}

	sendStart := time.Now()
	providerID, err := s.transport.Send(ctx, settings.Transport, to, decision.Message)
	if s.metrics != nil {
		s.metrics.SMSSendLatency.Observe(time.Since(sendStart).Seconds())
	}
	if err != nil {
		s.logger.Error(err, "transport send failed",
			"tenant_id", settings.TenantID, "client_id", client.ID.String())
		result.Outcome = model.OutcomeFailed
		result.Reason = model.ReasonTransportFailed
		result.Detail = err.Error()
		if s.metrics != nil {
			s.metrics.SMSSendFailures.Inc()
		}
		s.countFailure(model.ReasonTransportFailed)
		return result
	}

	// The message is out. Everything below records that fact; failures here
	// leave an inconsistency window that is logged, not retried, so the same
	// tick can never double-send.
	if err := s.quota.RecordSend(ctx, settings.TenantID, to, decision.Message, providerID); err != nil {
		s.logger.Error(err, "failed to record send in quota ledger",
			"tenant_id", settings.TenantID, "client_id", client.ID.String(), "provider_message_id", providerID)
	}

	sentAt := s.now().UTC()
	newStatus := client.ReviewStatus
	if newStatus == model.ReviewStatusNotSent {
		newStatus = model.ReviewStatusSent
	}
	if err := s.clients.UpdateSendState(ctx, settings.TenantID, client.ID, sentAt, client.SMSCount+1, newStatus); err != nil {
		s.logger.Error(err, "failed to update client after send",
			"tenant_id", settings.TenantID, "client_id", client.ID.String(), "provider_message_id", providerID)
	}
	client.LastSMSSent = &sentAt
	client.SMSCount++
	client.ReviewStatus = newStatus

	result.Outcome = model.OutcomeSent
	result.ProviderMessageID = providerID
	if s.metrics != nil {
		s.metrics.RemindersSent.WithLabelValues(trigger).Inc()
	}
	s.logger.Info("reminder sent",
		"tenant_id", settings.TenantID, "client_id", client.ID.String(), "sms_count", client.SMSCount)
	return result
}

// SendToClient is the administrative immediate send for one client. It
// bypasses the hour gate and the auto-send flag but keeps every other rule.
func (s *Service) SendToClient(ctx context.Context, tenantID string, clientID uuid.UUID) (*model.ClientSendResult, error) {
	settings, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("tenant settings", err)
		}
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	if !settings.Transport.Complete() {
		return nil, apperrors.BadRequest("tenant has no transport credentials configured", nil)
	}

	client, err := s.clients.Get(ctx, tenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("client", err)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	result := s.sendOne(ctx, settings, client, triggerManual)
	if result.Reason == model.ReasonQuotaExceeded {
		return &result, apperrors.QuotaExceeded(result.Detail)
	}
	return &result, nil
}

// SendToAllClients is the administrative "send to every eligible client of a
// tenant" trigger. Quota-exceeded clients are reported per-client, not as an
// overall error.
func (s *Service) SendToAllClients(ctx context.Context, tenantID string) (*model.TenantSweepResult, error) {
	settings, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("tenant settings", err)
		}
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	result := s.processTenant(ctx, settings, triggerManual)
	return &result, nil
}

// TestTenant returns the policy inputs and verdicts for a tenant without
// sending anything.
func (s *Service) TestTenant(ctx context.Context, tenantID string) (*model.TenantTestReport, error) {
	settings, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("tenant settings", err)
		}
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	clients, err := s.clients.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	report := &model.TenantTestReport{
		TenantID:              tenantID,
		AutoSendEnabled:       settings.Messaging.AutoSendEnabled,
		ReminderFrequencyDays: settings.Messaging.ReminderFrequencyDays,
		SendHour:              settings.Messaging.SendHour,
		CurrentHour:           s.policy.CurrentHour(),
		HourMatched:           s.policy.HourMatches(settings),
	}

	for _, client := range clients {
		decision := s.policy.Evaluate(client, settings)
		report.Clients = append(report.Clients, model.TenantTestEntry{
			ClientID:     client.ID,
			Name:         client.FullName(),
			HasPhone:     client.Phone != "",
			ReviewStatus: client.ReviewStatus,
			SMSCount:     client.SMSCount,
			LastSMSSent:  client.LastSMSSent,
			WouldSend:    decision.Send,
			Reason:       decision.Reason,
		})
	}
	return report, nil
}

func (s *Service) countSkip(reason string) {
	if s.metrics != nil {
		s.metrics.RemindersSkipped.WithLabelValues(reason).Inc()
	}
}

func (s *Service) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RemindersFailed.WithLabelValues(reason).Inc()
	}
}

// WithClock overrides the wall clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
