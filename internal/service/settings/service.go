package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	apperrors "github.com/reviewboost/review-api/pkg/errors"
	"github.com/reviewboost/review-api/pkg/logger"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

type Servicer interface {
	GetSettings(ctx context.Context, tenantID string) (*model.TenantSettings, error)
	SaveSettings(ctx context.Context, tenantID string, req *model.UpdateSettingsRequest) (*model.TenantSettings, error)
	UpdatePermission(ctx context.Context, tenantID string, tier model.PermissionTier) (*model.TenantSettings, error)
	Invalidate(tenantID string)
}

// Service owns tenant settings documents. Reads go through a short TTL cache;
// every write invalidates the tenant's entry so the reminder sweep never acts
// on stale configuration for long.
type Service struct {
	repo   repository.TenantRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(repo repository.TenantRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		cache:  cache.New(cacheTTL, cacheCleanup),
		logger: log,
	}
}

// GetSettings returns the tenant's settings, falling back to the default
// document for tenants that never saved one.
func (s *Service) GetSettings(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	if cached, ok := s.cache.Get(tenantID); ok {
		if settings, ok := cached.(*model.TenantSettings); ok {
			return settings, nil
		}
	}

	settings, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DefaultSettings(tenantID), nil
		}
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	s.cache.Set(tenantID, settings, cache.DefaultExpiration)
	return settings, nil
}

// SaveSettings replaces the tenant-editable part of the document. Permission
// tier, quota counters, the reset month and the limit override are server
// managed and survive the write untouched.
func (s *Service) SaveSettings(ctx context.Context, tenantID string, req *model.UpdateSettingsRequest) (*model.TenantSettings, error) {
	current, err := s.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	current.CompanyName = req.CompanyName
	current.Email = req.Email
	current.GoogleCard = req.GoogleCard
	current.Messaging.ReminderFrequencyDays = req.Messaging.ReminderFrequencyDays
	current.Messaging.MessageTemplate = req.Messaging.MessageTemplate
	current.Messaging.AutoSendEnabled = req.Messaging.AutoSendEnabled
	current.Messaging.SendHour = req.Messaging.SendHour
	current.Messaging.SendMinute = req.Messaging.SendMinute
	if req.Transport != nil {
		current.Transport = *req.Transport
	}

	if err := s.repo.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to save tenant settings: %w", err)
	}

	s.cache.Delete(tenantID)
	s.logger.Info("tenant settings saved", "tenant_id", tenantID)
	return current, nil
}

// UpdatePermission changes the tenant's tier. The new tier's default limit
// takes effect on the next quota check unless an explicit override is set.
func (s *Service) UpdatePermission(ctx context.Context, tenantID string, tier model.PermissionTier) (*model.TenantSettings, error) {
	if !tier.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown permission tier %q", tier), nil)
	}

	if err := s.repo.UpdatePermissionTier(ctx, tenantID, tier); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Tenant has no settings row yet; persist defaults with the tier.
			settings := model.DefaultSettings(tenantID)
			settings.PermissionTier = tier
			if saveErr := s.repo.Save(ctx, settings); saveErr != nil {
				return nil, fmt.Errorf("failed to save tenant settings: %w", saveErr)
			}
		} else {
			return nil, fmt.Errorf("failed to update permission tier: %w", err)
		}
	}

	s.cache.Delete(tenantID)
	s.logger.Info("permission tier updated", "tenant_id", tenantID, "tier", string(tier))
	return s.GetSettings(ctx, tenantID)
}

// Invalidate drops the tenant's cached settings. The quota ledger calls this
// after counter mutations so cached documents do not mask them.
func (s *Service) Invalidate(tenantID string) {
	s.cache.Delete(tenantID)
}
