package model

import "time"

// PermissionTier is a tenant's service level. It controls the default monthly
// SMS quota ceiling.
type PermissionTier string

const (
	TierDemo         PermissionTier = "Demo"
	TierStarter      PermissionTier = "Starter"
	TierProfessional PermissionTier = "Professional"
	TierAdmin        PermissionTier = "Admin"
)

// DefaultSMSLimit returns the tier's monthly SMS ceiling. Unrecognized tiers
// fall back to the Demo limit so a corrupt tier value can never unlock an
// unbounded quota.
func (t PermissionTier) DefaultSMSLimit() int {
	switch t {
	case TierAdmin:
		return 1000
	case TierProfessional:
		return 200
	case TierStarter:
		return 50
	default:
		return 10
	}
}

// Valid reports whether t is one of the known tiers.
func (t PermissionTier) Valid() bool {
	switch t {
	case TierDemo, TierStarter, TierProfessional, TierAdmin:
		return true
	}
	return false
}

// MessagingConfig is the per-tenant reminder configuration.
type MessagingConfig struct {
	ReminderFrequencyDays int    `json:"reminder_frequency_days"`
	MessageTemplate       string `json:"message_template"`
	AutoSendEnabled       bool   `json:"auto_send_enabled"`
	SendHour              int    `json:"send_hour"`
	SendMinute            int    `json:"send_minute"`
	// SMSLimit overrides the tier default when set.
	SMSLimit         *int `json:"sms_limit,omitempty"`
	SMSSentThisMonth int  `json:"sms_sent_this_month"`
}

// TransportCredentials are the tenant's SMS provider credentials.
type TransportCredentials struct {
	AccountID string `json:"account_id"`
	AuthToken string `json:"auth_token"`
	SenderID  string `json:"sender_id"`
}

// Complete reports whether the credentials are usable for a send.
func (c TransportCredentials) Complete() bool {
	return c.AccountID != "" && c.AuthToken != "" && c.SenderID != ""
}

// TenantSettings is the per-tenant settings document.
type TenantSettings struct {
	TenantID            string               `json:"tenant_id"`
	CompanyName         string               `json:"company_name"`
	Email               string               `json:"email"`
	GoogleCard          string               `json:"google_card"`
	PermissionTier      PermissionTier       `json:"permission_tier"`
	Messaging           MessagingConfig      `json:"messaging"`
	LastQuotaResetMonth string               `json:"last_quota_reset_month"`
	Transport           TransportCredentials `json:"transport_credentials"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ResolveSMSLimit returns the tenant's monthly SMS ceiling: the explicit
// override when set, otherwise the tier default. Unknown tiers resolve to the
// Demo ceiling.
func (s *TenantSettings) ResolveSMSLimit() int {
	if s.Messaging.SMSLimit != nil && *s.Messaging.SMSLimit > 0 {
		return *s.Messaging.SMSLimit
	}
	return s.PermissionTier.DefaultSMSLimit()
}

// DefaultMessageTemplate is used when a tenant has not configured one. The
// [LINK] and [NAZWA_FIRMY] placeholders are substituted at send time; any
// other bracketed token is left verbatim.
const DefaultMessageTemplate = `Dzień dobry!

Chciałbym przypomnieć o możliwości wystawienia opinii o naszych usługach.
Wasza opinia jest dla nas bardzo ważna i pomoże innym klientom w podjęciu decyzji.

Link do wystawienia opinii: [LINK]

Z góry dziękuję za poświęcony czas!

Z poważaniem,
[NAZWA_FIRMY]`

// DefaultCompanyName is substituted when the tenant has no company name set.
const DefaultCompanyName = "Twoja Firma"

// DefaultSettings returns the settings a tenant gets on first access.
func DefaultSettings(tenantID string) *TenantSettings {
	return &TenantSettings{
		TenantID:       tenantID,
		PermissionTier: TierDemo,
		Messaging: MessagingConfig{
			ReminderFrequencyDays: 7,
			MessageTemplate:       DefaultMessageTemplate,
			AutoSendEnabled:       false,
			SendHour:              10,
		},
	}
}

// UpdateSettingsRequest carries the tenant-editable part of the settings.
// Tier, quota counters and the reset month are server-managed and cannot be
// written through this request.
type UpdateSettingsRequest struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email" binding:"omitempty,email"`
	GoogleCard  string `json:"google_card"`
	Messaging   struct {
		ReminderFrequencyDays int    `json:"reminder_frequency_days" binding:"required,min=1,max=365"`
		MessageTemplate       string `json:"message_template"`
		AutoSendEnabled       bool   `json:"auto_send_enabled"`
		SendHour              int    `json:"send_hour" binding:"min=0,max=23"`
		SendMinute            int    `json:"send_minute" binding:"min=0,max=59"`
	} `json:"messaging" binding:"required"`
	Transport *TransportCredentials `json:"transport_credentials,omitempty"`
}

type UpdatePermissionRequest struct {
	Permission PermissionTier `json:"permission" binding:"required"`
}
