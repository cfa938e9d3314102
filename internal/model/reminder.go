package model

import (
	"time"

	"github.com/google/uuid"
)

// SendOutcome classifies what the send pipeline did with one client.
type SendOutcome string

const (
	OutcomeSent    SendOutcome = "sent"
	OutcomeSkipped SendOutcome = "skipped"
	OutcomeFailed  SendOutcome = "failed"
)

// Machine-readable reason codes carried on skip/failure results.
const (
	ReasonNoPhone          = "no_phone_or_code"
	ReasonCompleted        = "review_completed"
	ReasonClientCap        = "client_cap_reached"
	ReasonNotDue           = "not_due"
	ReasonWrongHour        = "outside_send_hour"
	ReasonAutoSendDisabled = "auto_send_disabled"
	ReasonNoCredentials    = "missing_credentials"
	ReasonQuotaExceeded    = "quota_exceeded"
	ReasonQuotaCheckFailed = "quota_check_failed"
	ReasonInvalidPhone     = "invalid_phone"
	ReasonTransportFailed  = "transport_failed"
	ReasonSettingsFailed   = "settings_unavailable"
	ReasonClientListFailed = "client_list_unavailable"
)

// ClientSendResult is the pipeline outcome for a single client.
type ClientSendResult struct {
	ClientID          uuid.UUID   `json:"client_id"`
	Outcome           SendOutcome `json:"outcome"`
	Reason            string      `json:"reason,omitempty"`
	Detail            string      `json:"detail,omitempty"`
	ProviderMessageID string      `json:"provider_message_id,omitempty"`
}

// TenantSweepResult aggregates one tenant's pass.
type TenantSweepResult struct {
	TenantID string             `json:"tenant_id"`
	Sent     int                `json:"sent"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Reason   string             `json:"reason,omitempty"`
	Results  []ClientSendResult `json:"results,omitempty"`
}

// Add folds a client result into the tenant counters.
func (r *TenantSweepResult) Add(res ClientSendResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeSent:
		r.Sent++
	case OutcomeFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}

// SweepSummary is the outcome of one full sweep over all tenants.
type SweepSummary struct {
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Tenants    int                 `json:"tenants"`
	Sent       int                 `json:"sent"`
	Skipped    int                 `json:"skipped"`
	Failed     int                 `json:"failed"`
	Details    []TenantSweepResult `json:"details,omitempty"`
}

// Merge folds a tenant result into the sweep totals.
func (s *SweepSummary) Merge(r TenantSweepResult) {
	s.Tenants++
	s.Sent += r.Sent
	s.Skipped += r.Skipped
	s.Failed += r.Failed
	s.Details = append(s.Details, r)
}

// TenantTestEntry is one client's policy inputs, returned by the dry-run
// administrative endpoint. No sends happen.
type TenantTestEntry struct {
	ClientID     uuid.UUID    `json:"client_id"`
	Name         string       `json:"name"`
	HasPhone     bool         `json:"has_phone"`
	ReviewStatus ReviewStatus `json:"review_status"`
	SMSCount     int          `json:"sms_count"`
	LastSMSSent  *time.Time   `json:"last_sms_sent,omitempty"`
	WouldSend    bool         `json:"would_send"`
	Reason       string       `json:"reason,omitempty"`
}

// TenantTestReport is the dry-run report for one tenant.
type TenantTestReport struct {
	TenantID              string            `json:"tenant_id"`
	AutoSendEnabled       bool              `json:"auto_send_enabled"`
	ReminderFrequencyDays int               `json:"reminder_frequency_days"`
	SendHour              int               `json:"send_hour"`
	CurrentHour           int               `json:"current_hour"`
	HourMatched           bool              `json:"hour_matched"`
	Clients               []TenantTestEntry `json:"clients"`
}
