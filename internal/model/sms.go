package model

import (
	"time"

	"github.com/google/uuid"
)

// MonthLayout is the month-partition token format ("YYYY-MM").
const MonthLayout = "2006-01"

// MonthToken returns the partition token for t in UTC.
func MonthToken(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// SMSAuditRecord is one successful send. The per-month audit partition is the
// authoritative source for the quota counter; the cached counter on the
// tenant settings is a mirror.
type SMSAuditRecord struct {
	ID                uuid.UUID `json:"id" db:"id"`
	TenantID          string    `json:"tenant_id" db:"tenant_id"`
	Month             string    `json:"month" db:"month"`
	Phone             string    `json:"phone" db:"phone"`
	Body              string    `json:"body" db:"body"`
	ProviderMessageID string    `json:"provider_message_id" db:"provider_message_id"`
	SentAt            time.Time `json:"sent_at" db:"sent_at"`
}

// QuotaStatus is the result of a quota check.
type QuotaStatus struct {
	Allowed   bool   `json:"allowed"`
	Limit     int    `json:"limit"`
	Sent      int    `json:"sent"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message,omitempty"`
}
