package model

import (
	"time"

	"github.com/google/uuid"
)

// ReviewStatus tracks a client's progress through the review flow. The
// progression is forward-only except that sent and opened may alternate as
// reminders are re-sent.
type ReviewStatus string

const (
	ReviewStatusNotSent   ReviewStatus = "not_sent"
	ReviewStatusSent      ReviewStatus = "sent"
	ReviewStatusOpened    ReviewStatus = "opened"
	ReviewStatusCompleted ReviewStatus = "completed"
)

// MaxClientSends is the hard per-client reminder ceiling, independent of the
// tenant's monthly quota.
const MaxClientSends = 2

// Client is one review recipient owned by a tenant.
type Client struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	TenantID     string       `json:"tenant_id" db:"tenant_id"`
	Name         string       `json:"name" db:"name"`
	Surname      string       `json:"surname" db:"surname"`
	Phone        string       `json:"phone" db:"phone"`
	Email        string       `json:"email" db:"email"`
	Note         string       `json:"note" db:"note"`
	Stars        int          `json:"stars" db:"stars"`
	Review       string       `json:"review" db:"review"`
	ReviewCode   string       `json:"review_code" db:"review_code"`
	ReviewStatus ReviewStatus `json:"review_status" db:"review_status"`
	SMSCount     int          `json:"sms_count" db:"sms_count"`
	LastSMSSent  *time.Time   `json:"last_sms_sent,omitempty" db:"last_sms_sent"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// FullName is the display name used on the review form.
func (c *Client) FullName() string {
	if c.Surname == "" {
		return c.Name
	}
	return c.Name + " " + c.Surname
}

type CreateClientRequest struct {
	Name    string `json:"name" binding:"required"`
	Surname string `json:"surname"`
	Phone   string `json:"phone" binding:"omitempty,phone"`
	Email   string `json:"email" binding:"omitempty,email"`
	Note    string `json:"note"`
}

type UpdateClientRequest struct {
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Phone   *string `json:"phone" binding:"omitempty,phone"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Note    *string `json:"note"`
}

type ClientListResponse struct {
	Clients []*Client `json:"clients"`
	Total   int       `json:"total"`
}
