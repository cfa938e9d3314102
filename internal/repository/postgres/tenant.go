package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/pkg/metrics"
)

type tenantRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewTenantRepository(db *sqlx.DB, m *metrics.Metrics) repository.TenantRepository {
	return &tenantRepository{db: db, metrics: m}
}

// settingsRow is the flat table shape; it is mapped to/from the nested
// model.TenantSettings here so the rest of the code never sees column names.
type settingsRow struct {
	TenantID              string         `db:"tenant_id"`
	CompanyName           string         `db:"company_name"`
	Email                 string         `db:"email"`
	GoogleCard            string         `db:"google_card"`
	PermissionTier        string         `db:"permission_tier"`
	ReminderFrequencyDays int            `db:"reminder_frequency_days"`
	MessageTemplate       string         `db:"message_template"`
	AutoSendEnabled       bool           `db:"auto_send_enabled"`
	SendHour              int            `db:"send_hour"`
	SendMinute            int            `db:"send_minute"`
	SMSLimit              sql.NullInt64  `db:"sms_limit"`
	SMSSentThisMonth      int            `db:"sms_sent_this_month"`
	LastQuotaResetMonth   string         `db:"last_quota_reset_month"`
	SMSAccountID          sql.NullString `db:"sms_account_id"`
	SMSAuthToken          sql.NullString `db:"sms_auth_token"`
	SMSSenderID           sql.NullString `db:"sms_sender_id"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func (row *settingsRow) toModel() *model.TenantSettings {
	s := &model.TenantSettings{
		TenantID:       row.TenantID,
		CompanyName:    row.CompanyName,
		Email:          row.Email,
		GoogleCard:     row.GoogleCard,
		PermissionTier: model.PermissionTier(row.PermissionTier),
		Messaging: model.MessagingConfig{
			ReminderFrequencyDays: row.ReminderFrequencyDays,
			MessageTemplate:       row.MessageTemplate,
			AutoSendEnabled:       row.AutoSendEnabled,
			SendHour:              row.SendHour,
			SendMinute:            row.SendMinute,
			SMSSentThisMonth:      row.SMSSentThisMonth,
		},
		LastQuotaResetMonth: row.LastQuotaResetMonth,
		Transport: model.TransportCredentials{
			AccountID: row.SMSAccountID.String,
			AuthToken: row.SMSAuthToken.String,
			SenderID:  row.SMSSenderID.String,
		},
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.SMSLimit.Valid {
		limit := int(row.SMSLimit.Int64)
		s.Messaging.SMSLimit = &limit
	}
	return s
}

func fromModel(s *model.TenantSettings) *settingsRow {
	row := &settingsRow{
		TenantID:              s.TenantID,
		CompanyName:           s.CompanyName,
		Email:                 s.Email,
		GoogleCard:            s.GoogleCard,
		PermissionTier:        string(s.PermissionTier),
		ReminderFrequencyDays: s.Messaging.ReminderFrequencyDays,
		MessageTemplate:       s.Messaging.MessageTemplate,
		AutoSendEnabled:       s.Messaging.AutoSendEnabled,
		SendHour:              s.Messaging.SendHour,
		SendMinute:            s.Messaging.SendMinute,
		SMSSentThisMonth:      s.Messaging.SMSSentThisMonth,
		LastQuotaResetMonth:   s.LastQuotaResetMonth,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
	if s.Messaging.SMSLimit != nil {
		row.SMSLimit = sql.NullInt64{Int64: int64(*s.Messaging.SMSLimit), Valid: true}
	}
	if s.Transport.AccountID != "" {
		row.SMSAccountID = sql.NullString{String: s.Transport.AccountID, Valid: true}
	}
	if s.Transport.AuthToken != "" {
		row.SMSAuthToken = sql.NullString{String: s.Transport.AuthToken, Valid: true}
	}
	if s.Transport.SenderID != "" {
		row.SMSSenderID = sql.NullString{String: s.Transport.SenderID, Valid: true}
	}
	return row
}

func (r *tenantRepository) Get(ctx context.Context, tenantID string) (s *model.TenantSettings, err error) {
	defer func() { record(r.metrics, "tenant_get", err) }()

	var row settingsRow
	if err = r.db.GetContext(ctx, &row, `SELECT * FROM tenant_settings WHERE tenant_id = $1`, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}
	return row.toModel(), nil
}

func (r *tenantRepository) Save(ctx context.Context, settings *model.TenantSettings) (err error) {
	defer func() { record(r.metrics, "tenant_save", err) }()

	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	query := `
		INSERT INTO tenant_settings (tenant_id, company_name, email, google_card, permission_tier,
			reminder_frequency_days, message_template, auto_send_enabled, send_hour, send_minute,
			sms_limit, sms_sent_this_month, last_quota_reset_month,
			sms_account_id, sms_auth_token, sms_sender_id, created_at, updated_at)
		VALUES (:tenant_id, :company_name, :email, :google_card, :permission_tier,
			:reminder_frequency_days, :message_template, :auto_send_enabled, :send_hour, :send_minute,
			:sms_limit, :sms_sent_this_month, :last_quota_reset_month,
			:sms_account_id, :sms_auth_token, :sms_sender_id, :created_at, :updated_at)
		ON CONFLICT (tenant_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			email = EXCLUDED.email,
			google_card = EXCLUDED.google_card,
			reminder_frequency_days = EXCLUDED.reminder_frequency_days,
			message_template = EXCLUDED.message_template,
			auto_send_enabled = EXCLUDED.auto_send_enabled,
			send_hour = EXCLUDED.send_hour,
			send_minute = EXCLUDED.send_minute,
			sms_account_id = EXCLUDED.sms_account_id,
			sms_auth_token = EXCLUDED.sms_auth_token,
			sms_sender_id = EXCLUDED.sms_sender_id,
			updated_at = EXCLUDED.updated_at
	`
	if _, err = r.db.NamedExecContext(ctx, query, fromModel(settings)); err != nil {
		return fmt.Errorf("failed to save tenant settings: %w", err)
	}
	return nil
}

func (r *tenantRepository) ListTenantIDs(ctx context.Context) (ids []string, err error) {
	defer func() { record(r.metrics, "tenant_list", err) }()

	if err = r.db.SelectContext(ctx, &ids, `SELECT tenant_id FROM tenant_settings ORDER BY tenant_id`); err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return ids, nil
}

func (r *tenantRepository) UpdatePermissionTier(ctx context.Context, tenantID string, tier model.PermissionTier) (err error) {
	defer func() { record(r.metrics, "tenant_update_tier", err) }()

	query := `UPDATE tenant_settings SET permission_tier = $1, updated_at = $2 WHERE tenant_id = $3`
	res, err := r.db.ExecContext(ctx, query, tier, time.Now().UTC(), tenantID)
	if err != nil {
		return fmt.Errorf("failed to update permission tier: %w", err)
	}
	return requireRow(res)
}

func (r *tenantRepository) ResetMonthlyCounter(ctx context.Context, tenantID, month string, limit int) (err error) {
	defer func() { record(r.metrics, "tenant_reset_counter", err) }()

	query := `
		UPDATE tenant_settings
		SET sms_sent_this_month = 0, last_quota_reset_month = $1, sms_limit = $2, updated_at = $3
		WHERE tenant_id = $4 AND last_quota_reset_month <> $1
	`
	// The month guard keeps the reset idempotent when two checks race over a
	// month boundary.
	if _, err = r.db.ExecContext(ctx, query, month, limit, time.Now().UTC(), tenantID); err != nil {
		return fmt.Errorf("failed to reset monthly counter: %w", err)
	}
	return nil
}

func (r *tenantRepository) IncrementSentCounter(ctx context.Context, tenantID string) (err error) {
	defer func() { record(r.metrics, "tenant_increment_counter", err) }()

	query := `
		UPDATE tenant_settings
		SET sms_sent_this_month = sms_sent_this_month + 1, updated_at = $1
		WHERE tenant_id = $2
	`
	if _, err = r.db.ExecContext(ctx, query, time.Now().UTC(), tenantID); err != nil {
		return fmt.Errorf("failed to increment sent counter: %w", err)
	}
	return nil
}

func (r *tenantRepository) SetSentCounter(ctx context.Context, tenantID string, sent int) (err error) {
	defer func() { record(r.metrics, "tenant_set_counter", err) }()

	query := `UPDATE tenant_settings SET sms_sent_this_month = $1, updated_at = $2 WHERE tenant_id = $3`
	if _, err = r.db.ExecContext(ctx, query, sent, time.Now().UTC(), tenantID); err != nil {
		return fmt.Errorf("failed to set sent counter: %w", err)
	}
	return nil
}
