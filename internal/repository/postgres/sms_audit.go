package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/pkg/metrics"
)

type smsAuditRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewSMSAuditRepository(db *sqlx.DB, m *metrics.Metrics) repository.SMSAuditRepository {
	return &smsAuditRepository{db: db, metrics: m}
}

func (r *smsAuditRepository) Append(ctx context.Context, rec *model.SMSAuditRecord) (err error) {
	defer func() { record(r.metrics, "sms_audit_append", err) }()

	query := `
		INSERT INTO sms_audit (id, tenant_id, month, phone, body, provider_message_id, sent_at)
		VALUES (:id, :tenant_id, :month, :phone, :body, :provider_message_id, :sent_at)
	`
	if _, err = r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to append sms audit record: %w", err)
	}
	return nil
}

func (r *smsAuditRepository) CountForMonth(ctx context.Context, tenantID, month string) (count int, err error) {
	defer func() { record(r.metrics, "sms_audit_count", err) }()

	query := `SELECT COUNT(*) FROM sms_audit WHERE tenant_id = $1 AND month = $2`
	if err = r.db.GetContext(ctx, &count, query, tenantID, month); err != nil {
		return 0, fmt.Errorf("failed to count sms audit records: %w", err)
	}
	return count, nil
}

func (r *smsAuditRepository) ListForMonth(ctx context.Context, tenantID, month string) (records []*model.SMSAuditRecord, err error) {
	defer func() { record(r.metrics, "sms_audit_list", err) }()

	query := `SELECT * FROM sms_audit WHERE tenant_id = $1 AND month = $2 ORDER BY sent_at`
	if err = r.db.SelectContext(ctx, &records, query, tenantID, month); err != nil {
		return nil, fmt.Errorf("failed to list sms audit records: %w", err)
	}
	for _, rec := range records {
		rec.SentAt = rec.SentAt.UTC()
	}
	return records, nil
}
