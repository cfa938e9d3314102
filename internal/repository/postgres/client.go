package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/pkg/metrics"
)

type clientRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewClientRepository(db *sqlx.DB, m *metrics.Metrics) repository.ClientRepository {
	return &clientRepository{db: db, metrics: m}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) (err error) {
	defer func() { record(r.metrics, "client_create", err) }()

	query := `
		INSERT INTO clients (id, tenant_id, name, surname, phone, email, note, stars, review,
			review_code, review_status, sms_count, last_sms_sent, created_at, updated_at)
		VALUES (:id, :tenant_id, :name, :surname, :phone, :email, :note, :stars, :review,
			:review_code, :review_status, :sms_count, :last_sms_sent, :created_at, :updated_at)
	`
	if _, err = r.db.NamedExecContext(ctx, query, client); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (c *model.Client, err error) {
	defer func() { record(r.metrics, "client_get", err) }()

	query := `SELECT * FROM clients WHERE tenant_id = $1 AND id = $2`
	var client model.Client
	if err = r.db.GetContext(ctx, &client, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	normalizeClientTimes(&client)
	return &client, nil
}

// List returns all of a tenant's clients. Rows that no longer scan into the
// model are logged and skipped rather than failing the listing.
func (r *clientRepository) List(ctx context.Context, tenantID string) (clients []*model.Client, err error) {
	defer func() { record(r.metrics, "client_list", err) }()

	query := `SELECT * FROM clients WHERE tenant_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryxContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var client model.Client
		if scanErr := rows.StructScan(&client); scanErr != nil {
			log.Warn().Err(scanErr).Str("tenant_id", tenantID).Msg("skipping malformed client row")
			continue
		}
		normalizeClientTimes(&client)
		clients = append(clients, &client)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) (err error) {
	defer func() { record(r.metrics, "client_update", err) }()

	query := `
		UPDATE clients
		SET name = :name, surname = :surname, phone = :phone, email = :email,
			note = :note, updated_at = :updated_at
		WHERE tenant_id = :tenant_id AND id = :id
	`
	client.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, query, client)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireRow(res)
}

func (r *clientRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) (err error) {
	defer func() { record(r.metrics, "client_delete", err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return requireRow(res)
}

func (r *clientRepository) GetByReviewCode(ctx context.Context, code string) (c *model.Client, err error) {
	defer func() { record(r.metrics, "client_get_by_code", err) }()

	// review_code carries a unique index; this is the secondary-index lookup,
	// never a scan over tenant collections.
	query := `SELECT * FROM clients WHERE review_code = $1`
	var client model.Client
	if err = r.db.GetContext(ctx, &client, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client by review code: %w", err)
	}
	normalizeClientTimes(&client)
	return &client, nil
}

func (r *clientRepository) UpdateSendState(ctx context.Context, tenantID string, id uuid.UUID, sentAt time.Time, smsCount int, status model.ReviewStatus) (err error) {
	defer func() { record(r.metrics, "client_update_send_state", err) }()

	query := `
		UPDATE clients
		SET last_sms_sent = $1, sms_count = $2, review_status = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6
	`
	res, err := r.db.ExecContext(ctx, query, sentAt.UTC(), smsCount, status, time.Now().UTC(), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update send state: %w", err)
	}
	return requireRow(res)
}

func (r *clientRepository) UpdateReviewStatus(ctx context.Context, tenantID string, id uuid.UUID, status model.ReviewStatus) (err error) {
	defer func() { record(r.metrics, "client_update_review_status", err) }()

	query := `UPDATE clients SET review_status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	return requireRow(res)
}

func (r *clientRepository) SetReview(ctx context.Context, tenantID string, id uuid.UUID, stars int, review string) (err error) {
	defer func() { record(r.metrics, "client_set_review", err) }()

	query := `
		UPDATE clients
		SET stars = $1, review = $2, review_status = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6
	`
	res, err := r.db.ExecContext(ctx, query, stars, review, model.ReviewStatusCompleted, time.Now().UTC(), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to set review: %w", err)
	}
	return requireRow(res)
}

// normalizeClientTimes converts all stored timestamps to UTC once, at the
// store boundary, so policy arithmetic never mixes zones.
func normalizeClientTimes(c *model.Client) {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if c.LastSMSSent != nil {
		utc := c.LastSMSSent.UTC()
		c.LastSMSSent = &utc
	}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
