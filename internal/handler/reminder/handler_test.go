package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/internal/service/quota"
	reminderService "github.com/reviewboost/review-api/internal/service/reminder"
)

type memTenantRepo struct {
	mu       sync.Mutex
	settings map[string]*model.TenantSettings
}

func (r *memTenantRepo) Get(_ context.Context, tenantID string) (*model.TenantSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memTenantRepo) Save(_ context.Context, s *model.TenantSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.settings[s.TenantID] = &copied
	return nil
}

func (r *memTenantRepo) ListTenantIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.settings))
	for id := range r.settings {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memTenantRepo) UpdatePermissionTier(_ context.Context, _ string, _ model.PermissionTier) error {
	return nil
}

func (r *memTenantRepo) ResetMonthlyCounter(_ context.Context, tenantID, month string, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.settings[tenantID]; ok && s.LastQuotaResetMonth != month {
		s.LastQuotaResetMonth = month
		s.Messaging.SMSSentThisMonth = 0
		s.Messaging.SMSLimit = &limit
	}
	return nil
}

func (r *memTenantRepo) IncrementSentCounter(_ context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.settings[tenantID]; ok {
		s.Messaging.SMSSentThisMonth++
	}
	return nil
}

func (r *memTenantRepo) SetSentCounter(_ context.Context, tenantID string, sent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.settings[tenantID]; ok {
		s.Messaging.SMSSentThisMonth = sent
	}
	return nil
}

type memClientRepo struct {
	mu      sync.Mutex
	clients []*model.Client
}

func (r *memClientRepo) Create(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, c)
	return nil
}

func (r *memClientRepo) Get(_ context.Context, tenantID string, id uuid.UUID) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.TenantID == tenantID && c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memClientRepo) List(_ context.Context, tenantID string) ([]*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Client
	for _, c := range r.clients {
		if c.TenantID == tenantID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memClientRepo) Update(_ context.Context, _ *model.Client) error { return nil }

func (r *memClientRepo) Delete(_ context.Context, _ string, _ uuid.UUID) error { return nil }

func (r *memClientRepo) GetByReviewCode(_ context.Context, _ string) (*model.Client, error) {
	return nil, repository.ErrNotFound
}

func (r *memClientRepo) UpdateSendState(_ context.Context, tenantID string, id uuid.UUID, sentAt time.Time, smsCount int, status model.ReviewStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.TenantID == tenantID && c.ID == id {
			c.LastSMSSent = &sentAt
			c.SMSCount = smsCount
			c.ReviewStatus = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memClientRepo) UpdateReviewStatus(_ context.Context, _ string, _ uuid.UUID, _ model.ReviewStatus) error {
	return nil
}

func (r *memClientRepo) SetReview(_ context.Context, _ string, _ uuid.UUID, _ int, _ string) error {
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	records []*model.SMSAuditRecord
}

func (r *memAuditRepo) Append(_ context.Context, rec *model.SMSAuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memAuditRepo) CountForMonth(_ context.Context, tenantID, month string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Month == month {
			n++
		}
	}
	return n, nil
}

func (r *memAuditRepo) ListForMonth(_ context.Context, tenantID, month string) ([]*model.SMSAuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SMSAuditRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Month == month {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeTransport struct {
	mu    sync.Mutex
	sent  int
	block chan struct{}
}

func (t *fakeTransport) Send(_ context.Context, _ model.TransportCredentials, _, _ string) (string, error) {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent++
	return "SM1", nil
}

var handlerNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

// newTestHandler wires a handler over one tenant with auto-send enabled, a
// matching send hour and a single eligible client.
func newTestHandler(t *testing.T, transport *fakeTransport) *Handler {
	t.Helper()
	clock := func() time.Time { return handlerNow }

	tenants := &memTenantRepo{settings: make(map[string]*model.TenantSettings)}
	clients := &memClientRepo{}
	audit := &memAuditRepo{}

	settings := model.DefaultSettings("t1")
	settings.LastQuotaResetMonth = "2026-03"
	settings.Messaging.AutoSendEnabled = true
	settings.Messaging.SendHour = 10
	settings.Transport = model.TransportCredentials{AccountID: "AC1", AuthToken: "tok", SenderID: "MG1"}
	require.NoError(t, tenants.Save(context.Background(), settings))

	require.NoError(t, clients.Create(context.Background(), &model.Client{
		ID:           uuid.New(),
		TenantID:     "t1",
		Name:         "Anna",
		Phone:        "123456789",
		ReviewCode:   "abc123def0",
		ReviewStatus: model.ReviewStatusNotSent,
	}))

	quotaSvc := quota.NewService(tenants, audit, nil, nil).WithClock(clock)
	policy := reminderService.NewPolicy("https://reviews.example.com").WithClock(clock)
	svc := reminderService.NewService(clients, tenants, quotaSvc, transport, policy, nil, nil).WithClock(clock)

	return NewHandler(svc, quotaSvc, nil, nil)
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/v1"+path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRunNowReturnsSweepSummary(t *testing.T) {
	transport := &fakeTransport{}
	h := newTestHandler(t, transport)

	w := serve(h, http.MethodPost, "/reminders/run")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool               `json:"success"`
		Data    model.SweepSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Tenants)
	assert.Equal(t, 1, resp.Data.Sent)
	assert.Equal(t, 0, resp.Data.Failed)
	assert.Equal(t, 1, transport.sent)
}

func TestRunNowConflictsWithRunningSweep(t *testing.T) {
	transport := &fakeTransport{block: make(chan struct{})}
	h := newTestHandler(t, transport)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- serve(h, http.MethodPost, "/reminders/run") }()

	require.Eventually(t, h.service.Sweeping, time.Second, 5*time.Millisecond)

	w := serve(h, http.MethodPost, "/reminders/run")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(transport.block)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
}
