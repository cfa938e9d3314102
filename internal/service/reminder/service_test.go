package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/internal/repository"
	"github.com/reviewboost/review-api/internal/service/quota"
	apperrors "github.com/reviewboost/review-api/pkg/errors"
)

var sweepNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func clock() func() time.Time {
	return func() time.Time { return sweepNow }
}

type memClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*model.Client
	listErr error
}

func newMemClientRepo() *memClientRepo {
	return &memClientRepo{clients: make(map[uuid.UUID]*model.Client)}
}

func (r *memClientRepo) add(c *model.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

func (r *memClientRepo) Create(_ context.Context, c *model.Client) error {
	r.add(c)
	return nil
}

func (r *memClientRepo) Get(_ context.Context, tenantID string, id uuid.UUID) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok || c.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memClientRepo) List(_ context.Context, tenantID string) ([]*model.Client, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
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

func (r *memClientRepo) Update(_ context.Context, c *model.Client) error {
	r.add(c)
	return nil
}

func (r *memClientRepo) Delete(_ context.Context, tenantID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	return nil
}

func (r *memClientRepo) GetByReviewCode(_ context.Context, code string) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.ReviewCode == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memClientRepo) UpdateSendState(_ context.Context, tenantID string, id uuid.UUID, sentAt time.Time, smsCount int, status model.ReviewStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.LastSMSSent = &sentAt
	c.SMSCount = smsCount
	c.ReviewStatus = status
	return nil
}

func (r *memClientRepo) UpdateReviewStatus(_ context.Context, tenantID string, id uuid.UUID, status model.ReviewStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ReviewStatus = status
	return nil
}

func (r *memClientRepo) SetReview(_ context.Context, tenantID string, id uuid.UUID, stars int, review string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Stars = stars
	c.Review = review
	c.ReviewStatus = model.ReviewStatusCompleted
	return nil
}

type memTenantRepo struct {
	mu       sync.Mutex
	settings map[string]*model.TenantSettings
	getErr   map[string]error
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{settings: make(map[string]*model.TenantSettings)}
}

func (r *memTenantRepo) Get(_ context.Context, tenantID string) (*model.TenantSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.getErr[tenantID]; ok {
		return nil, err
	}
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
	var ids []string
	for id := range r.settings {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memTenantRepo) UpdatePermissionTier(_ context.Context, tenantID string, tier model.PermissionTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[tenantID]
	if !ok {
		return repository.ErrNotFound
	}
	s.PermissionTier = tier
	return nil
}

func (r *memTenantRepo) ResetMonthlyCounter(_ context.Context, tenantID, month string, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[tenantID]
	if !ok || s.LastQuotaResetMonth == month {
		return nil
	}
	s.LastQuotaResetMonth = month
	s.Messaging.SMSSentThisMonth = 0
	s.Messaging.SMSLimit = &limit
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

type memAuditRepo struct {
	mu       sync.Mutex
	records  []*model.SMSAuditRecord
	countErr error
}

func (r *memAuditRepo) Append(_ context.Context, rec *model.SMSAuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *memAuditRepo) CountForMonth(_ context.Context, tenantID, month string) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
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
	calls []string
	fail  int
	block chan struct{}
}

func (t *fakeTransport) Send(_ context.Context, _ model.TransportCredentials, to, _ string) (string, error) {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail > 0 {
		t.fail--
		return "", errors.New("provider unavailable")
	}
	t.calls = append(t.calls, to)
	return "SM" + to, nil
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

type fixture struct {
	clients   *memClientRepo
	tenants   *memTenantRepo
	audit     *memAuditRepo
	transport *fakeTransport
	svc       *Service
}

func newFixture() *fixture {
	clients := newMemClientRepo()
	tenants := newMemTenantRepo()
	audit := &memAuditRepo{}
	transport := &fakeTransport{}

	quotaSvc := quota.NewService(tenants, audit, nil, nil).WithClock(clock())
	policy := NewPolicy("https://reviews.example.com").WithClock(clock())
	svc := NewService(clients, tenants, quotaSvc, transport, policy, nil, nil).WithClock(clock())

	return &fixture{clients: clients, tenants: tenants, audit: audit, transport: transport, svc: svc}
}

func (f *fixture) addTenant(tenantID string) *model.TenantSettings {
	s := model.DefaultSettings(tenantID)
	s.CompanyName = "Zakład Jan"
	s.PermissionTier = model.TierDemo
	s.LastQuotaResetMonth = model.MonthToken(sweepNow)
	s.Messaging.AutoSendEnabled = true
	s.Messaging.SendHour = 10
	s.Messaging.ReminderFrequencyDays = 7
	s.Transport = model.TransportCredentials{AccountID: "AC1", AuthToken: "tok", SenderID: "MG1"}
	_ = f.tenants.Save(context.Background(), s)
	return f.tenants.settings[tenantID]
}

func (f *fixture) addClient(tenantID, phone string) *model.Client {
	c := &model.Client{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Anna",
		Phone:        phone,
		ReviewCode:   uuid.NewString()[:10],
		ReviewStatus: model.ReviewStatusNotSent,
		CreatedAt:    sweepNow.Add(-48 * time.Hour),
	}
	f.clients.add(c)
	return c
}

func TestSweepSendsFirstTouchAndAdvancesState(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	c := f.addClient("t1", "123456789")

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, f.transport.callCount())

	stored := f.clients.clients[c.ID]
	assert.Equal(t, model.ReviewStatusSent, stored.ReviewStatus)
	assert.Equal(t, 1, stored.SMSCount)
	require.NotNil(t, stored.LastSMSSent)
	assert.Equal(t, 1, f.tenants.settings["t1"].Messaging.SMSSentThisMonth)
	assert.Len(t, f.audit.records, 1)
}

func TestSweepSkipsOutsideSendHour(t *testing.T) {
	f := newFixture()
	s := f.addTenant("t1")
	s.Messaging.SendHour = 11
	f.addClient("t1", "123456789")

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 0, f.transport.callCount())
	require.Len(t, summary.Details, 1)
	assert.Equal(t, model.ReasonWrongHour, summary.Details[0].Reason)
}

func TestSweepSkipsWhenAutoSendDisabled(t *testing.T) {
	f := newFixture()
	s := f.addTenant("t1")
	s.Messaging.AutoSendEnabled = false
	f.addClient("t1", "123456789")

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, f.transport.callCount())
	assert.Equal(t, model.ReasonAutoSendDisabled, summary.Details[0].Reason)
}

func TestSweepNeverSendsPastClientCap(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	c := f.addClient("t1", "123456789")
	c.ReviewStatus = model.ReviewStatusSent
	c.SMSCount = model.MaxClientSends
	old := sweepNow.Add(-30 * 24 * time.Hour)
	c.LastSMSSent = &old

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, f.transport.callCount())
}

func TestQuotaErrorBlocksTransport(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	f.addClient("t1", "123456789")
	f.audit.countErr = errors.New("store down")

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, f.transport.callCount())
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Details, 1)
	assert.Equal(t, model.ReasonQuotaCheckFailed, summary.Details[0].Results[0].Reason)
}

func TestFailedTransportConsumesNoQuota(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	c := f.addClient("t1", "123456789")
	f.transport.fail = 1

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, f.audit.records, 0)
	assert.Equal(t, 0, f.tenants.settings["t1"].Messaging.SMSSentThisMonth)
	stored := f.clients.clients[c.ID]
	assert.Equal(t, model.ReviewStatusNotSent, stored.ReviewStatus)
	assert.Equal(t, 0, stored.SMSCount)

	// Retry succeeds; exactly one send is counted across both attempts.
	summary, err = f.svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Len(t, f.audit.records, 1)
	assert.Equal(t, 1, f.tenants.settings["t1"].Messaging.SMSSentThisMonth)
}

func TestTransportFailureIsolatedPerClient(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	f.addClient("t1", "123456789")
	f.addClient("t1", "987654321")
	f.addClient("t1", "555666777")
	f.transport.fail = 1

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
}

func TestManualSendAllReturnsQuotaReasonsWhenExhausted(t *testing.T) {
	f := newFixture()
	s := f.addTenant("t1")
	s.Messaging.SMSSentThisMonth = 10
	for i := 0; i < 10; i++ {
		_ = f.audit.Append(context.Background(), &model.SMSAuditRecord{
			ID: uuid.New(), TenantID: "t1", Month: model.MonthToken(sweepNow),
		})
	}
	f.addClient("t1", "123456789")
	f.addClient("t1", "987654321")
	f.addClient("t1", "555666777")

	result, err := f.svc.SendToAllClients(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 0, f.transport.callCount())
	require.Len(t, result.Results, 3)
	for _, res := range result.Results {
		assert.Equal(t, model.OutcomeSkipped, res.Outcome)
		assert.Equal(t, model.ReasonQuotaExceeded, res.Reason)
	}
}

func TestManualSendBypassesHourGate(t *testing.T) {
	f := newFixture()
	s := f.addTenant("t1")
	s.Messaging.SendHour = 23
	s.Messaging.AutoSendEnabled = false
	c := f.addClient("t1", "123456789")

	result, err := f.svc.SendToClient(context.Background(), "t1", c.ID)
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeSent, result.Outcome)
	assert.Equal(t, 1, f.transport.callCount())
}

func TestManualSendQuotaExceededSurfacesAppError(t *testing.T) {
	f := newFixture()
	s := f.addTenant("t1")
	s.Messaging.SMSSentThisMonth = 10
	for i := 0; i < 10; i++ {
		_ = f.audit.Append(context.Background(), &model.SMSAuditRecord{
			ID: uuid.New(), TenantID: "t1", Month: model.MonthToken(sweepNow),
		})
	}
	c := f.addClient("t1", "123456789")

	_, err := f.svc.SendToClient(context.Background(), "t1", c.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrQuotaExceeded, appErr.Code)
	assert.Equal(t, 0, f.transport.callCount())
}

func TestSendToClientMissingCredentials(t *testing.T) {
	f := newFixture()
	s := f.addTenant("t1")
	s.Transport = model.TransportCredentials{}
	c := f.addClient("t1", "123456789")

	_, err := f.svc.SendToClient(context.Background(), "t1", c.ID)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestConcurrentSweepRejected(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	f.addClient("t1", "123456789")
	f.transport.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.svc.RunSweep(context.Background())
	}()

	require.Eventually(t, f.svc.Sweeping, time.Second, 5*time.Millisecond)

	_, err := f.svc.RunSweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(f.transport.block)
	<-done
	assert.False(t, f.svc.Sweeping())
}

func TestTestTenantDryRunSendsNothing(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	f.addClient("t1", "123456789")
	f.addClient("t1", "")

	report, err := f.svc.TestTenant(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 0, f.transport.callCount())
	assert.True(t, report.HourMatched)
	assert.Len(t, report.Clients, 2)

	wouldSend := 0
	for _, entry := range report.Clients {
		if entry.WouldSend {
			wouldSend++
		}
	}
	assert.Equal(t, 1, wouldSend)
}

func TestSweepContinuesPastBrokenTenant(t *testing.T) {
	f := newFixture()
	f.addTenant("t1")
	f.addTenant("t2")
	f.addClient("t1", "123456789")
	f.addClient("t2", "987654321")
	f.tenants.getErr = map[string]error{"t2": errors.New("settings table unreachable")}

	summary, err := f.svc.RunSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 2, summary.Tenants)

	var brokenReason string
	for _, d := range summary.Details {
		if d.TenantID == "t2" {
			brokenReason = d.Reason
		}
	}
	assert.Equal(t, model.ReasonSettingsFailed, brokenReason)
}
