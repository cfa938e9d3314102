package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reviewboost/review-api/internal/model"
)

var policyNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func testPolicy() *Policy {
	return NewPolicy("https://reviews.example.com").WithClock(func() time.Time { return policyNow })
}

func testSettings() *model.TenantSettings {
	s := model.DefaultSettings("t1")
	s.CompanyName = "Zakład Jan"
	s.Messaging.ReminderFrequencyDays = 7
	return s
}

func eligibleClient() *model.Client {
	return &model.Client{
		Phone:        "123456789",
		ReviewCode:   "abc123def0",
		ReviewStatus: model.ReviewStatusNotSent,
	}
}

func hoursAgo(h int) *time.Time {
	t := policyNow.Add(-time.Duration(h) * time.Hour)
	return &t
}

func ago(d time.Duration) *time.Time {
	t := policyNow.Add(-d)
	return &t
}

func TestEvaluateDecisionTable(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name       string
		mutate     func(*model.Client)
		frequency  int
		wantSend   bool
		wantReason string
	}{
		{
			name:     "first touch for not_sent client",
			mutate:   func(c *model.Client) {},
			wantSend: true,
		},
		{
			name:       "no phone",
			mutate:     func(c *model.Client) { c.Phone = "" },
			wantReason: model.ReasonNoPhone,
		},
		{
			name:       "no review code",
			mutate:     func(c *model.Client) { c.ReviewCode = "" },
			wantReason: model.ReasonNoPhone,
		},
		{
			name:       "completed review",
			mutate:     func(c *model.Client) { c.ReviewStatus = model.ReviewStatusCompleted },
			wantReason: model.ReasonCompleted,
		},
		{
			name: "per-client cap reached",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = model.MaxClientSends
				c.LastSMSSent = hoursAgo(24 * 30)
			},
			wantReason: model.ReasonClientCap,
		},
		{
			name: "completed checked before client cap",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusCompleted
				c.SMSCount = model.MaxClientSends
			},
			wantReason: model.ReasonCompleted,
		},
		{
			name: "not_sent with a send on record waits",
			mutate: func(c *model.Client) {
				c.LastSMSSent = hoursAgo(24 * 30)
			},
			wantReason: model.ReasonNotDue,
		},
		{
			name: "sent client due after frequency days",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = hoursAgo(24 * 8)
			},
			wantSend: true,
		},
		{
			name: "sent client not yet due",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = hoursAgo(24 * 3)
			},
			wantReason: model.ReasonNotDue,
		},
		{
			name: "opened client follows the same cadence",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusOpened
				c.SMSCount = 1
				c.LastSMSSent = hoursAgo(24 * 8)
			},
			wantSend: true,
		},
		{
			name: "sent client with no timestamp is due",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
			},
			wantSend: true,
		},
		{
			name: "daily frequency uses real elapsed time",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = hoursAgo(23)
			},
			frequency:  1,
			wantReason: model.ReasonNotDue,
		},
		{
			name: "daily frequency due after 24h",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = hoursAgo(25)
			},
			frequency: 1,
			wantSend:  true,
		},
		{
			name: "daily frequency one minute short",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = ago(23*time.Hour + 59*time.Minute)
			},
			frequency:  1,
			wantReason: model.ReasonNotDue,
		},
		{
			name: "daily frequency one minute past",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = ago(24*time.Hour + time.Minute)
			},
			frequency: 1,
			wantSend:  true,
		},
		{
			name: "weekly frequency one hour short of seven whole days",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = ago(6*24*time.Hour + 23*time.Hour)
			},
			wantReason: model.ReasonNotDue,
		},
		{
			name: "weekly frequency one hour past seven whole days",
			mutate: func(c *model.Client) {
				c.ReviewStatus = model.ReviewStatusSent
				c.SMSCount = 1
				c.LastSMSSent = ago(7*24*time.Hour + time.Hour)
			},
			wantSend: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := eligibleClient()
			tt.mutate(client)
			settings := testSettings()
			if tt.frequency > 0 {
				settings.Messaging.ReminderFrequencyDays = tt.frequency
			}

			d := p.Evaluate(client, settings)
			assert.Equal(t, tt.wantSend, d.Send)
			assert.Equal(t, tt.wantReason, d.Reason)
			if tt.wantSend {
				assert.NotEmpty(t, d.Message)
			}
		})
	}
}

func TestHourMatches(t *testing.T) {
	p := testPolicy()
	settings := testSettings()

	settings.Messaging.SendHour = 10
	assert.True(t, p.HourMatches(settings))

	settings.Messaging.SendHour = 11
	assert.False(t, p.HourMatches(settings))
}

func TestBuildMessage(t *testing.T) {
	p := testPolicy()
	client := eligibleClient()

	t.Run("custom template", func(t *testing.T) {
		settings := testSettings()
		settings.Messaging.MessageTemplate = "Oceń nas: [LINK] - [NAZWA_FIRMY]"

		msg := p.BuildMessage(client, settings)
		assert.Equal(t, "Oceń nas: https://reviews.example.com/review/abc123def0 - Zakład Jan", msg)
	})

	t.Run("defaults when template and company empty", func(t *testing.T) {
		settings := testSettings()
		settings.Messaging.MessageTemplate = ""
		settings.CompanyName = ""

		msg := p.BuildMessage(client, settings)
		assert.Contains(t, msg, "https://reviews.example.com/review/abc123def0")
		assert.Contains(t, msg, model.DefaultCompanyName)
		assert.NotContains(t, msg, "[LINK]")
		assert.NotContains(t, msg, "[NAZWA_FIRMY]")
	})

	t.Run("unknown tokens left verbatim", func(t *testing.T) {
		settings := testSettings()
		settings.Messaging.MessageTemplate = "[POZDRO] [LINK]"

		msg := p.BuildMessage(client, settings)
		assert.Contains(t, msg, "[POZDRO]")
	})
}
