package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/reviewboost/review-api/internal/model"
)

// Placeholder tokens recognized in message templates. Anything else is left
// verbatim in the rendered message.
const (
	placeholderLink    = "[LINK]"
	placeholderCompany = "[NAZWA_FIRMY]"
)

// Decision is the policy verdict for one client.
type Decision struct {
	Send    bool
	Reason  string
	Message string
}

// Policy decides, for a single client plus tenant messaging configuration,
// whether a reminder is due and what the message body is.
type Policy struct {
	baseURL string
	now     func() time.Time
}

func NewPolicy(baseURL string) *Policy {
	return &Policy{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Evaluate walks the decision table in order; the first match wins.
func (p *Policy) Evaluate(client *model.Client, settings *model.TenantSettings) Decision {
	if client.Phone == "" || client.ReviewCode == "" {
		return Decision{Reason: model.ReasonNoPhone}
	}
	if client.ReviewStatus == model.ReviewStatusCompleted {
		return Decision{Reason: model.ReasonCompleted}
	}
	if client.SMSCount >= model.MaxClientSends {
		return Decision{Reason: model.ReasonClientCap}
	}

	switch client.ReviewStatus {
	case model.ReviewStatusNotSent:
		// First touch is unconditional on time; a repeated not_sent with a
		// send already on record waits for the cadence path instead.
		if client.LastSMSSent == nil {
			return Decision{Send: true, Message: p.BuildMessage(client, settings)}
		}
		return Decision{Reason: model.ReasonNotDue}

	case model.ReviewStatusSent, model.ReviewStatusOpened:
		if client.LastSMSSent == nil {
			return Decision{Send: true, Message: p.BuildMessage(client, settings)}
		}
		if p.cadenceDue(*client.LastSMSSent, settings.Messaging.ReminderFrequencyDays) {
			return Decision{Send: true, Message: p.BuildMessage(client, settings)}
		}
		return Decision{Reason: model.ReasonNotDue}

	default:
		return Decision{Reason: model.ReasonNotDue}
	}
}

// cadenceDue applies the configured reminder cadence. A frequency of one day
// compares real elapsed time against 24h so a client added at 23:59 is not
// reminded a minute later; longer frequencies compare elapsed whole days.
func (p *Policy) cadenceDue(lastSent time.Time, frequencyDays int) bool {
	if frequencyDays < 1 {
		frequencyDays = 1
	}
	elapsed := p.now().UTC().Sub(lastSent.UTC())

	if frequencyDays == 1 {
		return elapsed >= 24*time.Hour
	}
	return int(elapsed.Hours()/24) >= frequencyDays
}

// HourMatches is the time-of-day gate for the automatic sweep. Minute is
// informational only; the gate is hour-granularity, so the sweep must run at
// least hourly.
func (p *Policy) HourMatches(settings *model.TenantSettings) bool {
	return p.now().Hour() == settings.Messaging.SendHour
}

// CurrentHour exposes the gate's wall-clock hour for dry-run reports.
func (p *Policy) CurrentHour() int {
	return p.now().Hour()
}

// BuildMessage renders the tenant's template with the review link and
// company name substituted.
func (p *Policy) BuildMessage(client *model.Client, settings *model.TenantSettings) string {
	template := settings.Messaging.MessageTemplate
	if template == "" {
		template = model.DefaultMessageTemplate
	}

	company := settings.CompanyName
	if company == "" {
		company = model.DefaultCompanyName
	}

	link := fmt.Sprintf("%s/review/%s", p.baseURL, client.ReviewCode)

	msg := strings.ReplaceAll(template, placeholderLink, link)
	msg = strings.ReplaceAll(msg, placeholderCompany, company)
	return msg
}

// WithClock overrides the wall clock. Tests only.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	p.now = now
	return p
}
