package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/pkg/circuitbreaker"
	"github.com/reviewboost/review-api/pkg/logger"
)

// Sender is the transport capability the send pipeline depends on. Send
// returns the provider message identifier on success.
type Sender interface {
	Send(ctx context.Context, creds model.TransportCredentials, to, body string) (string, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to a Twilio-compatible messaging REST API. Credentials are
// per-tenant, so one client serves all tenants.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *circuitbreaker.CircuitBreaker
	logger     *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cb: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "sms-transport",
			MaxFailures: 5,
			Timeout:     time.Minute,
		}),
		logger: log,
	}
}

type messageResponse struct {
	SID string `json:"sid"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) Send(ctx context.Context, creds model.TransportCredentials, to, body string) (string, error) {
	if !creds.Complete() {
		return "", fmt.Errorf("incomplete transport credentials")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", body)
	if strings.HasPrefix(creds.SenderID, "+") {
		form.Set("From", creds.SenderID)
	} else {
		form.Set("MessagingServiceSid", creds.SenderID)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(creds.AccountID))

	var sid string
	err := c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(creds.AccountID, creds.AuthToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("transport request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			var apiErr errorResponse
			if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
				return fmt.Errorf("provider rejected message (status %d, code %d): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
			}
			return fmt.Errorf("provider rejected message: status %d", resp.StatusCode)
		}

		var msg messageResponse
		if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
		if msg.SID == "" {
			return fmt.Errorf("provider response missing message id")
		}
		sid = msg.SID
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("sms dispatched", "to", to, "sid", sid)
	return sid, nil
}
