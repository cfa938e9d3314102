package email

import (
	"context"

	"github.com/reviewboost/review-api/internal/model"
)

// Service sends outbound email. Callers treat it as fire-and-forget; a
// failure is logged, never propagated to the review flow.
type Service interface {
	SendReviewNotification(ctx context.Context, to string, client *model.Client) error
	SendCustom(ctx context.Context, to, subject, body string) error
}
