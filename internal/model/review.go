package model

// ReviewForm is what the public review page needs to render.
type ReviewForm struct {
	ReviewCode  string `json:"review_code"`
	ClientName  string `json:"client_name"`
	CompanyName string `json:"company_name"`
}

// ReviewSubmission is the public review form payload.
type ReviewSubmission struct {
	Stars  int    `json:"stars" binding:"required,min=1,max=5"`
	Review string `json:"review"`
}

// ReviewResponse acknowledges a submitted review.
type ReviewResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReviewCompletedEvent is published to the notification channel when a client
// submits a review.
type ReviewCompletedEvent struct {
	TenantID   string `json:"tenant_id"`
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	Stars      int    `json:"stars"`
	Review     string `json:"review"`
}
