package payment

import (
	"context"
	"net/http"
)

// SessionRequest captures the information required to open a hosted payment
// session with a provider. Metadata is opaque to the provider and echoed back
// on the completion webhook so settlement can recompute and verify instead of
// trusting client-supplied totals.
type SessionRequest struct {
	Reference     string
	Amount        int64
	CustomerEmail string
	Description   string
	Metadata      map[string]string
	ExpirySec     int
	SuccessURL    string
	CancelURL     string
}

// SessionResponse represents the minimal information returned by a provider
// when opening a hosted session.
type SessionResponse struct {
	Provider    string
	Token       string
	RedirectURL string
	ExpiresAt   int64
}

// WebhookResult contains the normalised data extracted from a webhook
// notification after signature verification.
type WebhookResult struct {
	Valid     bool
	Reference string
	Amount    int64
	Status    string
	Metadata  map[string]string
	Payload   []byte
	Err       error
}

// Normalised webhook statuses shared across providers.
const (
	StatusPaid    = "PAID"
	StatusPending = "PENDING"
	StatusFailed  = "FAILED"
	StatusExpired = "EXPIRED"
)

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookResult, error)
}
