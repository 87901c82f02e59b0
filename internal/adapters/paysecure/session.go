package paysecure

import (
	"context"
	"fmt"

	"github.com/relaypay/gateway-bridge/internal/domain"
)

// sessionProduct prices are strings in the session API, unlike the
// purchase API which takes numbers.
type sessionProduct struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type createSessionRequest struct {
	CustomerID      string           `json:"customerId"`
	Currency        string           `json:"currency"`
	Products        []sessionProduct `json:"products"`
	PaymentMethod   *string          `json:"paymentMethod,omitempty"`
	SuccessRedirect string           `json:"success_redirect"`
	FailureRedirect string           `json:"failure_redirect"`
	PendingRedirect string           `json:"pending_redirect"`
	SuccessCallback string           `json:"success_callback"`
	FailureCallback string           `json:"failure_callback"`
}

// SessionResult is the gateway's hosted-session record.
type SessionResult struct {
	SessionID  string `json:"sessionId"`
	SessionURL string `json:"sessionUrl"`
	BrandID    string `json:"brandId"`
	CustomerID string `json:"customerId"`
}

func (s *SessionResult) validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session response missing sessionId")
	}
	if s.SessionURL == "" {
		return fmt.Errorf("session response missing sessionUrl")
	}
	return nil
}

// CreateSession runs the hosted-session flow: resolve the gateway
// customer for the lead (get, create on miss), then open a payment
// session. The gateway has not processed any payment at this point, so
// callers report the initial status as pending regardless of what the
// session record says.
func (c *Client) CreateSession(ctx context.Context, req *domain.PaymentRequest) (*SessionResult, error) {
	customerID, err := c.getOrCreateCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	payload := createSessionRequest{
		CustomerID: customerID,
		Currency:   req.Payment.Currency,
		Products: []sessionProduct{{
			Name:  req.Payment.Product,
			Price: domain.MajorUnits(req.Payment.Amount).StringFixed(2),
		}},
		PaymentMethod:   domain.NormalizeExtraReturnParam(req.Payment.ExtraReturnParam),
		SuccessRedirect: req.ProcessingURL,
		FailureRedirect: req.ProcessingURL,
		PendingRedirect: req.ProcessingURL,
		SuccessCallback: c.endpoints.CallbackURL,
		FailureCallback: c.endpoints.CallbackURL,
	}

	var result SessionResult
	if err := c.apiRequest(ctx, c.recorder.Span("create_session"), "POST", "/api/v1/createSession", payload, &result); err != nil {
		return nil, err
	}
	if err := result.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayResponse, "invalid session response", err)
	}
	return &result, nil
}
