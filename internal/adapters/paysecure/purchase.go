package paysecure

import (
	"context"
	"fmt"

	"github.com/relaypay/gateway-bridge/internal/domain"
	"github.com/shopspring/decimal"
)

// purchaseClient carries the optional customer fields of a purchase
// request. Field names follow the gateway schema.
type purchaseClient struct {
	Email         *string `json:"email,omitempty"`
	FullName      string  `json:"full_name,omitempty"`
	Country       *string `json:"country,omitempty"`
	StateCode     *string `json:"stateCode,omitempty"`
	StreetAddress *string `json:"street_address,omitempty"`
	City          *string `json:"city,omitempty"`
	ZipCode       *string `json:"zip_code,omitempty"`
	Phone         *string `json:"phone,omitempty"`
}

type purchaseProduct struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type purchaseBlock struct {
	Currency string            `json:"currency"`
	Products []purchaseProduct `json:"products"`
}

// createPurchaseRequest is the direct-purchase creation payload.
// paymentMethod is mandatory outside the hosted cashier.
type createPurchaseRequest struct {
	BrandID         string         `json:"brand_id"`
	Client          purchaseClient `json:"client"`
	Purchase        purchaseBlock  `json:"purchase"`
	PaymentMethod   string         `json:"paymentMethod"`
	SuccessRedirect string         `json:"success_redirect"`
	FailureRedirect string         `json:"failure_redirect"`
	PendingRedirect string         `json:"pending_redirect"`
	SuccessCallback string         `json:"success_callback"`
	FailureCallback string         `json:"failure_callback"`
}

// PurchaseResult is the gateway's record of a created or fetched
// purchase, trimmed to the fields the bridge consumes.
type PurchaseResult struct {
	PurchaseID  string  `json:"purchaseId"`
	Status      string  `json:"status"`
	CheckoutURL string  `json:"checkout_url"`
	ErrorMsg    *string `json:"errorMsg"`
	ErrorCode   *string `json:"errorCode"`
	Purchase    struct {
		Total    decimal.Decimal `json:"total"`
		Currency string          `json:"currency"`
	} `json:"purchase"`
}

func (p *PurchaseResult) validate() error {
	if p.PurchaseID == "" {
		return fmt.Errorf("purchase response missing purchaseId")
	}
	if p.Status == "" {
		return fmt.Errorf("purchase response missing status")
	}
	return nil
}

// CreatePurchase runs the direct-purchase flow: one call that creates
// the purchase with customer, product, redirect and callback URLs and
// an explicit payment method.
func (c *Client) CreatePurchase(ctx context.Context, req *domain.PaymentRequest) (*PurchaseResult, error) {
	customer := req.Params.Customer

	payload := createPurchaseRequest{
		BrandID: req.Settings.BrandID,
		Client: purchaseClient{
			Email:         customer.Email,
			FullName:      customer.FullName(),
			Country:       customer.Country,
			StateCode:     customer.State,
			StreetAddress: customer.Address,
			City:          customer.City,
			ZipCode:       customer.Postcode,
			Phone:         customer.Phone,
		},
		Purchase: purchaseBlock{
			Currency: req.Payment.Currency,
			Products: []purchaseProduct{{
				Name:  req.Payment.Product,
				Price: domain.MajorUnits(req.Payment.Amount),
			}},
		},
		PaymentMethod:   req.PaymentMethod(),
		SuccessRedirect: req.ProcessingURL,
		FailureRedirect: req.ProcessingURL,
		PendingRedirect: req.ProcessingURL,
		SuccessCallback: c.endpoints.CallbackURL,
		FailureCallback: c.endpoints.CallbackURL,
	}

	var result PurchaseResult
	if err := c.apiRequest(ctx, c.recorder.Span("payment"), "POST", "/api/v1/purchases", payload, &result); err != nil {
		return nil, err
	}
	if err := result.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayResponse, "invalid purchase response", err)
	}
	return &result, nil
}

// FetchStatus retrieves the current gateway record for a purchase.
func (c *Client) FetchStatus(ctx context.Context, gatewayToken string) (*PurchaseResult, error) {
	var result PurchaseResult
	path := fmt.Sprintf("/api/v1/purchases/%s", gatewayToken)
	if err := c.apiRequest(ctx, c.recorder.Span("status"), "GET", path, nil, &result); err != nil {
		return nil, err
	}
	if err := result.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayResponse, "invalid status response", err)
	}
	return &result, nil
}
