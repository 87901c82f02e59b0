package paysecure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/relaypay/gateway-bridge/internal/domain"
)

type getCustomerRequest struct {
	MerchantCustomerID string `json:"merchantCustomerId"`
}

// createCustomerRequest mirrors the gateway's customer schema; note the
// field names differ from the purchase client block for the same data.
type createCustomerRequest struct {
	MerchantCustomerID string  `json:"merchantCustomerId"`
	FullName           string  `json:"fullName,omitempty"`
	EmailID            *string `json:"emailId,omitempty"`
	DateOfBirth        *string `json:"dateOfBirth,omitempty"`
	PhoneNo            *string `json:"phoneNo,omitempty"`
	City               *string `json:"city,omitempty"`
	StateCode          *string `json:"stateCode,omitempty"`
	ZipCode            *string `json:"zipCode,omitempty"`
	Address            *string `json:"address,omitempty"`
	Country            *string `json:"country,omitempty"`
}

type customerResult struct {
	CustomerID string `json:"customerId"`
}

func (c *customerResult) validate() error {
	if c.CustomerID == "" {
		return fmt.Errorf("customer response missing customerId")
	}
	return nil
}

// getOrCreateCustomer resolves the gateway-side customer record for the
// request's lead, creating it when the gateway does not know the lead
// yet. The get-then-create sequence makes the operation idempotent from
// the bridge's point of view.
func (c *Client) getOrCreateCustomer(ctx context.Context, req *domain.PaymentRequest) (string, error) {
	merchantCustomerID := strconv.FormatInt(req.Payment.LeadID, 10)

	var existing customerResult
	err := c.appRequest(ctx, c.recorder.Span("get_customer"), "GET", "/api/v1/customer",
		getCustomerRequest{MerchantCustomerID: merchantCustomerID}, &existing)
	if err == nil {
		if vErr := existing.validate(); vErr != nil {
			return "", domain.WrapError(domain.ErrorCodeGatewayResponse, "invalid customer response", vErr)
		}
		return existing.CustomerID, nil
	}
	if _, isGatewayErr := domain.AsGatewayError(err); !isGatewayErr {
		// Network and decode faults are not "customer unknown".
		return "", err
	}

	customer := req.Params.Customer
	payload := createCustomerRequest{
		MerchantCustomerID: merchantCustomerID,
		FullName:           customer.FullName(),
		EmailID:            customer.Email,
		DateOfBirth:        customer.Birthday,
		PhoneNo:            customer.Phone,
		City:               customer.City,
		StateCode:          customer.State,
		ZipCode:            customer.Postcode,
		Address:            customer.Address,
		Country:            customer.Country,
	}

	var created customerResult
	if err := c.appRequest(ctx, c.recorder.Span("create_customer"), "POST", "/api/v1/customer", payload, &created); err != nil {
		return "", err
	}
	if err := created.validate(); err != nil {
		return "", domain.WrapError(domain.ErrorCodeGatewayResponse, "invalid customer response", err)
	}
	return created.CustomerID, nil
}
