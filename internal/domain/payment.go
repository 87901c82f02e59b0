package domain

import (
	"github.com/shopspring/decimal"
)

// blankReturnParam is the sentinel the relying party sends when the
// return-routing parameter was configured but left empty.
const blankReturnParam = "_blank_"

// DefaultPaymentMethod is used for the direct-purchase flow when the
// request does not carry a usable return-routing parameter.
const DefaultPaymentMethod = "APPLEPAY-REDIRECT"

// TenantSettings identifies the relying-party tenant at the gateway.
// These are request-scoped values, never process-wide state, so one
// bridge instance can serve any number of tenants concurrently.
type TenantSettings struct {
	APIKey             string  `json:"api_key"`
	BrandID            string  `json:"brand_id"`
	Method             *string `json:"method,omitempty"`
	Sandbox            bool    `json:"sandbox,omitempty"`
	ForceHostedSession bool    `json:"force_hosted_session,omitempty"`
	// WebhookPublicKey is the base64-encoded key the gateway signs
	// webhooks for this tenant with. Stored alongside the credential
	// mapping at transaction-creation time.
	WebhookPublicKey *string `json:"webhook_public_key,omitempty"`
}

// PaymentDetails carries the payment half of an inbound payin request.
// Amount is in minor units of Currency.
type PaymentDetails struct {
	Amount           int64   `json:"gateway_amount"`
	Currency         string  `json:"gateway_currency"`
	Product          string  `json:"product"`
	ExtraReturnParam *string `json:"extra_return_param,omitempty"`
	// BusinessSecret is opaque to the bridge; it is echoed back to the
	// relying party inside the encrypted block of the callback token.
	BusinessSecret string `json:"merchant_private_key"`
	// RoutingToken addresses the relying-party callback endpoint that
	// the webhook relay delivers to.
	RoutingToken string `json:"token"`
	LeadID       int64  `json:"lead_id"`
}

// CustomerProfile carries the optional customer fields forwarded to the
// gateway. LeadID on PaymentDetails is the only required identifier.
type CustomerProfile struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Country   *string `json:"country,omitempty"`
	State     *string `json:"state,omitempty"`
	Address   *string `json:"address,omitempty"`
	City      *string `json:"city,omitempty"`
	Postcode  *string `json:"postcode,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Birthday  *string `json:"birthday,omitempty"`
}

// PaymentRequest is a validated payin request from the relying party.
// Immutable once decoded at the boundary.
type PaymentRequest struct {
	Settings      TenantSettings `json:"settings"`
	Payment       PaymentDetails `json:"payment"`
	Params        RequestParams  `json:"params"`
	ProcessingURL string         `json:"processing_url"`
}

// RequestParams wraps the nested parameter block of the inbound schema.
type RequestParams struct {
	Customer CustomerProfile `json:"customer"`
}

// StatusRequest is a validated status query from the relying party.
type StatusRequest struct {
	Settings TenantSettings `json:"settings"`
	Payment  struct {
		GatewayToken string `json:"gateway_token"`
	} `json:"payment"`
}

// RedirectRequest tells the relying party how to send the payer onward.
type RedirectRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// FullName joins the optional first/last name fields the way the
// gateway expects a single display name.
func (c CustomerProfile) FullName() string {
	var first, last string
	if c.FirstName != nil {
		first = *c.FirstName
	}
	if c.LastName != nil {
		last = *c.LastName
	}
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// NormalizeExtraReturnParam collapses an absent or blank-sentinel
// return-routing parameter to nil. The result drives flow selection:
// nil selects the hosted-session flow, anything else the direct flow
// (where it doubles as the gateway payment method).
func NormalizeExtraReturnParam(param *string) *string {
	if param == nil || *param == "" || *param == blankReturnParam {
		return nil
	}
	return param
}

// UseHostedSession reports whether the request must take the
// hosted-session flow: either the return-routing parameter is
// absent/blank or the tenant forces hosted checkout.
func (r *PaymentRequest) UseHostedSession() bool {
	return NormalizeExtraReturnParam(r.Payment.ExtraReturnParam) == nil ||
		r.Settings.ForceHostedSession
}

// PaymentMethod resolves the gateway payment method for the direct
// flow from the return-routing parameter, falling back to the default.
func (r *PaymentRequest) PaymentMethod() string {
	if p := NormalizeExtraReturnParam(r.Payment.ExtraReturnParam); p != nil {
		return *p
	}
	return DefaultPaymentMethod
}

// MinorUnits converts a gateway-reported major-unit amount to minor
// units as floor(amount * 100). Floor is the contract: 19.995 must
// become 1999, not 2000, or the relayed amount disagrees with the
// relying party's books by a cent.
func MinorUnits(major decimal.Decimal) int64 {
	return major.Mul(decimal.NewFromInt(100)).Floor().IntPart()
}

// MajorUnits converts a minor-unit amount to the gateway's decimal
// major-unit representation.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}
