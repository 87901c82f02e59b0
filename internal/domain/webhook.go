package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountUnit tells how the webhook's amount field is scaled.
type AmountUnit string

const (
	AmountUnitMajor AmountUnit = "MAJOR"
	AmountUnitMinor AmountUnit = "MINOR"
)

// WebhookPayment is the monetary block of a webhook message. The
// amount arrives as a JSON number; decimal.Decimal keeps fractional
// major-unit values exact through the minor-unit conversion.
type WebhookPayment struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// WebhookMessage is the signed claim inside a gateway webhook. Only
// PurchaseID, Status and BrandID are covered by the detached signature;
// the remaining fields are used for the relayed payload but must not be
// treated as authenticated.
type WebhookMessage struct {
	PurchaseID string         `json:"purchaseId"`
	SessionID  *string        `json:"sessionId,omitempty"`
	AmountUnit AmountUnit     `json:"amountUnit"`
	ErrorMsg   *string        `json:"errorMsg,omitempty"`
	Payment    WebhookPayment `json:"payment"`
	BrandID    string         `json:"brand_id"`
	Status     string         `json:"status"`
}

// WebhookEnvelope is the canonical v2 wire contract for inbound gateway
// notifications. The top-level status duplicates message.status on the
// wire; the signed copy inside the message is the one that counts.
// Never persisted.
type WebhookEnvelope struct {
	Message WebhookMessage `json:"message"`
	Status  string         `json:"status"`
}

// SigningString builds the canonical string the gateway's webhook
// signature is computed over: exactly the transaction identifier, the
// raw status and the tenant id, pipe-joined in that order. Amount,
// currency and error text are deliberately outside the signed set.
func (m WebhookMessage) SigningString() string {
	return strings.Join([]string{m.PurchaseID, m.Status, m.BrandID}, "|")
}

// AmountMinor returns the webhook amount in minor units, honoring the
// declared amount unit. Major-unit amounts are floored, matching the
// callback token contract.
func (m WebhookMessage) AmountMinor() int64 {
	if m.AmountUnit == AmountUnitMinor {
		return m.Payment.Amount.IntPart()
	}
	return MinorUnits(m.Payment.Amount)
}

// LookupTokens returns the gateway tokens to try against the credential
// mapping store, in order. Which identifier the mapping was keyed by
// depends on the flow that created the transaction, so both are tried.
func (m WebhookMessage) LookupTokens() []string {
	tokens := []string{m.PurchaseID}
	if m.SessionID != nil && *m.SessionID != "" {
		tokens = append(tokens, *m.SessionID)
	}
	return tokens
}

// DeclineReason resolves the reason string relayed for a declined
// payment: the gateway's error text when present, the raw status
// otherwise. Returns nil unless the normalized status is declined.
func (m WebhookMessage) DeclineReason() *string {
	if NormalizeStatus(m.Status) != StatusDeclined {
		return nil
	}
	if m.ErrorMsg != nil && *m.ErrorMsg != "" {
		return m.ErrorMsg
	}
	reason := m.Status
	return &reason
}
