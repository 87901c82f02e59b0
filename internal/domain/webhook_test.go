package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/relaypay/gateway-bridge/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookMessage_SigningString(t *testing.T) {
	msg := domain.WebhookMessage{
		PurchaseID: "pur_123",
		Status:     "PAID",
		BrandID:    "brand-1",
	}
	assert.Equal(t, "pur_123|PAID|brand-1", msg.SigningString())
}

func TestWebhookMessage_AmountMinor(t *testing.T) {
	msg := domain.WebhookMessage{
		AmountUnit: domain.AmountUnitMajor,
		Payment:    domain.WebhookPayment{Currency: "EUR", Amount: decimal.RequireFromString("19.995")},
	}
	assert.Equal(t, int64(1999), msg.AmountMinor())

	msg.AmountUnit = domain.AmountUnitMinor
	msg.Payment.Amount = decimal.RequireFromString("1999")
	assert.Equal(t, int64(1999), msg.AmountMinor())
}

func TestWebhookMessage_LookupTokens(t *testing.T) {
	msg := domain.WebhookMessage{PurchaseID: "pur_1"}
	assert.Equal(t, []string{"pur_1"}, msg.LookupTokens())

	session := "ses_2"
	msg.SessionID = &session
	assert.Equal(t, []string{"pur_1", "ses_2"}, msg.LookupTokens())
}

func TestWebhookMessage_DeclineReason(t *testing.T) {
	errMsg := "card expired"

	msg := domain.WebhookMessage{Status: "EXPIRED", ErrorMsg: &errMsg}
	reason := msg.DeclineReason()
	require.NotNil(t, reason)
	assert.Equal(t, "card expired", *reason)

	// Raw status is the fallback when the gateway sent no error text.
	msg.ErrorMsg = nil
	reason = msg.DeclineReason()
	require.NotNil(t, reason)
	assert.Equal(t, "EXPIRED", *reason)

	// Non-declined statuses carry no reason.
	msg.Status = "PAID"
	assert.Nil(t, msg.DeclineReason())
}

func TestWebhookEnvelope_Decode(t *testing.T) {
	body := `{
		"message": {
			"purchaseId": "pur_9",
			"sessionId": "ses_9",
			"amountUnit": "MAJOR",
			"errorMsg": null,
			"payment": {"currency": "BRL", "amount": 12.3},
			"brand_id": "brand-7",
			"status": "PAID"
		},
		"status": "PAID"
	}`

	var envelope domain.WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &envelope))

	assert.Equal(t, "pur_9", envelope.Message.PurchaseID)
	require.NotNil(t, envelope.Message.SessionID)
	assert.Equal(t, "ses_9", *envelope.Message.SessionID)
	assert.Equal(t, int64(1230), envelope.Message.AmountMinor())
	assert.Equal(t, "BRL", envelope.Message.Payment.Currency)
}
