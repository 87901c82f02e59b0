package domain_test

import (
	"testing"

	"github.com/relaypay/gateway-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus_KnownStatuses(t *testing.T) {
	tests := []struct {
		gatewayStatus string
		want          domain.NormalizedStatus
	}{
		{"PAID", domain.StatusApproved},
		{"PAYMENT_IN_PROCESS", domain.StatusPending},
		{"EXPIRED", domain.StatusDeclined},
		{"ERROR", domain.StatusDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.gatewayStatus, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NormalizeStatus(tt.gatewayStatus))
		})
	}
}

func TestNormalizeStatus_CaseInsensitive(t *testing.T) {
	assert.Equal(t, domain.StatusApproved, domain.NormalizeStatus("paid"))
	assert.Equal(t, domain.StatusDeclined, domain.NormalizeStatus("Expired"))
	assert.Equal(t, domain.StatusPending, domain.NormalizeStatus("payment_in_process"))
}

func TestNormalizeStatus_UnknownDefaultsToPending(t *testing.T) {
	// An unrecognized status must never be reported as final.
	for _, s := range []string{"", "REFUNDED", "CHARGEBACK", "CANCELLED", "garbage", "PAID "} {
		assert.Equal(t, domain.StatusPending, domain.NormalizeStatus(s), "status %q", s)
	}
}
