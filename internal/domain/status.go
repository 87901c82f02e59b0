package domain

import "strings"

// NormalizedStatus is the tri-state payment status reported to the
// relying party, derived from the gateway's own status vocabulary.
type NormalizedStatus string

const (
	StatusApproved NormalizedStatus = "approved"
	StatusDeclined NormalizedStatus = "declined"
	StatusPending  NormalizedStatus = "pending"
)

// gatewayStatusMapping maps the gateway's status vocabulary onto the
// normalized tri-state model. The gateway documents more statuses than
// these (cancelled, refunded, chargeback, ...); anything outside the
// table is reported as pending so that an unrecognized status can never
// be mistaken for a final result.
var gatewayStatusMapping = map[string]NormalizedStatus{
	"PAID":               StatusApproved,
	"PAYMENT_IN_PROCESS": StatusPending,
	"EXPIRED":            StatusDeclined,
	"ERROR":              StatusDeclined,
}

// NormalizeStatus translates a raw gateway status into a NormalizedStatus.
// The lookup is case-insensitive and never fails.
func NormalizeStatus(gatewayStatus string) NormalizedStatus {
	if s, ok := gatewayStatusMapping[strings.ToUpper(gatewayStatus)]; ok {
		return s
	}
	return StatusPending
}
