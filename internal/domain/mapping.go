package domain

import "time"

// CredentialMapping is the bridge's only durable entity: the link from
// a gateway-assigned token back to the relying-party credentials needed
// to relay that transaction's webhook. Written exactly once at
// transaction-creation time, read at webhook-delivery time, never
// mutated or deleted by the bridge.
type CredentialMapping struct {
	GatewayToken   string
	BusinessSecret string
	RoutingToken   string
	// VerificationKey is the base64-encoded public key for webhook
	// signature checks, when the tenant registered one. Nil mappings
	// fall back to the bridge-wide gateway key.
	VerificationKey *string
	CreatedAt       time.Time
}
