package ports

import (
	"context"

	"github.com/relaypay/gateway-bridge/internal/domain"
)

// MappingStore persists the gateway-token to relying-party credential
// linkage. Implementations must guarantee that when a verification key
// accompanies the mapping, the key write and the mapping write commit
// as one atomic unit: a mapping must never become readable while its
// key is not durably stored, and vice versa.
type MappingStore interface {
	// Save stores a mapping. The gateway token is globally unique;
	// saving the same token twice is an error.
	Save(ctx context.Context, mapping domain.CredentialMapping) error

	// Lookup fetches the mapping for a gateway token. Returns
	// domain.ErrMappingNotFound (wrapped) when no mapping exists.
	Lookup(ctx context.Context, gatewayToken string) (*domain.CredentialMapping, error)
}
