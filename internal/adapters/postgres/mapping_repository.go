package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/relaypay/gateway-bridge/internal/domain"
)

// MappingRepository implements ports.MappingStore on PostgreSQL. The
// public-key registry is content-addressed: key bytes are fingerprinted
// with SHA-256 and stored at most once, with any number of mappings
// referencing one stored row.
type MappingRepository struct {
	db *DBExecutor
}

// NewMappingRepository creates a new credential mapping repository
func NewMappingRepository(db *DBExecutor) *MappingRepository {
	return &MappingRepository{db: db}
}

// Save stores the mapping. When the mapping carries a verification key,
// the key-dedupe insert and the mapping insert run in one transaction:
// neither row becomes visible unless both commit.
func (r *MappingRepository) Save(ctx context.Context, mapping domain.CredentialMapping) error {
	if mapping.VerificationKey == nil {
		_, err := r.db.Pool().Exec(ctx,
			`INSERT INTO credential_mappings (gateway_token, business_secret, routing_token)
			 VALUES ($1, $2, $3)`,
			mapping.GatewayToken, mapping.BusinessSecret, mapping.RoutingToken)
		if err != nil {
			return domain.WrapError(domain.ErrorCodeStoreWrite, "insert credential mapping", err)
		}
		return nil
	}

	err := r.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		keyID, err := upsertPublicKey(ctx, tx, *mapping.VerificationKey)
		if err != nil {
			return fmt.Errorf("upsert public key: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO credential_mappings (gateway_token, business_secret, routing_token, public_key_id)
			 VALUES ($1, $2, $3, $4)`,
			mapping.GatewayToken, mapping.BusinessSecret, mapping.RoutingToken, keyID)
		if err != nil {
			return fmt.Errorf("insert credential mapping: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.WrapError(domain.ErrorCodeStoreWrite, "save credential mapping", err)
	}
	return nil
}

// Lookup fetches the mapping for a gateway token, joining in the
// referenced verification key when one was stored.
func (r *MappingRepository) Lookup(ctx context.Context, gatewayToken string) (*domain.CredentialMapping, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT m.gateway_token, m.business_secret, m.routing_token, k.key_data, m.created_at
		 FROM credential_mappings m
		 LEFT JOIN webhook_public_keys k ON k.id = m.public_key_id
		 WHERE m.gateway_token = $1`,
		gatewayToken)

	var mapping domain.CredentialMapping
	err := row.Scan(&mapping.GatewayToken, &mapping.BusinessSecret, &mapping.RoutingToken,
		&mapping.VerificationKey, &mapping.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewDomainError(domain.ErrorCodeMappingNotFound, "credential mapping not found").
			WithDetail("gateway_token", gatewayToken)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStoreRead, "lookup credential mapping", err)
	}

	return &mapping, nil
}

// upsertPublicKey inserts a key if its fingerprint is new and returns
// the row id either way. The no-op DO UPDATE makes RETURNING yield the
// id on conflict as well.
func upsertPublicKey(ctx context.Context, tx pgx.Tx, keyData string) (int64, error) {
	fingerprint := KeyFingerprint(keyData)

	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO webhook_public_keys (fingerprint, key_data)
		 VALUES ($1, $2)
		 ON CONFLICT (fingerprint) DO UPDATE SET fingerprint = EXCLUDED.fingerprint
		 RETURNING id`,
		fingerprint, keyData).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// KeyFingerprint returns the content address for a key byte-string.
func KeyFingerprint(keyData string) string {
	sum := sha256.Sum256([]byte(keyData))
	return hex.EncodeToString(sum[:])
}
