package auth

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	"github.com/relaypay/gateway-bridge/internal/domain"
)

// Signature header variants seen from the gateway. The first present
// value wins.
var signatureHeaders = []string{"X-Signature", "X_Signature"}

// ExtractSignature pulls the detached webhook signature out of the
// transport headers. Returns domain.ErrSignatureMissing when no variant
// is present; that rejection is terminal, the gateway's own redelivery
// mechanism governs retries.
func ExtractSignature(header http.Header) (string, error) {
	for _, name := range signatureHeaders {
		if v := header.Get(name); v != "" {
			return v, nil
		}
	}
	return "", domain.ErrSignatureMissing
}

// WebhookVerifier authenticates inbound gateway notifications against
// the canonical signing string using RSA with a SHA-256 digest.
type WebhookVerifier struct{}

// NewWebhookVerifier creates a webhook verifier
func NewWebhookVerifier() *WebhookVerifier {
	return &WebhookVerifier{}
}

// Verify checks the base64-encoded signature over the message's
// canonical signing string. publicKeyB64 is the stored base64 form of
// the PEM key. Only the signed triple (purchase id, raw status, brand
// id) is authenticated by a passing check; the envelope's other fields
// remain unauthenticated claims.
func (v *WebhookVerifier) Verify(message domain.WebhookMessage, publicKeyB64, signatureB64 string) error {
	publicKey, err := decodePublicKey(publicKeyB64)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeSignatureInvalid, "decode verification key", err)
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeSignatureInvalid, "decode signature", err)
	}

	digest := sha256.Sum256([]byte(message.SigningString()))
	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, digest[:], signature); err != nil {
		return domain.NewDomainError(domain.ErrorCodeSignatureInvalid, "webhook signature verification failed").
			WithDetail("purchase_id", message.PurchaseID)
	}
	return nil
}

// decodePublicKey turns the stored base64(PEM) form into an RSA key.
func decodePublicKey(publicKeyB64 string) (*rsa.PublicKey, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to parse PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}

	return rsaPub, nil
}
