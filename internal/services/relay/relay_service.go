package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"github.com/relaypay/gateway-bridge/internal/auth"
	"github.com/relaypay/gateway-bridge/internal/domain"
	domainports "github.com/relaypay/gateway-bridge/internal/domain/ports"
	"go.uber.org/zap"
)

const defaultDeliveryTimeout = 10 * time.Second

// Config holds the relay service wiring that is not a collaborator.
type Config struct {
	// BusinessURL is the relying party's base URL; the routing token
	// from the credential mapping completes the callback address.
	BusinessURL string
	// DefaultPublicKey is the bridge-wide base64 gateway key used for
	// mappings that were stored without a per-tenant key. Empty means
	// such webhooks cannot be authenticated and are rejected.
	DefaultPublicKey string
	// DeliveryTimeout bounds the relying-party delivery call.
	DeliveryTimeout time.Duration
}

// Service sequences the webhook path: authenticate the gateway's
// claim, look up the credential mapping, normalize the status, mint
// the callback token and deliver it. Failed deliveries are not retried
// here; the gateway's redelivery mechanism is the recovery path.
type Service struct {
	config     Config
	store      domainports.MappingStore
	verifier   *auth.WebhookVerifier
	minter     *TokenMinter
	httpClient ports.HTTPClient
	logger     *zap.Logger
}

// NewService creates a webhook relay service
func NewService(config Config, store domainports.MappingStore, verifier *auth.WebhookVerifier,
	minter *TokenMinter, httpClient ports.HTTPClient, logger *zap.Logger) *Service {
	if config.DeliveryTimeout <= 0 {
		config.DeliveryTimeout = defaultDeliveryTimeout
	}
	return &Service{
		config:     config,
		store:      store,
		verifier:   verifier,
		minter:     minter,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HandleWebhook runs one notification through the relay sequence.
// A nil return means the callback was delivered; every error carries a
// domain code the boundary maps to an HTTP status (signature errors to
// 400, missing mapping to 404, delivery failure to 500).
//
// The signature header is checked before anything else, so an unsigned
// request never touches the store. Resolving the verification key does
// require the mapping (keys are registered per tenant at save time),
// so for signed requests the lookup precedes the cryptographic check;
// a forged signature is still rejected before any token is minted or
// delivered.
func (s *Service) HandleWebhook(ctx context.Context, envelope domain.WebhookEnvelope, header http.Header) error {
	message := envelope.Message

	signature, err := auth.ExtractSignature(header)
	if err != nil {
		s.logger.Warn("webhook missing signature header",
			zap.String("purchase_id", message.PurchaseID))
		return err
	}

	mapping, err := s.lookupMapping(ctx, message)
	if err != nil {
		return err
	}

	publicKey := s.config.DefaultPublicKey
	if mapping.VerificationKey != nil {
		publicKey = *mapping.VerificationKey
	}
	if publicKey == "" {
		s.logger.Error("no verification key available for webhook",
			zap.String("gateway_token", mapping.GatewayToken))
		return domain.NewDomainError(domain.ErrorCodeSignatureInvalid, "no verification key available")
	}

	if err := s.verifier.Verify(message, publicKey, signature); err != nil {
		s.logger.Warn("webhook signature rejected",
			zap.String("purchase_id", message.PurchaseID),
			zap.String("brand_id", message.BrandID))
		return err
	}

	payload := CallbackPayload{
		Status:   domain.NormalizeStatus(message.Status),
		Reason:   message.DeclineReason(),
		Currency: message.Payment.Currency,
		Amount:   message.AmountMinor(),
	}

	token, err := s.minter.Mint(payload, mapping.BusinessSecret)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "mint callback token", err)
	}

	if err := s.deliver(ctx, mapping.RoutingToken, payload, token); err != nil {
		return err
	}

	s.logger.Info("webhook relayed",
		zap.String("gateway_token", mapping.GatewayToken),
		zap.String("status", string(payload.Status)))
	return nil
}

// lookupMapping tries each identifier the webhook carries; which one
// the mapping was keyed by depends on the flow that created it.
func (s *Service) lookupMapping(ctx context.Context, message domain.WebhookMessage) (*domain.CredentialMapping, error) {
	var lastErr error
	for _, token := range message.LookupTokens() {
		mapping, err := s.store.Lookup(ctx, token)
		if err == nil {
			return mapping, nil
		}
		if !domain.IsNotFoundError(err) {
			return nil, err
		}
		lastErr = err
	}

	s.logger.Warn("no credential mapping for webhook",
		zap.String("purchase_id", message.PurchaseID))
	return nil, lastErr
}

// deliver posts the callback payload to the relying party with the
// minted token as bearer credential. Any network failure or non-2xx
// answer is a terminal delivery error.
func (s *Service) deliver(ctx context.Context, routingToken string, payload CallbackPayload, token string) error {
	url := fmt.Sprintf("%s/callbacks/v2/gateway_callbacks/%s", s.config.BusinessURL, routingToken)

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "marshal callback payload", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.DeliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "create delivery request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("callback delivery failed", zap.String("url", url), zap.Error(err))
		return domain.WrapError(domain.ErrorCodeDeliveryFailed, "deliver callback", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("callback delivery rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return domain.NewDomainError(domain.ErrorCodeDeliveryFailed,
			fmt.Sprintf("callback endpoint returned HTTP %d", resp.StatusCode))
	}
	return nil
}
