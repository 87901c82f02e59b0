package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/relaypay/gateway-bridge/internal/adapters/paysecure"
	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"github.com/relaypay/gateway-bridge/internal/domain"
	domainports "github.com/relaypay/gateway-bridge/internal/domain/ports"
	"github.com/relaypay/gateway-bridge/pkg/observability"
	"go.uber.org/zap"
)

const defaultGatewayTimeout = 30 * time.Second

// redirectType is the only redirect mode the gateway's checkout and
// session URLs support.
const redirectType = "get_with_processing"

// PayinResponse is the RP-facing result of a payment initiation. Both
// the success and failure variants share this shape; Result tells them
// apart and Logs is populated either way.
type PayinResponse struct {
	Result          bool                           `json:"result"`
	Status          domain.NormalizedStatus        `json:"status,omitempty"`
	Details         *string                        `json:"details,omitempty"`
	Amount          *int64                         `json:"amount,omitempty"`
	Currency        string                         `json:"currency,omitempty"`
	RedirectRequest *domain.RedirectRequest        `json:"redirect_request,omitempty"`
	GatewayToken    string                         `json:"gateway_token,omitempty"`
	Error           string                         `json:"error,omitempty"`
	Logs            []*paysecure.InteractionRecord `json:"logs"`
}

// StatusResponse is the RP-facing result of a status query.
type StatusResponse struct {
	Result   bool                           `json:"result"`
	Status   domain.NormalizedStatus        `json:"status,omitempty"`
	Details  string                         `json:"details"`
	Amount   int64                          `json:"amount,omitempty"`
	Currency string                         `json:"currency,omitempty"`
	Error    string                         `json:"error,omitempty"`
	Logs     []*paysecure.InteractionRecord `json:"logs"`
}

// Service composes the gateway dispatcher and the credential mapping
// store for the payment-initiation and status-query operations. A
// fresh gateway client is built per request from the request's own
// tenant settings; nothing tenant-scoped lives on the service.
type Service struct {
	endpoints      paysecure.Endpoints
	httpClient     ports.HTTPClient
	store          domainports.MappingStore
	gatewayTimeout time.Duration
	logger         *zap.Logger
}

// NewService creates a payment service
func NewService(endpoints paysecure.Endpoints, httpClient ports.HTTPClient,
	store domainports.MappingStore, logger *zap.Logger) *Service {
	return &Service{
		endpoints:      endpoints,
		httpClient:     httpClient,
		store:          store,
		gatewayTimeout: defaultGatewayTimeout,
		logger:         logger,
	}
}

// Payin initiates a payment. The flow is selected by the request: the
// hosted-session flow when the return-routing parameter is absent or
// the tenant forces hosted checkout, the direct-purchase flow
// otherwise. Failures come back as the response's failure variant, not
// as an error; the boundary returns both variants with HTTP 200.
func (s *Service) Payin(ctx context.Context, req *domain.PaymentRequest) *PayinResponse {
	client := paysecure.NewClient(s.endpoints, req.Settings, s.httpClient, s.logger)

	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	if req.UseHostedSession() {
		return s.hostedPayin(ctx, client, req)
	}
	return s.directPayin(ctx, client, req)
}

func (s *Service) directPayin(ctx context.Context, client *paysecure.Client, req *domain.PaymentRequest) *PayinResponse {
	result, err := client.CreatePurchase(ctx, req)
	if err != nil {
		observability.RecordPayment("direct", "failed", req.Payment.Currency, 0)
		return payinFailure(err, client.InteractionLogs())
	}

	s.saveMapping(ctx, req, result.PurchaseID)

	status := domain.NormalizeStatus(result.Status)
	amount := domain.MinorUnits(result.Purchase.Total)
	observability.RecordPayment("direct", string(status), result.Purchase.Currency, amount)

	resp := &PayinResponse{
		Result:       true,
		Status:       status,
		Amount:       &amount,
		Currency:     result.Purchase.Currency,
		GatewayToken: result.PurchaseID,
		RedirectRequest: &domain.RedirectRequest{
			Type: redirectType,
			URL:  result.CheckoutURL,
		},
		Logs: client.InteractionLogs(),
	}
	if status == domain.StatusDeclined && result.ErrorMsg != nil {
		resp.Details = result.ErrorMsg
	}
	return resp
}

func (s *Service) hostedPayin(ctx context.Context, client *paysecure.Client, req *domain.PaymentRequest) *PayinResponse {
	result, err := client.CreateSession(ctx, req)
	if err != nil {
		observability.RecordPayment("hosted_session", "failed", req.Payment.Currency, 0)
		return payinFailure(err, client.InteractionLogs())
	}

	s.saveMapping(ctx, req, result.SessionID)
	observability.RecordPayment("hosted_session", string(domain.StatusPending), req.Payment.Currency, req.Payment.Amount)

	// The gateway has not processed any payment yet; the session only
	// parks the payer at hosted checkout.
	return &PayinResponse{
		Result:       true,
		Status:       domain.StatusPending,
		GatewayToken: result.SessionID,
		RedirectRequest: &domain.RedirectRequest{
			Type: redirectType,
			URL:  result.SessionURL,
		},
		Logs: client.InteractionLogs(),
	}
}

// Status queries the gateway for the current state of a purchase.
func (s *Service) Status(ctx context.Context, req *domain.StatusRequest) *StatusResponse {
	client := paysecure.NewClient(s.endpoints, req.Settings, s.httpClient, s.logger)

	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	result, err := client.FetchStatus(ctx, req.Payment.GatewayToken)
	if err != nil {
		return &StatusResponse{
			Result: false,
			Error:  failureMessage(err),
			Logs:   client.InteractionLogs(),
		}
	}

	status := domain.NormalizeStatus(result.Status)
	resp := &StatusResponse{
		Result:   true,
		Status:   status,
		Amount:   domain.MinorUnits(result.Purchase.Total),
		Currency: result.Purchase.Currency,
		Logs:     client.InteractionLogs(),
	}
	if status == domain.StatusDeclined && result.ErrorMsg != nil {
		resp.Details = *result.ErrorMsg
	}
	return resp
}

// saveMapping persists the credential linkage for the later webhook.
// A write failure is logged but does not fail the payment: the payer's
// transaction already exists at the gateway, so degrading to "webhook
// undeliverable" beats blocking the payment.
func (s *Service) saveMapping(ctx context.Context, req *domain.PaymentRequest, gatewayToken string) {
	err := s.store.Save(ctx, domain.CredentialMapping{
		GatewayToken:    gatewayToken,
		BusinessSecret:  req.Payment.BusinessSecret,
		RoutingToken:    req.Payment.RoutingToken,
		VerificationKey: req.Settings.WebhookPublicKey,
	})
	if err != nil {
		s.logger.Error("failed to persist credential mapping",
			zap.String("gateway_token", gatewayToken),
			zap.Error(err))
	}
}

func payinFailure(err error, logs []*paysecure.InteractionRecord) *PayinResponse {
	return &PayinResponse{
		Result: false,
		Error:  failureMessage(err),
		Logs:   logs,
	}
}

// failureMessage translates a dispatch error into the RP-facing error
// string: gateway rejections carry the decoded envelope, everything
// else the bridge's own message.
func failureMessage(err error) string {
	if gwErr, ok := domain.AsGatewayError(err); ok {
		return fmt.Sprintf("Gateway error: %s (%s)", gwErr.GatewayMessage, gwErr.GatewayCode)
	}
	return fmt.Sprintf("Gateway bridge error: %v", err)
}
