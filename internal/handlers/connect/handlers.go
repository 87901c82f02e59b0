package connect

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/relaypay/gateway-bridge/internal/domain"
	"github.com/relaypay/gateway-bridge/internal/services/payment"
	"github.com/relaypay/gateway-bridge/internal/services/relay"
	"github.com/relaypay/gateway-bridge/pkg/observability"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handler methods and their dependencies.
type Handlers struct {
	payments *payment.Service
	relay    *relay.Service
	logger   *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(payments *payment.Service, relaySvc *relay.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		payments: payments,
		relay:    relaySvc,
		logger:   logger,
	}
}

// errorResponse is the machine-readable error envelope for rejected
// requests. Business failures on the payment path do not use it; those
// come back inside the operation's own response with result false.
type errorResponse struct {
	Message string           `json:"message"`
	Code    domain.ErrorCode `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Message: message, Code: code})
}

// Payin handles POST /pay. Gateway rejections and dispatch faults are
// reported with HTTP 200 and result false; only an undecodable or
// incomplete request body is an HTTP-level error.
func (h *Handlers) Payin(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrorCodeValidationFailed, "invalid request body")
		return
	}
	if field := missingPayinField(&req); field != "" {
		writeError(w, http.StatusBadRequest, domain.ErrorCodeValidationMissingField, "missing required field: "+field)
		return
	}

	writeJSON(w, http.StatusOK, h.payments.Payin(r.Context(), &req))
}

// Status handles POST /status.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	var req domain.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrorCodeValidationFailed, "invalid request body")
		return
	}
	if field := missingStatusField(&req); field != "" {
		writeError(w, http.StatusBadRequest, domain.ErrorCodeValidationMissingField, "missing required field: "+field)
		return
	}

	writeJSON(w, http.StatusOK, h.payments.Status(r.Context(), &req))
}

// GatewayCallback handles POST /gateway/callback, the endpoint the
// gateway notifies on terminal purchase events. The relay outcome maps
// to the HTTP status the gateway sees: 200 acknowledges delivery,
// anything else tells the gateway to redeliver later.
func (h *Handlers) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	var envelope domain.WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrorCodeValidationFailed, "invalid webhook body")
		return
	}
	if envelope.Message.PurchaseID == "" && envelope.Message.SessionID == nil {
		writeError(w, http.StatusBadRequest, domain.ErrorCodeValidationMissingField,
			"webhook carries neither purchaseId nor sessionId")
		return
	}

	status := string(domain.NormalizeStatus(envelope.Message.Status))

	err := h.relay.HandleWebhook(r.Context(), envelope, r.Header)
	if err == nil {
		observability.RecordRelay("delivered", status)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	switch {
	case domain.IsSignatureError(err):
		observability.RecordRelay("signature_rejected", status)
		h.writeDomainError(w, http.StatusBadRequest, err)
	case domain.IsNotFoundError(err):
		observability.RecordRelay("mapping_missing", status)
		h.writeDomainError(w, http.StatusNotFound, err)
	case domain.IsDeliveryError(err):
		observability.RecordRelay("delivery_failed", status)
		h.writeDomainError(w, http.StatusInternalServerError, err)
	default:
		observability.RecordRelay("error", status)
		h.writeDomainError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handlers) writeDomainError(w http.ResponseWriter, status int, err error) {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, status, domainErr.Code, domainErr.Message)
		return
	}
	writeError(w, status, domain.ErrorCodeInternalError, "internal error")
}

func missingPayinField(req *domain.PaymentRequest) string {
	switch {
	case req.Settings.APIKey == "":
		return "settings.api_key"
	case req.Settings.BrandID == "":
		return "settings.brand_id"
	case req.Payment.Amount <= 0:
		return "payment.gateway_amount"
	case req.Payment.Currency == "":
		return "payment.gateway_currency"
	case req.Payment.Product == "":
		return "payment.product"
	case req.Payment.BusinessSecret == "":
		return "payment.merchant_private_key"
	case req.Payment.RoutingToken == "":
		return "payment.token"
	case req.ProcessingURL == "":
		return "processing_url"
	default:
		return ""
	}
}

func missingStatusField(req *domain.StatusRequest) string {
	switch {
	case req.Settings.APIKey == "":
		return "settings.api_key"
	case req.Settings.BrandID == "":
		return "settings.brand_id"
	case req.Payment.GatewayToken == "":
		return "payment.gateway_token"
	default:
		return ""
	}
}
