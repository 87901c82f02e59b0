package paysecure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"github.com/relaypay/gateway-bridge/internal/domain"
	"go.uber.org/zap"
)

// Endpoints holds the two gateway base URLs. Purchases, sessions and
// status live on the API host; customer records live on the App host.
type Endpoints struct {
	APIBaseURL string
	AppBaseURL string
	// CallbackURL is where the gateway posts webhooks for transactions
	// this bridge creates.
	CallbackURL string
}

// errorEnvelope is the gateway's machine-readable error body. Only
// present on non-200/202 responses.
type errorEnvelope struct {
	Message *string `json:"message"`
	Code    *string `json:"code"`
}

// Client dispatches requests to the payment gateway for one tenant.
// It is request-scoped: construct one per inbound bridge request so
// the interaction log and tenant credentials stay isolated.
type Client struct {
	endpoints  Endpoints
	settings   domain.TenantSettings
	httpClient ports.HTTPClient
	logger     *zap.Logger
	recorder   *InteractionRecorder
}

// NewClient creates a gateway client for the given tenant settings
func NewClient(endpoints Endpoints, settings domain.TenantSettings, httpClient ports.HTTPClient, logger *zap.Logger) *Client {
	return &Client{
		endpoints:  endpoints,
		settings:   settings,
		httpClient: httpClient,
		logger:     logger,
		recorder:   NewInteractionRecorder(),
	}
}

// InteractionLogs returns the diagnostic records accumulated so far.
func (c *Client) InteractionLogs() []*InteractionRecord {
	return c.recorder.Build()
}

// apiRequest sends a request against the API base URL
func (c *Client) apiRequest(ctx context.Context, span *InteractionRecord, method, path string, reqBody, out any) error {
	return c.send(ctx, span, method, c.endpoints.APIBaseURL+path, reqBody, out)
}

// appRequest sends a request against the App base URL
func (c *Client) appRequest(ctx context.Context, span *InteractionRecord, method, path string, reqBody, out any) error {
	return c.send(ctx, span, method, c.endpoints.AppBaseURL+path, reqBody, out)
}

// send performs one gateway call. Per the gateway contract, 200 and 202
// are the only statuses accompanied by a success payload; every other
// status carries the error envelope. A body that fails to decode under
// the expected shape for its status class is a hard fault, never
// silently coerced.
func (c *Client) send(ctx context.Context, span *InteractionRecord, method, url string, reqBody, out any) error {
	var bodyBytes []byte
	var bodyReader io.Reader
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	span.SetRequest(method, url, bodyBytes)

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create gateway request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	req.Header.Set("BrandId", c.settings.BrandID)
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Info("making gateway request",
		zap.String("method", method),
		zap.String("url", url),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayNetwork, "gateway request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayNetwork, "read gateway response", err)
	}
	span.SetResponse(resp.StatusCode, respBody)

	c.logger.Info("gateway response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
	)

	// "You will not get Error codes if HTTPS response code is 200 or 202."
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted {
		if err := json.Unmarshal(respBody, out); err != nil {
			return domain.WrapError(domain.ErrorCodeGatewayResponse, "decode gateway success payload", err)
		}
		return nil
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return domain.WrapError(domain.ErrorCodeGatewayResponse, "decode gateway error envelope", err).
			WithDetail("http_status", resp.StatusCode)
	}

	var message, code string
	if envelope.Message != nil {
		message = *envelope.Message
	}
	if envelope.Code != nil {
		code = *envelope.Code
	}
	return domain.NewGatewayError(message, code)
}
