package paysecure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaypay/gateway-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func testSettings() domain.TenantSettings {
	return domain.TenantSettings{
		APIKey:  "test-api-key",
		BrandID: "brand-42",
	}
}

func testRequest() *domain.PaymentRequest {
	req := &domain.PaymentRequest{
		Settings:      testSettings(),
		ProcessingURL: "https://rp.example.com/processing",
	}
	req.Payment = domain.PaymentDetails{
		Amount:           1230,
		Currency:         "BRL",
		Product:          "subscription",
		ExtraReturnParam: strPtr("PIX"),
		BusinessSecret:   "rp-secret",
		RoutingToken:     "routing-token",
		LeadID:           7001,
	}
	req.Params.Customer = domain.CustomerProfile{
		Email:     strPtr("payer@example.com"),
		FirstName: strPtr("Ada"),
		LastName:  strPtr("Lovelace"),
	}
	return req
}

func newTestClient(serverURL string) *Client {
	endpoints := Endpoints{
		APIBaseURL:  serverURL,
		AppBaseURL:  serverURL + "/app",
		CallbackURL: "https://bridge.example.com/gateway/callback",
	}
	return NewClient(endpoints, testSettings(), &http.Client{}, zap.NewNop())
}

func TestCreatePurchase_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/purchases", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "brand-42", r.Header.Get("BrandId"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req createPurchaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "brand-42", req.BrandID)
		assert.Equal(t, "PIX", req.PaymentMethod)
		assert.Equal(t, "Ada Lovelace", req.Client.FullName)
		require.Len(t, req.Purchase.Products, 1)
		assert.Equal(t, "12.3", req.Purchase.Products[0].Price.String())
		assert.Equal(t, "https://rp.example.com/processing", req.SuccessRedirect)
		assert.Equal(t, "https://bridge.example.com/gateway/callback", req.SuccessCallback)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"purchaseId": "pur_1",
			"status": "PAYMENT_IN_PROCESS",
			"checkout_url": "https://gw.example.com/checkout/pur_1",
			"purchase": {"total": 12.3, "currency": "BRL"}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.CreatePurchase(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "pur_1", result.PurchaseID)
	assert.Equal(t, "PAYMENT_IN_PROCESS", result.Status)
	assert.Equal(t, "https://gw.example.com/checkout/pur_1", result.CheckoutURL)
	assert.Equal(t, int64(1230), domain.MinorUnits(result.Purchase.Total))

	logs := client.InteractionLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "payment", logs[0].Name)
	assert.Equal(t, "POST", logs[0].Method)
	assert.Equal(t, 200, logs[0].ResponseStatus)
	assert.NotNil(t, logs[0].RequestBody)
}

func TestCreatePurchase_DefaultPaymentMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createPurchaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.DefaultPaymentMethod, req.PaymentMethod)

		w.Write([]byte(`{"purchaseId":"pur_2","status":"PAID","checkout_url":"u","purchase":{"total":1,"currency":"BRL"}}`))
	}))
	defer server.Close()

	req := testRequest()
	req.Payment.ExtraReturnParam = nil

	client := newTestClient(server.URL)
	_, err := client.CreatePurchase(context.Background(), req)
	require.NoError(t, err)
}

func TestSend_Accepted202IsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"purchaseId":"pur_3","status":"PAID","checkout_url":"u","purchase":{"total":5,"currency":"EUR"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.FetchStatus(context.Background(), "pur_3")
	require.NoError(t, err)
	assert.Equal(t, "PAID", result.Status)
}

func TestSend_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Invalid brand", "code": "INVALID_BRAND"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "pur_4")
	require.Error(t, err)

	gwErr, ok := domain.AsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid brand", gwErr.GatewayMessage)
	assert.Equal(t, "INVALID_BRAND", gwErr.GatewayCode)

	// The failed call still produced a diagnostic record.
	logs := client.InteractionLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, 400, logs[0].ResponseStatus)
}

func TestSend_UndecodableErrorBodyIsHardFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>Bad Gateway</html>`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "pur_5")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayResponse, domain.GetErrorCode(err))
}

func TestSend_UndecodableSuccessBodyIsHardFault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "pur_6")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeGatewayResponse, domain.GetErrorCode(err))
}

func TestSend_Other2xxIsNotSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 204 carries no machine-readable error body; the contract
		// says only 200 and 202 are success.
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchStatus(context.Background(), "pur_7")
	require.Error(t, err)
}

func TestCreateSession_CustomerExists(t *testing.T) {
	var sawCreateCustomer bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/app/api/v1/customer" && r.Method == "GET":
			w.Write([]byte(`{"customerId": "cus_1"}`))
		case r.URL.Path == "/app/api/v1/customer" && r.Method == "POST":
			sawCreateCustomer = true
			w.Write([]byte(`{"customerId": "cus_1"}`))
		case r.URL.Path == "/api/v1/createSession":
			var req createSessionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "cus_1", req.CustomerID)
			require.Len(t, req.Products, 1)
			assert.Equal(t, "12.30", req.Products[0].Price)

			w.Write([]byte(`{"sessionId":"ses_1","sessionUrl":"https://gw.example.com/s/1","brandId":"brand-42","customerId":"cus_1"}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "ses_1", result.SessionID)
	assert.False(t, sawCreateCustomer, "existing customer must not be re-created")
	require.Len(t, client.InteractionLogs(), 2)
}

func TestCreateSession_CustomerCreatedOnMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/app/api/v1/customer" && r.Method == "GET":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "customer not found", "code": "NOT_FOUND"}`))
		case r.URL.Path == "/app/api/v1/customer" && r.Method == "POST":
			var req createCustomerRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "7001", req.MerchantCustomerID)
			assert.Equal(t, "Ada Lovelace", req.FullName)
			w.Write([]byte(`{"customerId": "cus_new"}`))
		case r.URL.Path == "/api/v1/createSession":
			w.Write([]byte(`{"sessionId":"ses_2","sessionUrl":"https://gw.example.com/s/2","brandId":"brand-42","customerId":"cus_new"}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "ses_2", result.SessionID)
	require.Len(t, client.InteractionLogs(), 3)
	assert.Equal(t, "get_customer", client.InteractionLogs()[0].Name)
	assert.Equal(t, "create_customer", client.InteractionLogs()[1].Name)
	assert.Equal(t, "create_session", client.InteractionLogs()[2].Name)
}
