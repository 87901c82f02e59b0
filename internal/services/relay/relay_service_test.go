package relay_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/relaypay/gateway-bridge/internal/auth"
	"github.com/relaypay/gateway-bridge/internal/domain"
	"github.com/relaypay/gateway-bridge/internal/services/relay"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockMappingStore mocks the credential mapping store
type MockMappingStore struct {
	mock.Mock
}

func (m *MockMappingStore) Save(ctx context.Context, mapping domain.CredentialMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingStore) Lookup(ctx context.Context, gatewayToken string) (*domain.CredentialMapping, error) {
	args := m.Called(ctx, gatewayToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CredentialMapping), args.Error(1)
}

type relayFixture struct {
	privateKey   *rsa.PrivateKey
	publicKeyB64 string
	store        *MockMappingStore
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	derBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: derBytes})

	return &relayFixture{
		privateKey:   privateKey,
		publicKeyB64: base64.StdEncoding.EncodeToString(pemBytes),
		store:        new(MockMappingStore),
	}
}

func (f *relayFixture) service(t *testing.T, businessURL string) *relay.Service {
	t.Helper()

	minter, err := relay.NewTokenMinter(testSignKey)
	require.NoError(t, err)

	return relay.NewService(
		relay.Config{BusinessURL: businessURL},
		f.store,
		auth.NewWebhookVerifier(),
		minter,
		&http.Client{},
		zap.NewNop(),
	)
}

func (f *relayFixture) envelope() domain.WebhookEnvelope {
	return domain.WebhookEnvelope{
		Message: domain.WebhookMessage{
			PurchaseID: "pur_1",
			AmountUnit: domain.AmountUnitMajor,
			Payment:    domain.WebhookPayment{Currency: "BRL", Amount: decimal.RequireFromString("12.3")},
			BrandID:    "brand-1",
			Status:     "PAID",
		},
		Status: "PAID",
	}
}

func (f *relayFixture) mapping() *domain.CredentialMapping {
	return &domain.CredentialMapping{
		GatewayToken:    "pur_1",
		BusinessSecret:  "rp-secret",
		RoutingToken:    "routing-1",
		VerificationKey: &f.publicKeyB64,
	}
}

func (f *relayFixture) signedHeader(t *testing.T, message domain.WebhookMessage) http.Header {
	t.Helper()

	digest := sha256.Sum256([]byte(message.SigningString()))
	signature, err := rsa.SignPKCS1v15(rand.Reader, f.privateKey, crypto.SHA256, digest[:])
	require.NoError(t, err)

	header := http.Header{}
	header.Set("X-Signature", base64.StdEncoding.EncodeToString(signature))
	return header
}

func TestHandleWebhook_Delivered(t *testing.T) {
	fixture := newRelayFixture(t)

	var gotAuth string
	var gotBody relay.CallbackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/callbacks/v2/gateway_callbacks/routing-1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fixture.store.On("Lookup", mock.Anything, "pur_1").Return(fixture.mapping(), nil)

	service := fixture.service(t, server.URL)
	envelope := fixture.envelope()
	err := service.HandleWebhook(context.Background(), envelope, fixture.signedHeader(t, envelope.Message))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, gotBody.Status)
	assert.Equal(t, int64(1230), gotBody.Amount)
	assert.Equal(t, "BRL", gotBody.Currency)
	assert.Nil(t, gotBody.Reason)

	// The bearer token mirrors the body payload.
	require.Regexp(t, `^Bearer [A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`, gotAuth)
}

func TestHandleWebhook_DeclinedCarriesReason(t *testing.T) {
	fixture := newRelayFixture(t)

	var gotBody relay.CallbackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer server.Close()

	fixture.store.On("Lookup", mock.Anything, "pur_1").Return(fixture.mapping(), nil)

	envelope := fixture.envelope()
	envelope.Message.Status = "ERROR"
	errMsg := "processor timeout"
	envelope.Message.ErrorMsg = &errMsg

	service := fixture.service(t, server.URL)
	err := service.HandleWebhook(context.Background(), envelope, fixture.signedHeader(t, envelope.Message))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDeclined, gotBody.Status)
	require.NotNil(t, gotBody.Reason)
	assert.Equal(t, "processor timeout", *gotBody.Reason)
}

func TestHandleWebhook_MissingSignatureNeverTouchesStore(t *testing.T) {
	fixture := newRelayFixture(t)

	service := fixture.service(t, "http://unused.invalid")
	err := service.HandleWebhook(context.Background(), fixture.envelope(), http.Header{})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeSignatureMissing, domain.GetErrorCode(err))
	fixture.store.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
}

func TestHandleWebhook_ForgedSignatureRejected(t *testing.T) {
	fixture := newRelayFixture(t)
	fixture.store.On("Lookup", mock.Anything, "pur_1").Return(fixture.mapping(), nil)

	delivered := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered = true
	}))
	defer server.Close()

	// Sign for a different purchase id.
	envelope := fixture.envelope()
	forged := envelope.Message
	forged.PurchaseID = "pur_other"
	header := fixture.signedHeader(t, forged)

	service := fixture.service(t, server.URL)
	err := service.HandleWebhook(context.Background(), envelope, header)

	require.Error(t, err)
	assert.Equal(t, domain.ErrorCodeSignatureInvalid, domain.GetErrorCode(err))
	assert.False(t, delivered)
}

func TestHandleWebhook_MappingNotFound(t *testing.T) {
	fixture := newRelayFixture(t)
	fixture.store.On("Lookup", mock.Anything, mock.Anything).Return(nil, domain.ErrMappingNotFound)

	service := fixture.service(t, "http://unused.invalid")
	envelope := fixture.envelope()
	err := service.HandleWebhook(context.Background(), envelope, fixture.signedHeader(t, envelope.Message))

	require.Error(t, err)
	assert.True(t, domain.IsNotFoundError(err))
}

func TestHandleWebhook_SessionTokenFallback(t *testing.T) {
	fixture := newRelayFixture(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	// The purchase id misses; the mapping was keyed by session id
	// because the hosted flow created it.
	sessionID := "ses_1"
	mapping := fixture.mapping()
	mapping.GatewayToken = sessionID

	fixture.store.On("Lookup", mock.Anything, "pur_1").Return(nil, domain.ErrMappingNotFound)
	fixture.store.On("Lookup", mock.Anything, "ses_1").Return(mapping, nil)

	envelope := fixture.envelope()
	envelope.Message.SessionID = &sessionID

	service := fixture.service(t, server.URL)
	err := service.HandleWebhook(context.Background(), envelope, fixture.signedHeader(t, envelope.Message))
	require.NoError(t, err)

	fixture.store.AssertCalled(t, "Lookup", mock.Anything, "ses_1")
}

func TestHandleWebhook_DeliveryFailure(t *testing.T) {
	fixture := newRelayFixture(t)
	fixture.store.On("Lookup", mock.Anything, "pur_1").Return(fixture.mapping(), nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	service := fixture.service(t, server.URL)
	envelope := fixture.envelope()
	err := service.HandleWebhook(context.Background(), envelope, fixture.signedHeader(t, envelope.Message))

	require.Error(t, err)
	assert.True(t, domain.IsDeliveryError(err))
}

func TestHandleWebhook_ConcurrentDeliveriesBothRelay(t *testing.T) {
	// Overlapping webhooks for the same token are not deduplicated:
	// both pass verification and both deliver. The gateway's
	// redelivery semantics make this an accepted property, not a bug
	// to be fixed silently.
	fixture := newRelayFixture(t)
	fixture.store.On("Lookup", mock.Anything, "pur_1").Return(fixture.mapping(), nil)

	var mu sync.Mutex
	deliveries := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		deliveries++
		mu.Unlock()
	}))
	defer server.Close()

	service := fixture.service(t, server.URL)
	envelope := fixture.envelope()
	header := fixture.signedHeader(t, envelope.Message)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = service.HandleWebhook(context.Background(), envelope, header)
		}(i)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 2, deliveries)
}
