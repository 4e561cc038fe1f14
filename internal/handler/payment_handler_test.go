package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mkopo/config"
	"mkopo/internal/domain"
	"mkopo/internal/models"
	"mkopo/internal/service"
	"mkopo/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct {
	mu          sync.Mutex
	initErr     error
	statusResp  *payment.StatusResponse
	statusErr   error
	statusCalls int
}

func (g *stubGateway) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.InitiateResponse{
		ExternalReference: req.ExternalReference,
		CheckoutRequestID: "ws_CO_TEST",
		MerchantRequestID: "mr_TEST",
		Status:            payment.StateQueued,
	}, nil
}

func (g *stubGateway) QueryStatus(ctx context.Context, ref string) (*payment.StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if g.statusResp != nil {
		return g.statusResp, nil
	}
	return &payment.StatusResponse{State: payment.StateQueued}, nil
}

type stubStore struct {
	mu       sync.Mutex
	attempts map[string]*models.PaymentAttempt
}

func newStubStore() *stubStore {
	return &stubStore{attempts: make(map[string]*models.PaymentAttempt)}
}

func (s *stubStore) Create(a *models.PaymentAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.attempts[a.ExternalReference] = &cp
	return nil
}

func (s *stubStore) GetByExternalReference(ref string) (*models.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[ref]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubStore) AttachProviderIDs(ref, checkoutRequestID, merchantRequestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[ref]; ok {
		a.CheckoutRequestID = checkoutRequestID
		a.MerchantRequestID = merchantRequestID
	}
	return nil
}

func (s *stubStore) MarkTerminal(ref, status, receipt, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[ref]
	if !ok || a.Status != domain.PaymentStatusPending {
		return false, nil
	}
	a.Status = status
	a.ReceiptNumber = receipt
	a.ErrorMessage = errMsg
	return true, nil
}

func (s *stubStore) status(ref string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[ref]; ok {
		return a.Status
	}
	return ""
}

func handlerTestConfig() *config.Config {
	return &config.Config{
		PayHero: config.PayHeroConfig{CallbackBaseURL: "https://loans.example.com"},
		Payment: config.PaymentConfig{
			Cooldown:        5 * time.Second,
			PollInterval:    time.Millisecond,
			MaxPollAttempts: 0,
		},
	}
}

func newPaymentRouter(gw payment.Gateway, store *stubStore) (*gin.Engine, *service.PaymentService) {
	svc := service.NewPaymentService(handlerTestConfig(), gw, store, nil, nil)
	h := NewPaymentHandler(svc)
	r := gin.New()
	r.POST("/api/v1/payments/initiate", h.Initiate)
	r.POST("/api/v1/payments/status", h.CheckStatus)
	r.GET("/api/v1/payments/:reference", h.Get)
	return r, svc
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestInitiateEndpoint(t *testing.T) {
	r, _ := newPaymentRouter(&stubGateway{}, newStubStore())

	w := postJSON(t, r, "/api/v1/payments/initiate", gin.H{
		"phoneNumber": "0712345678",
		"amount":      50,
		"description": "M-Pesa Loan Processing Fee - KSh 50",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ws_CO_TEST", body["checkoutRequestId"])
	assert.Equal(t, "mr_TEST", body["merchantRequestId"])
	assert.Equal(t, "QUEUED", body["status"])
	assert.Contains(t, body["externalReference"], "REF-")
}

func TestInitiateEndpointInvalidPhone(t *testing.T) {
	r, _ := newPaymentRouter(&stubGateway{}, newStubStore())
	w := postJSON(t, r, "/api/v1/payments/initiate", gin.H{
		"phoneNumber": "0212345678",
		"amount":      50,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateEndpointMissingFields(t *testing.T) {
	r, _ := newPaymentRouter(&stubGateway{}, newStubStore())
	w := postJSON(t, r, "/api/v1/payments/initiate", gin.H{"phoneNumber": "0712345678"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateEndpointRateLimited(t *testing.T) {
	r, _ := newPaymentRouter(&stubGateway{}, newStubStore())
	body := gin.H{"phoneNumber": "0712345678", "amount": 50}

	first := postJSON(t, r, "/api/v1/payments/initiate", body)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, r, "/api/v1/payments/initiate", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "FAILED", decodeBody(t, second)["status"])
}

func TestInitiateEndpointMissingProviderCredentials(t *testing.T) {
	// A gateway without credentials fails fast before any network call.
	r, _ := newPaymentRouter(payment.NewPayHero("", "", "", ""), newStubStore())
	w := postJSON(t, r, "/api/v1/payments/initiate", gin.H{
		"phoneNumber": "0712345678",
		"amount":      50,
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "credentials")
}

func TestCheckStatusEndpoint(t *testing.T) {
	gw := &stubGateway{statusResp: &payment.StatusResponse{
		State: payment.StateSuccess, ReceiptNumber: "ABC123", Amount: 50,
	}}
	store := newStubStore()
	require.NoError(t, store.Create(&models.PaymentAttempt{
		ExternalReference: "REF-1-AAAA", PhoneNumber: "0712345678",
		AmountKES: 50, Status: domain.PaymentStatusPending,
	}))
	r, _ := newPaymentRouter(gw, store)

	w := postJSON(t, r, "/api/v1/payments/status", gin.H{"externalReference": "REF-1-AAAA"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "SUCCESS", body["status"])
	assert.Equal(t, "ABC123", body["mpesaReceiptNumber"])
	assert.Equal(t, true, body["isFinal"])
	assert.Equal(t, domain.PaymentStatusCompleted, store.status("REF-1-AAAA"))
}

func TestCheckStatusEndpointLegacyReferenceKey(t *testing.T) {
	store := newStubStore()
	require.NoError(t, store.Create(&models.PaymentAttempt{
		ExternalReference: "REF-2-BBBB", PhoneNumber: "0712345678",
		AmountKES: 50, Status: domain.PaymentStatusCompleted, ReceiptNumber: "XYZ9",
	}))
	gw := &stubGateway{}
	r, _ := newPaymentRouter(gw, store)

	w := postJSON(t, r, "/api/v1/payments/status", gin.H{"reference": "REF-2-BBBB"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "SUCCESS", body["status"])
	assert.Equal(t, "XYZ9", body["mpesaReceiptNumber"])
	assert.Equal(t, 0, gw.statusCalls, "terminal state is answered locally")
}

func TestCheckStatusEndpointUnknownReference(t *testing.T) {
	r, _ := newPaymentRouter(&stubGateway{}, newStubStore())
	w := postJSON(t, r, "/api/v1/payments/status", gin.H{"externalReference": "REF-404-NOPE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckStatusEndpointMissingReference(t *testing.T) {
	r, _ := newPaymentRouter(&stubGateway{}, newStubStore())
	w := postJSON(t, r, "/api/v1/payments/status", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPaymentEndpoint(t *testing.T) {
	store := newStubStore()
	require.NoError(t, store.Create(&models.PaymentAttempt{
		ExternalReference: "REF-3-CCCC", PhoneNumber: "0712345678",
		AmountKES: 50, Status: domain.PaymentStatusPending,
	}))
	r, _ := newPaymentRouter(&stubGateway{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/REF-3-CCCC", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "REF-3-CCCC")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/payments/REF-404-NOPE", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
