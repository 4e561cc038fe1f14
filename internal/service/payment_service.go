package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"mkopo/config"
	"mkopo/internal/domain"
	"mkopo/internal/models"
	"mkopo/pkg/payment"

	"github.com/google/uuid"
)

var (
	ErrNoActiveLoan     = errors.New("no loan fee selected")
	ErrInvalidPhone     = errors.New("invalid phone number, use format 0712345678 or 0112345678")
	ErrRateLimited      = errors.New("please wait a few seconds before retrying")
	ErrUnknownReference = errors.New("unknown transaction reference")
)

// Safaricom/Airtel national format: leading 07 or 01, ten digits total.
var phonePattern = regexp.MustCompile(`^0[17]\d{8}$`)

// PaymentStore is the persistence the engine needs. MarkTerminal must be a
// compare-and-swap: it reports updated=false once the attempt is terminal.
type PaymentStore interface {
	Create(a *models.PaymentAttempt) error
	GetByExternalReference(ref string) (*models.PaymentAttempt, error)
	AttachProviderIDs(ref, checkoutRequestID, merchantRequestID string) error
	MarkTerminal(ref, status, receipt, errMsg string) (bool, error)
}

// LoanStore links completed fee payments back to loan applications.
type LoanStore interface {
	MarkFeePaid(id uint) error
}

// Notifier receives every state transition for an external reference.
type Notifier interface {
	PaymentUpdate(ref string, payload interface{})
}

// StatusEvent is the payload pushed to Notifier subscribers.
type StatusEvent struct {
	Type              string `json:"type"`
	ExternalReference string `json:"externalReference"`
	Status            string `json:"status"`
	ReceiptNumber     string `json:"mpesaReceiptNumber,omitempty"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	Final             bool   `json:"final"`
}

// session tracks the live attempt for one phone number. Only the current
// reference may be written by a background poller; older pollers observe the
// mismatch and exit without touching state.
type session struct {
	currentRef  string
	lastAttempt time.Time
}

// PaymentService owns the payment confirmation engine: precondition checks,
// the per-phone cooldown, gateway initiation, background polling and the
// idempotent terminal-state writes shared with the webhook receiver.
type PaymentService struct {
	cfg      *config.Config
	gateway  payment.Gateway
	store    PaymentStore
	loans    LoanStore
	notifier Notifier

	mu       sync.Mutex
	sessions map[string]*session

	now func() time.Time
}

func NewPaymentService(cfg *config.Config, gw payment.Gateway, store PaymentStore, loans LoanStore, notifier Notifier) *PaymentService {
	return &PaymentService{
		cfg:      cfg,
		gateway:  gw,
		store:    store,
		loans:    loans,
		notifier: notifier,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// InitiateResult echoes the tracking handle to the UI.
type InitiateResult struct {
	ExternalReference string
	CheckoutRequestID string
	MerchantRequestID string
	Status            string
}

// InitiatePayment validates preconditions, applies the cooldown, triggers
// exactly one STK push and starts the status poller. Every accepted call
// allocates a fresh external reference; a retry never resumes a stale handle.
func (s *PaymentService) InitiatePayment(ctx context.Context, phoneNumber string, amount int64, description string, loanID *uint) (*InitiateResult, error) {
	phone := strings.ReplaceAll(phoneNumber, " ", "")
	if amount <= 0 {
		return nil, ErrNoActiveLoan
	}
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	s.mu.Lock()
	sess := s.sessions[phone]
	if sess == nil {
		sess = &session{}
		s.sessions[phone] = sess
	}
	now := s.now()
	if !sess.lastAttempt.IsZero() && now.Sub(sess.lastAttempt) < s.cfg.Payment.Cooldown {
		s.mu.Unlock()
		return nil, ErrRateLimited
	}
	sess.lastAttempt = now
	ref := newExternalReference(now)
	sess.currentRef = ref
	s.mu.Unlock()

	narration := description
	if narration == "" {
		narration = "M-Pesa Loan Processing Fee"
	}
	attempt := &models.PaymentAttempt{
		ExternalReference: ref,
		PhoneNumber:       phone,
		AmountKES:         amount,
		Narration:         narration,
		Status:            domain.PaymentStatusPending,
		LoanApplicationID: loanID,
	}
	if err := s.store.Create(attempt); err != nil {
		return nil, fmt.Errorf("create payment attempt: %w", err)
	}
	s.notify(ref, domain.PaymentStatusPending, "", "")

	callbackURL := ""
	if s.cfg.PayHero.CallbackBaseURL != "" {
		callbackURL = s.cfg.PayHero.CallbackBaseURL + "/api/v1/webhooks/payhero"
	}
	resp, err := s.gateway.Initiate(ctx, payment.InitiateRequest{
		Amount:            amount,
		PhoneNumber:       phone,
		ExternalReference: ref,
		CallbackURL:       callbackURL,
		Narration:         narration,
	})
	if err != nil {
		log.Printf("[PAYMENT] initiate failed external_reference=%s: %v", ref, err)
		s.applyTerminal(ref, domain.PaymentStatusFailed, "", err.Error())
		return nil, err
	}
	if err := s.store.AttachProviderIDs(ref, resp.CheckoutRequestID, resp.MerchantRequestID); err != nil {
		log.Printf("[PAYMENT] attach provider ids external_reference=%s: %v", ref, err)
	}
	log.Printf("[PAYMENT] STK sent external_reference=%s checkout_request_id=%s merchant_request_id=%s",
		ref, resp.CheckoutRequestID, resp.MerchantRequestID)

	go s.poll(context.Background(), phone, ref)

	status := string(resp.Status)
	if status == "" {
		status = string(payment.StateQueued)
	}
	return &InitiateResult{
		ExternalReference: ref,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		Status:            status,
	}, nil
}

// poll queries the provider on a fixed cadence with a bounded attempt budget.
// Transient query failures count against the budget and retry; exhausting the
// budget leaves the attempt PENDING, since a failure the provider never
// reported cannot be asserted.
func (s *PaymentService) poll(ctx context.Context, phone, ref string) {
	interval := s.cfg.Payment.PollInterval
	budget := s.cfg.Payment.MaxPollAttempts
	for attempt := 1; attempt <= budget; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		if !s.isCurrent(phone, ref) {
			log.Printf("[POLL] superseded external_reference=%s, stopping", ref)
			return
		}
		if a, err := s.store.GetByExternalReference(ref); err == nil && domain.IsTerminal(a.Status) {
			// Webhook landed the terminal state first; nothing left to do.
			return
		}
		st, err := s.gateway.QueryStatus(ctx, ref)
		if err != nil {
			log.Printf("[POLL] query error external_reference=%s attempt=%d/%d: %v", ref, attempt, budget, err)
			continue
		}
		switch st.State {
		case payment.StateSuccess:
			s.applyTerminal(ref, domain.PaymentStatusCompleted, st.ReceiptNumber, "")
			return
		case payment.StateFailed:
			s.applyTerminal(ref, domain.PaymentStatusFailed, "", "payment was declined or cancelled")
			return
		}
	}
	log.Printf("[POLL] budget exhausted external_reference=%s, leaving PENDING", ref)
	s.notify(ref, domain.PaymentStatusPending, "", "")
}

func (s *PaymentService) isCurrent(phone, ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[phone]
	return sess != nil && sess.currentRef == ref
}

// ApplyProviderResult reconciles a provider-pushed terminal notification into
// the same state model the poller writes. QUEUED carries no new information
// and is ignored.
func (s *PaymentService) ApplyProviderResult(ref string, state payment.ProviderState, receipt string) {
	switch state {
	case payment.StateSuccess:
		s.applyTerminal(ref, domain.PaymentStatusCompleted, receipt, "")
	case payment.StateFailed:
		s.applyTerminal(ref, domain.PaymentStatusFailed, "", "payment was declined or cancelled")
	}
}

// applyTerminal performs the idempotent terminal write shared by the poller,
// the webhook receiver and the status endpoint. The store's CAS rejects
// writes onto an already-terminal attempt, so racing writers need no lock.
func (s *PaymentService) applyTerminal(ref, status, receipt, errMsg string) {
	updated, err := s.store.MarkTerminal(ref, status, receipt, errMsg)
	if err != nil {
		log.Printf("[PAYMENT] terminal write external_reference=%s: %v", ref, err)
		return
	}
	if !updated {
		return
	}
	log.Printf("[PAYMENT] external_reference=%s -> %s", ref, status)
	if status == domain.PaymentStatusCompleted && s.loans != nil {
		if a, err := s.store.GetByExternalReference(ref); err == nil && a.LoanApplicationID != nil {
			if err := s.loans.MarkFeePaid(*a.LoanApplicationID); err != nil {
				log.Printf("[PAYMENT] mark fee paid loan_id=%d: %v", *a.LoanApplicationID, err)
			}
		}
	}
	s.notify(ref, status, receipt, errMsg)
}

// StatusResult is the check-status response, in provider vocabulary.
type StatusResult struct {
	Success       bool
	Status        string // SUCCESS, QUEUED or FAILED
	ReceiptNumber string
	Amount        int64
	IsFinal       bool
}

// CheckStatus answers a client-side poll. A reference the engine never issued
// fails with ErrUnknownReference rather than reporting another attempt's
// status. Local terminal state answers without a provider round trip.
func (s *PaymentService) CheckStatus(ctx context.Context, ref string) (*StatusResult, error) {
	a, err := s.store.GetByExternalReference(ref)
	if err != nil {
		return nil, ErrUnknownReference
	}
	if domain.IsTerminal(a.Status) {
		return resultFromAttempt(a), nil
	}
	st, err := s.gateway.QueryStatus(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch st.State {
	case payment.StateSuccess:
		s.applyTerminal(ref, domain.PaymentStatusCompleted, st.ReceiptNumber, "")
	case payment.StateFailed:
		s.applyTerminal(ref, domain.PaymentStatusFailed, "", "payment was declined or cancelled")
	}
	amount := st.Amount
	if amount == 0 {
		amount = a.AmountKES
	}
	return &StatusResult{
		Success:       st.State == payment.StateSuccess,
		Status:        string(st.State),
		ReceiptNumber: st.ReceiptNumber,
		Amount:        amount,
		IsFinal:       st.State != payment.StateQueued,
	}, nil
}

// GetAttempt returns the stored attempt for a reference.
func (s *PaymentService) GetAttempt(ref string) (*models.PaymentAttempt, error) {
	a, err := s.store.GetByExternalReference(ref)
	if err != nil {
		return nil, ErrUnknownReference
	}
	return a, nil
}

func resultFromAttempt(a *models.PaymentAttempt) *StatusResult {
	state := payment.StateQueued
	switch a.Status {
	case domain.PaymentStatusCompleted:
		state = payment.StateSuccess
	case domain.PaymentStatusFailed:
		state = payment.StateFailed
	}
	return &StatusResult{
		Success:       state == payment.StateSuccess,
		Status:        string(state),
		ReceiptNumber: a.ReceiptNumber,
		Amount:        a.AmountKES,
		IsFinal:       state != payment.StateQueued,
	}
}

func (s *PaymentService) notify(ref, status, receipt, errMsg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.PaymentUpdate(ref, StatusEvent{
		Type:              "payment_status",
		ExternalReference: ref,
		Status:            status,
		ReceiptNumber:     receipt,
		ErrorMessage:      errMsg,
		Final:             domain.IsTerminal(status),
	})
}

// newExternalReference allocates a fresh correlation key. The random suffix
// keeps a resend distinct from a prior attempt issued in the same millisecond.
func newExternalReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("REF-%d-%s", now.UnixMilli(), suffix)
}
