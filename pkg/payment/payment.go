package payment

import (
	"context"
	"errors"
	"fmt"
)

// ProviderState is the normalized payment state reported by the provider.
type ProviderState string

const (
	StateQueued  ProviderState = "QUEUED"
	StateSuccess ProviderState = "SUCCESS"
	StateFailed  ProviderState = "FAILED"
)

// InitiateRequest describes one STK push charge. Immutable once submitted;
// a retry must carry a fresh ExternalReference.
type InitiateRequest struct {
	Amount            int64  // whole KES
	PhoneNumber       string // national format, e.g. 0712345678
	ExternalReference string // client-generated, unique per attempt
	CallbackURL       string
	Narration         string
}

// InitiateResponse is the tracking handle returned by the provider.
type InitiateResponse struct {
	ExternalReference string
	CheckoutRequestID string
	MerchantRequestID string
	Status            ProviderState
}

// StatusResponse is the normalized result of a status query.
type StatusResponse struct {
	State         ProviderState
	ReceiptNumber string
	Amount        int64
}

// Gateway performs exactly one provider round trip per call. Retry policy
// belongs to the caller.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	QueryStatus(ctx context.Context, externalReference string) (*StatusResponse, error)
}

// ErrorKind classifies gateway failures so callers can decide retry policy.
type ErrorKind int

const (
	KindAuth               ErrorKind = iota + 1 // credentials absent or rejected; not retried
	KindValidation                              // provider rejected phone/amount/reference; fix and resubmit
	KindNetwork                                 // transport failure; transient
	KindUnexpectedResponse                      // response could not be parsed; transient
	KindProviderRejected                        // provider explicitly declined; not retried
)

// GatewayError wraps a provider failure with its kind. The client never
// swallows errors; everything surfaces as one of these.
type GatewayError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// KindOf returns the error's kind, or 0 if err is not a GatewayError.
func KindOf(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// IsTransient reports whether the failure is worth retrying on the poll cadence.
func IsTransient(err error) bool {
	k := KindOf(err)
	return k == KindNetwork || k == KindUnexpectedResponse
}
