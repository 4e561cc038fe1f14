package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PayHero implements the Gateway against the PayHero STK push API.
// A Basic-auth credential is built from the configured username/password on
// every call; the raw secret is never logged.
type PayHero struct {
	BaseURL   string
	Username  string
	Password  string
	ChannelID string
	client    *http.Client
}

func NewPayHero(baseURL, username, password, channelID string) *PayHero {
	if baseURL == "" {
		baseURL = "https://backend.payhero.co.ke/api/v2"
	}
	return &PayHero{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Username:  username,
		Password:  password,
		ChannelID: channelID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *PayHero) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(p.Username+":"+p.Password))
}

func (p *PayHero) checkCredentials() error {
	if p.Username == "" || p.Password == "" || p.ChannelID == "" {
		return &GatewayError{Kind: KindAuth, Message: "payhero credentials not configured"}
	}
	return nil
}

type payheroSTKReq struct {
	Amount            int64  `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	ChannelID         string `json:"channel_id"`
	Provider          string `json:"provider"`
	ExternalReference string `json:"external_reference"`
	CallbackURL       string `json:"callback_url"`
	Narration         string `json:"narration"`
}

type payheroSTKResp struct {
	Status            string `json:"status"`
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	Message           string `json:"message"`
	Error             string `json:"error"`
}

// Initiate triggers one STK push prompt on the subscriber's device.
func (p *PayHero) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if err := p.checkCredentials(); err != nil {
		return nil, err
	}
	payload := payheroSTKReq{
		Amount:            req.Amount,
		PhoneNumber:       req.PhoneNumber,
		ChannelID:         p.ChannelID,
		Provider:          "m-pesa",
		ExternalReference: req.ExternalReference,
		CallbackURL:       req.CallbackURL,
		Narration:         req.Narration,
	}
	body, _ := json.Marshal(payload)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/payments", strings.NewReader(string(body)))
	if err != nil {
		return nil, &GatewayError{Kind: KindNetwork, Message: "payhero initiate", Err: err}
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set("Authorization", p.basicAuth())
	log.Printf("[PAYHERO] POST /payments external_reference=%s amount=%d phone=%s", req.ExternalReference, req.Amount, req.PhoneNumber)
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, &GatewayError{Kind: KindNetwork, Message: "payhero initiate", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	log.Printf("[PAYHERO] initiate response status=%d external_reference=%s", resp.StatusCode, req.ExternalReference)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var out payheroSTKResp
		_ = json.Unmarshal(respBody, &out)
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("payhero initiate: %d", resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &GatewayError{Kind: KindAuth, Message: msg}
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return nil, &GatewayError{Kind: KindValidation, Message: msg}
		default:
			return nil, &GatewayError{Kind: KindProviderRejected, Message: msg}
		}
	}

	var out payheroSTKResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &GatewayError{Kind: KindUnexpectedResponse, Message: "payhero initiate: bad response body", Err: err}
	}
	if out.CheckoutRequestID == "" {
		return nil, &GatewayError{Kind: KindUnexpectedResponse, Message: "payhero initiate: missing checkout_request_id"}
	}
	return &InitiateResponse{
		ExternalReference: req.ExternalReference,
		CheckoutRequestID: out.CheckoutRequestID,
		MerchantRequestID: out.MerchantRequestID,
		Status:            normalizeState(out.Status),
	}, nil
}

type payheroStatusResp struct {
	Status             string  `json:"status"`
	MpesaReceiptNumber string  `json:"mpesa_receipt_number"`
	Amount             float64 `json:"amount"`
	Message            string  `json:"message"`
	Error              string  `json:"error"`
}

// QueryStatus fetches the current provider state for one external reference.
func (p *PayHero) QueryStatus(ctx context.Context, externalReference string) (*StatusResponse, error) {
	if err := p.checkCredentials(); err != nil {
		return nil, err
	}
	statusURL := p.BaseURL + "/transaction-status?reference=" + url.QueryEscape(externalReference)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, &GatewayError{Kind: KindNetwork, Message: "payhero status", Err: err}
	}
	apiReq.Header.Set("Authorization", p.basicAuth())
	resp, err := p.client.Do(apiReq)
	if err != nil {
		return nil, &GatewayError{Kind: KindNetwork, Message: "payhero status", Err: err}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var out payheroStatusResp
		_ = json.Unmarshal(respBody, &out)
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("payhero status: %d", resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &GatewayError{Kind: KindAuth, Message: msg}
		case http.StatusBadRequest, http.StatusNotFound:
			return nil, &GatewayError{Kind: KindValidation, Message: msg}
		default:
			return nil, &GatewayError{Kind: KindUnexpectedResponse, Message: msg}
		}
	}

	var out payheroStatusResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &GatewayError{Kind: KindUnexpectedResponse, Message: "payhero status: bad response body", Err: err}
	}
	state := normalizeState(out.Status)
	if state == "" {
		return nil, &GatewayError{Kind: KindUnexpectedResponse, Message: fmt.Sprintf("payhero status: unknown state %q", out.Status)}
	}
	return &StatusResponse{
		State:         state,
		ReceiptNumber: out.MpesaReceiptNumber,
		Amount:        int64(out.Amount),
	}, nil
}

// normalizeState maps the provider's status strings (which vary in case across
// API revisions) onto the canonical set. Unknown strings map to "".
func normalizeState(s string) ProviderState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS", "COMPLETED":
		return StateSuccess
	case "FAILED", "CANCELLED":
		return StateFailed
	case "QUEUED", "PENDING":
		return StateQueued
	}
	return ""
}
