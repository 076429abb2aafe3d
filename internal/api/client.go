package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ameentrust/donorgate/internal/model"
)

// Portal selects which login endpoint a credential is presented to. The
// backend keeps donor and administrative logins on distinct routes.
type Portal string

const (
	PortalDonor Portal = "donor"
	PortalAdmin Portal = "admin"
)

func (p Portal) loginPath() string {
	if p == PortalAdmin {
		return "/auth/admin/login"
	}
	return "/auth/user/login"
}

// TokenSource supplies the current access token at call time. An empty
// string means the call goes out unauthenticated. Reading the token per
// call (instead of arming a process-wide default header) keeps a stale
// session in one tab from leaking into another's requests.
type TokenSource func() string

// Config holds backend API client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the trust's backend REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient creates a backend API client. tokens may be nil for a client
// that only ever makes unauthenticated calls.
func NewClient(cfg Config, tokens TokenSource) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if tokens == nil {
		tokens = func() string { return "" }
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
	}
}

// AuthResult is the backend's response to login and registration.
type AuthResult struct {
	Tokens model.TokenPair
	User   model.User
}

type authResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         model.User `json:"user"`
}

// Login presents a credential to the portal-specific login endpoint.
func (c *Client) Login(ctx context.Context, portal Portal, email, password string) (AuthResult, error) {
	body := map[string]string{"email": email, "password": password}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, portal.loginPath(), body, "", &resp); err != nil {
		return AuthResult{}, fmt.Errorf("login: %w", err)
	}
	return AuthResult{
		Tokens: model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:   resp.User,
	}, nil
}

// RegisterRequest is the profile submitted at account creation.
type RegisterRequest struct {
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Password   string        `json:"password"`
	Phone      string        `json:"phone,omitempty"`
	Profession string        `json:"profession,omitempty"`
	Address    model.Address `json:"address"`
}

// Register creates an account and returns its first session credential.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, "", &resp); err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}
	return AuthResult{
		Tokens: model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:   resp.User,
	}, nil
}

// Me fetches the identity behind the current access token.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, "", &resp); err != nil {
		return model.User{}, fmt.Errorf("me: %w", err)
	}
	return resp.User, nil
}

// ProfileUpdate carries the fields a donor may change. Zero-valued
// fields are omitted so the backend treats the body as a partial update.
type ProfileUpdate struct {
	Name       string        `json:"name,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	Profession string        `json:"profession,omitempty"`
	Address    model.Address `json:"address,omitzero"`
}

// UpdateProfile applies a partial profile update and returns the
// resulting user.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", update, "", &resp); err != nil {
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return resp.User, nil
}

// DonorInfo is the donor block forwarded with an order request. For
// anonymous donations it holds the fixed anonymous identity and nothing
// else.
type DonorInfo struct {
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone,omitempty"`
	Address model.Address `json:"address,omitzero"`
}

// OrderRequest asks the backend to create a gateway-ready payment order.
type OrderRequest struct {
	Amount       string               `json:"amount"`
	Currency     string               `json:"currency"`
	DonationType model.Classification `json:"donationType"`
	Project      string               `json:"project,omitempty"`
	Faculty      string               `json:"faculty,omitempty"`
	Notes        string               `json:"notes,omitempty"`
	IsAnonymous  bool                 `json:"isAnonymous"`
	DonorInfo    *DonorInfo           `json:"donorInfo,omitempty"`
}

// CreateOrder creates a payment order. The idempotency key lets the
// backend collapse an accidental duplicate of the same attempt.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, idempotencyKey string) (model.PaymentOrder, error) {
	var order model.PaymentOrder
	if err := c.do(ctx, http.MethodPost, "/donations/razorpay/order", req, idempotencyKey, &order); err != nil {
		return model.PaymentOrder{}, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

// VerifyPayment submits the gateway's completion payload for signature
// verification. The backend is the sole judge of authenticity.
func (c *Client) VerifyPayment(ctx context.Context, outcome model.PaymentOutcome) (model.DonationRecord, error) {
	body := map[string]string{
		"orderId":   outcome.GatewayOrderID,
		"paymentId": outcome.GatewayPaymentID,
		"signature": outcome.GatewaySignature,
	}

	var resp struct {
		Donation model.DonationRecord `json:"donation"`
	}
	if err := c.do(ctx, http.MethodPost, "/donations/razorpay/verify", body, "", &resp); err != nil {
		return model.DonationRecord{}, fmt.Errorf("verify payment: %w", err)
	}
	return resp.Donation, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: decodeErrorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeErrorMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
