package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to the local session service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			// Biometric calls wait for a human, so this is generous.
			Timeout: 2 * time.Minute,
		},
	}
}

func (c *Client) session(ctx context.Context, path string, body any) (*SessionResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}
	var s SessionResponse
	if err := decodeJSON(resp, &s, http.StatusOK); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	return c.session(ctx, "/v1/session/register", req)
}

func (c *Client) Login(ctx context.Context, username, password string) (*SessionResponse, error) {
	return c.session(ctx, "/v1/session/login", LoginRequest{Username: username, Password: password})
}

func (c *Client) LoginWithBiometric(ctx context.Context, req BiometricRequest) (*SessionResponse, error) {
	return c.session(ctx, "/v1/session/biometric", req)
}

// Refresh exchanges refreshToken for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	return c.session(ctx, "/v1/session/refresh", RefreshRequest{RefreshToken: refreshToken})
}

// Logout ends the session that accessToken belongs to.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/session/logout", nil, accessToken)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (c *Client) Session(ctx context.Context, accessToken string) (*SessionStatusResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/session", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var s SessionStatusResponse
	if err := decodeJSON(resp, &s, http.StatusOK); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfoResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/userinfo", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var u UserInfoResponse
	if err := decodeJSON(resp, &u, http.StatusOK); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) BiometricStatus(ctx context.Context) (*BiometricStatusResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/biometric", nil, "")
	if err != nil {
		return nil, err
	}
	var b BiometricStatusResponse
	if err := decodeJSON(resp, &b, http.StatusOK); err != nil {
		return nil, err
	}
	return &b, nil
}

// EnableBiometric runs a presence check and turns biometric login on.
func (c *Client) EnableBiometric(ctx context.Context, accessToken string, req BiometricRequest) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/biometric/enable", req, accessToken)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (c *Client) DisableBiometric(ctx context.Context, accessToken string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/biometric/disable", nil, accessToken)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	var h HealthResponse
	if err := decodeJSON(resp, &h, http.StatusOK); err != nil {
		return nil, err
	}
	return &h, nil
}
