// Package supabase resolves Supabase access tokens to account identities
// through the GoTrue user endpoint.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/localizekit/authgate/account"
)

const userPath = "/auth/v1/user"

var (
	ErrURLRequired = errors.New("supabase: project URL is required")
	ErrKeyRequired = errors.New("supabase: secret key is required")
	ErrNoUser      = errors.New("supabase: token did not resolve to a user")
)

// StatusError is a non-200 answer from the user endpoint.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase: status %d", e.Status)
}

type Config struct {
	URL       string
	SecretKey string
	// Timeout bounds one user lookup. Zero leaves it to the caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements account.IdentityProvider.
type Client struct {
	url     string
	key     string
	timeout time.Duration
	http    *http.Client
}

var _ account.IdentityProvider = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, ErrURLRequired
	}
	if cfg.SecretKey == "" {
		return nil, ErrKeyRequired
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{url: url, key: cfg.SecretKey, timeout: cfg.Timeout, http: hc}, nil
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type errorResponse struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// GetUser returns the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (account.ProviderIdentity, error) {
	ctx, span := otel.Tracer("github.com/localizekit/authgate/provider/supabase").Start(ctx, "supabase.get_user")
	defer span.End()

	identity, status, err := c.getUser(ctx, accessToken)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return identity, err
}

func (c *Client) getUser(ctx context.Context, accessToken string) (account.ProviderIdentity, int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+userPath, nil)
	if err != nil {
		return account.ProviderIdentity{}, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("apikey", c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return account.ProviderIdentity{}, 0, fmt.Errorf("supabase: get user: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return account.ProviderIdentity{}, resp.StatusCode, fmt.Errorf("supabase: read user: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return account.ProviderIdentity{}, resp.StatusCode, &StatusError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	var u userResponse
	if err := json.Unmarshal(body, &u); err != nil {
		return account.ProviderIdentity{}, resp.StatusCode, fmt.Errorf("supabase: decode user: %w", err)
	}
	if u.ID == "" {
		return account.ProviderIdentity{}, resp.StatusCode, ErrNoUser
	}
	return account.ProviderIdentity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}, resp.StatusCode, nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.Error
	}
}
