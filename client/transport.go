package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/localizekit/authgate/jwt"
)

var (
	ErrStoreRequired      = errors.New("client: token store is required")
	ErrRefreshURLRequired = errors.New("client: refresh URL is required")
)

// RefreshError reports a refresh call that did not yield a new pair.
type RefreshError struct {
	Status int
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("refresh failed: status %d", e.Status)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Options configures a Transport.
type Options struct {
	// Base performs the actual round trips. Defaults to http.DefaultTransport.
	Base       http.RoundTripper
	Store      TokenStore
	RefreshURL string
	Logger     *slog.Logger
}

// Transport is an http.RoundTripper that carries the session.
type Transport struct {
	base       http.RoundTripper
	store      TokenStore
	refreshURL *url.URL
	logger     *slog.Logger
	group      singleflight.Group
}

var _ http.RoundTripper = (*Transport)(nil)

func NewTransport(opts Options) (*Transport, error) {
	if opts.Store == nil {
		return nil, ErrStoreRequired
	}
	if opts.RefreshURL == "" {
		return nil, ErrRefreshURLRequired
	}
	u, err := url.Parse(opts.RefreshURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse refresh URL: %w", err)
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{base: base, store: opts.Store, refreshURL: u, logger: logger}, nil
}

// NewHTTPClient returns an *http.Client whose transport carries the session.
func NewHTTPClient(opts Options) (*http.Client, error) {
	t, err := NewTransport(opts)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t}, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	pair := t.load(ctx)

	out := req
	if bearerToken(req.Header.Get("Authorization")) == "" && pair.AccessToken != "" {
		out = req.Clone(ctx)
		out.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	return t.handleUnauthorized(req, resp, pair.AccessToken)
}

// handleUnauthorized refreshes with the stored refresh token and retries
// once. loaded is the access token read from the store before the request
// was sent; if the store holds a different one now, another caller already
// refreshed and the retry reuses it.
func (t *Transport) handleUnauthorized(req *http.Request, resp *http.Response, loaded string) (*http.Response, error) {
	ctx := req.Context()
	if t.isRefreshCall(req) {
		t.clear(ctx, "refresh call rejected")
		return resp, nil
	}

	current := t.load(ctx)
	if current.RefreshToken == "" {
		t.clear(ctx, "no refresh token")
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		t.logger.WarnContext(ctx, "session retry skipped: request body cannot be replayed",
			slog.String("path", req.URL.Path))
		return resp, nil
	}

	next := current
	if current.AccessToken == "" || current.AccessToken == loaded {
		var err error
		next, err = t.refresh(ctx, current.RefreshToken)
		if err != nil {
			return resp, nil
		}
	}

	retry, err := retryRequest(req, next.AccessToken)
	if err != nil {
		return resp, nil
	}
	drain(resp)
	return t.base.RoundTrip(retry)
}

// refresh exchanges refreshToken for a new pair. Callers holding the same
// refresh token share one call; a flight that starts after another has
// already replaced the pair returns the stored pair without a round trip.
func (t *Transport) refresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := t.group.Do(refreshToken, func() (any, error) {
		if stored := t.load(ctx); stored.RefreshToken != "" && stored.RefreshToken != refreshToken {
			return stored, nil
		}
		pair, err := t.callRefresh(ctx, refreshToken)
		if err != nil {
			t.logger.WarnContext(ctx, "session refresh failed", slog.String("error", err.Error()))
			t.clear(ctx, "refresh failed")
			return nil, err
		}
		if err := t.store.Set(ctx, pair); err != nil {
			return nil, err
		}
		return pair, nil
	})
	if err != nil {
		return jwt.TokenPair{}, err
	}
	return v.(jwt.TokenPair), nil
}

type refreshEnvelope struct {
	Data *jwt.TokenPair `json:"data"`
	jwt.TokenPair
}

func (t *Transport) callRefresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return jwt.TokenPair{}, &RefreshError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL.String(), bytes.NewReader(payload))
	if err != nil {
		return jwt.TokenPair{}, &RefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return jwt.TokenPair{}, &RefreshError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return jwt.TokenPair{}, &RefreshError{Status: resp.StatusCode}
	}

	var env refreshEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return jwt.TokenPair{}, &RefreshError{Status: resp.StatusCode, Err: err}
	}
	pair := env.TokenPair
	if env.Data != nil {
		pair = *env.Data
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return jwt.TokenPair{}, &RefreshError{Status: resp.StatusCode, Err: errors.New("response carried no token pair")}
	}
	return pair, nil
}

func (t *Transport) isRefreshCall(req *http.Request) bool {
	return req.URL.Host == t.refreshURL.Host && req.URL.Path == t.refreshURL.Path
}

func (t *Transport) load(ctx context.Context) jwt.TokenPair {
	pair, err := t.store.Get(ctx)
	if err != nil {
		t.logger.WarnContext(ctx, "token store read failed", slog.String("error", err.Error()))
		return jwt.TokenPair{}
	}
	return pair
}

func (t *Transport) clear(ctx context.Context, reason string) {
	if err := t.store.Clear(ctx); err != nil {
		t.logger.WarnContext(ctx, "token store clear failed", slog.String("error", err.Error()))
		return
	}
	t.logger.InfoContext(ctx, "session cleared", slog.String("reason", reason))
}

func retryRequest(req *http.Request, accessToken string) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+accessToken)
	return retry, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
