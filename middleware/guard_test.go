package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/apperr"
	"github.com/localizekit/authgate/jwt"
)

type fakeVerifier struct {
	tokens map[string]authgate.Identity
	calls  int
}

func (f *fakeVerifier) VerifyAccess(_ context.Context, token string) (authgate.Identity, error) {
	f.calls++
	if token == "" {
		return authgate.Identity{}, apperr.InvalidToken("token is malformed")
	}
	if token == "expired" {
		return authgate.Identity{}, apperr.InvalidToken(jwt.ReasonExpired)
	}
	id, ok := f.tokens[token]
	if !ok {
		return authgate.Identity{}, apperr.InvalidToken("signature is invalid")
	}
	return id, nil
}

func newVerifier() *fakeVerifier {
	return &fakeVerifier{tokens: map[string]authgate.Identity{
		"good": {Subject: "user-1", TeamID: jwt.String("team-1")},
	}}
}

var fixedNow = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) apperr.Body {
	t.Helper()
	var body apperr.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestAuthorizeDecisions(t *testing.T) {
	v := newVerifier()
	tests := []struct {
		name     string
		level    AccessLevel
		header   string
		wantKind apperr.Kind
		wantID   bool
	}{
		{name: "public without header", level: Public},
		{name: "public ignores garbage header", level: Public, header: "Basic zzz"},
		{name: "private missing header", level: Private, wantKind: apperr.KindMissingAuthHeader},
		{name: "private wrong scheme", level: Private, header: "Basic abc", wantKind: apperr.KindInvalidAuthScheme},
		{name: "private lowercase scheme", level: Private, header: "bearer good", wantKind: apperr.KindInvalidAuthScheme},
		{name: "private empty token", level: Private, header: "Bearer ", wantKind: apperr.KindInvalidToken},
		{name: "private bad token", level: Private, header: "Bearer nope", wantKind: apperr.KindInvalidToken},
		{name: "private good token", level: Private, header: "Bearer good", wantID: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := Authorize(context.Background(), v, tt.level, tt.header)
			if tt.wantKind != 0 {
				if !apperr.HasKind(err, tt.wantKind) {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantID {
				t.Fatalf("identity presence = %v, want %v", ok, tt.wantID)
			}
			if tt.wantID && id.Subject != "user-1" {
				t.Fatalf("unexpected identity %+v", id)
			}
		})
	}
}

func TestPublicRouteNeverVerifies(t *testing.T) {
	v := newVerifier()
	h := Gate(v, Public)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authgate.IdentityFromContext(r.Context()); ok {
			t.Error("public route must not carry an identity")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || v.calls != 0 {
		t.Fatalf("expected pass-through without verification, code=%d calls=%d", rec.Code, v.calls)
	}
}

func TestPrivateRouteRejections(t *testing.T) {
	metrics := authgate.NewMetrics(authgate.MetricsConfig{Enabled: true})
	h := Gate(newVerifier(), Private, WithLogger(quietLogger()), WithClock(fixedNow), WithMetrics(metrics))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not run on rejection")
		}))

	tests := []struct {
		header  string
		message string
	}{
		{"", "Missing authorization header"},
		{"Token abc", "Invalid authorization scheme"},
		{"Bearer nope", "Invalid token: signature is invalid"},
		{"Bearer expired", "JWT token expired"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		req.Header.Set(RequestIDHeader, "req-7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", tt.header, rec.Code)
		}
		body := decodeBody(t, rec)
		if body.StatusCode != 401 || body.Message != tt.message {
			t.Fatalf("header %q: unexpected body %+v", tt.header, body)
		}
		if body.Path != "/api/v1/users/me" || body.RequestID != "req-7" || body.Timestamp != "2026-05-06T07:08:09Z" {
			t.Fatalf("header %q: unexpected envelope fields %+v", tt.header, body)
		}
	}
	if metrics.Value(authgate.MetricGateRejected) != 4 {
		t.Fatalf("expected 4 rejections, got %d", metrics.Value(authgate.MetricGateRejected))
	}
}

func TestPrivateRouteAttachesIdentity(t *testing.T) {
	var seen authgate.Identity
	h := Gate(newVerifier(), Private)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := authgate.RequireIdentity(r.Context())
		if err != nil {
			t.Errorf("require identity: %v", err)
		}
		seen = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || seen.Subject != "user-1" || seen.TeamIDValue() != "team-1" {
		t.Fatalf("unexpected result code=%d identity=%+v", rec.Code, seen)
	}
}

func TestGateWithoutVerifierRejects(t *testing.T) {
	_, _, err := Authorize(context.Background(), nil, Private, "Bearer good")
	if !apperr.HasKind(err, apperr.KindInvalidToken) {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}
