package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/apperr"
)

func TestWriteErrorStatuses(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.TeamAccessForbidden("u1", "t1"), http.StatusForbidden, "User is not a member of team t1"},
		{apperr.InvalidTeam("x"), http.StatusBadRequest, "Invalid team ID: x"},
		{apperr.UserConflict("user already exists", nil), http.StatusConflict, "User conflict: user already exists"},
		{apperr.NewHTTPError(http.StatusBadRequest, "refreshToken is required"), http.StatusBadRequest, "refreshToken is required"},
		{errors.New("database unreachable"), http.StatusInternalServerError, "database unreachable"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), tt.err, WithLogger(quietLogger()))
		if rec.Code != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if body := decodeBody(t, rec); body.Message != tt.message || body.StatusCode != tt.status {
			t.Fatalf("%v: unexpected body %+v", tt.err, body)
		}
	}
}

func TestWriteErrorLogsRequestException(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil), apperr.UserNotFound(), WithLogger(logger))

	out := buf.String()
	for _, want := range []string{`"msg":"request_exception"`, `"status":400`, `"path":"/api/v1/users/me"`, `"kind":"UserNotFoundError"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log %s", want, out)
		}
	}
}

func TestWriteErrorLogsContextButNotInBody(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/switch-team", nil),
		apperr.TeamAccessForbidden("u1", "t1"), WithLogger(logger))

	if out := buf.String(); !strings.Contains(out, `"context":{"teamId":"t1","userId":"u1"}`) {
		t.Fatalf("expected context group in log %s", out)
	}
	if strings.Contains(rec.Body.String(), "userId") {
		t.Fatalf("context leaked into body %s", rec.Body.String())
	}
}

func TestRecoverClassifiesPanics(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	tests := []struct {
		value   any
		status  int
		message string
	}{
		{apperr.TeamAccessForbidden("u1", "t9"), http.StatusForbidden, "User is not a member of team t9"},
		{errors.New("boom"), http.StatusInternalServerError, "boom"},
		{"just a string", http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		h := Recover(WithLogger(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(tt.value)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p", nil))
		if rec.Code != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.value, tt.status, rec.Code)
		}
		body := decodeBody(t, rec)
		if body.Message != tt.message {
			t.Fatalf("%v: unexpected message %q", tt.value, body.Message)
		}
		if strings.Contains(rec.Body.String(), "goroutine") {
			t.Fatal("stack trace leaked into response")
		}
	}
	if !strings.Contains(logs.String(), "handler panic") {
		t.Fatal("expected panic to be logged")
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authgate.RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logging(WithLogger(logger))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea", nil))

	if !strings.Contains(buf.String(), `"msg":"request_complete"`) || !strings.Contains(buf.String(), `"status":418`) {
		t.Fatalf("unexpected log %s", buf.String())
	}
}
