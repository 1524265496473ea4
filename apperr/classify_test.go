package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		status  int
		message string
	}{
		{"invalid team", InvalidTeam("abc"), http.StatusBadRequest, "Invalid team ID: abc"},
		{"team forbidden", TeamAccessForbidden("u1", "t1"), http.StatusForbidden, "User is not a member of team t1"},
		{"project limit", ForbiddenProjectAccess("free", 3, 3), http.StatusForbidden,
			"Project limit exceeded. Your free plan allows 3 projects, and you currently have 3."},
		{"project limit singular", ForbiddenProjectAccess("free", 1, 1), http.StatusForbidden,
			"Project limit exceeded. Your free plan allows 1 project, and you currently have 1."},
		{"project access generic", ForbiddenProjectAccess("", 0, 0), http.StatusForbidden, "Forbidden: insufficient project access"},
		{"archived", ProjectArchived(), http.StatusForbidden, "Project is archived. Only read operations are allowed."},
		{"project conflict", ProjectConflict("name taken"), http.StatusConflict, "Project conflict: name taken"},
		{"project conflict bare", ProjectConflict(""), http.StatusConflict, "Project conflict"},
		{"user conflict", UserConflict("email exists", nil), http.StatusConflict, "User conflict: email exists"},
		{"project validation", ProjectValidation("bad locale"), http.StatusBadRequest, "Project validation failed: bad locale"},
		{"personal team", PersonalTeamNotFound("u1"), http.StatusInternalServerError, "Personal team not found for user: u1"},
		{"personal team bare", PersonalTeamNotFound(""), http.StatusInternalServerError, "Personal team not found for user"},
		{"project not found", ProjectNotFound(), http.StatusBadRequest, "Project not found"},
		{"user not found", UserNotFound(), http.StatusBadRequest, "User not found"},
		{"missing env", MissingEnv("JWT_SECRET"), http.StatusBadRequest, "Missing environment variable: JWT_SECRET"},
		{"invalid port", InvalidPort("abc"), http.StatusBadRequest, "Invalid port value: abc"},
		{"unknown kind", &Error{Kind: Kind(200), Reason: "raw reason"}, http.StatusBadRequest, "raw reason"},
		{"invalid token", InvalidToken(""), http.StatusUnauthorized, "Invalid token"},
		{"invalid token reason", InvalidToken("signature is invalid"), http.StatusUnauthorized, "Invalid token: signature is invalid"},
		{"unauthorized", Unauthorized("User not authenticated"), http.StatusUnauthorized, "Invalid token: User not authenticated"},
		{"missing header", MissingAuthHeader(), http.StatusUnauthorized, "Missing authorization header"},
		{"bad scheme", InvalidAuthScheme(), http.StatusUnauthorized, "Invalid authorization scheme"},
		{"plain error", errors.New("disk full"), http.StatusInternalServerError, "disk full"},
		{"non error", 42, http.StatusInternalServerError, "Internal server error"},
		{"nil", nil, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in)
			if got.Status != tc.status {
				t.Fatalf("status: got %d want %d", got.Status, tc.status)
			}
			if got.Message != tc.message {
				t.Fatalf("message: got %q want %q", got.Message, tc.message)
			}
		})
	}
}

func TestClassifyJWTExpiredUntagged(t *testing.T) {
	got := Classify(errors.New("JWT expired"))
	if got.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", got.Status)
	}
	if got.Message != "JWT token expired" {
		t.Fatalf("unexpected message %q", got.Message)
	}
	if got.Kind != 0 {
		t.Fatalf("expected untagged kind, got %v", got.Kind)
	}
}

func TestClassifyJWTExpiredBeatsInvalidTokenReason(t *testing.T) {
	got := Classify(InvalidToken("jwt expired"))
	if got.Status != http.StatusUnauthorized || got.Message != "JWT token expired" {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestClassifyProviderAuthIsNotUnauthorized(t *testing.T) {
	got := Classify(ProviderAuth("db down", nil))
	if got.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got.Status)
	}
	if !strings.Contains(got.Message, "Provider authentication failed") || !strings.Contains(got.Message, "db down") {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestClassifyProviderAuthBeforeJWTExpired(t *testing.T) {
	got := Classify(ProviderAuth("upstream jwt expired", nil))
	if got.Status != http.StatusInternalServerError {
		t.Fatalf("provider auth must win over jwt-expired, got %+v", got)
	}
}

func TestClassifyHTTPErrorPassthrough(t *testing.T) {
	he := NewHTTPError(http.StatusBadRequest, "Invalid request body")
	got := Classify(fmt.Errorf("bind: %w", he))
	if got.Status != http.StatusBadRequest || got.Message != "Invalid request body" {
		t.Fatalf("unexpected classification %+v", got)
	}

	// a message that would otherwise hit the jwt-expired rule
	got = Classify(NewHTTPError(http.StatusTeapot, "jwt expired"))
	if got.Status != http.StatusTeapot {
		t.Fatalf("transport error must pass through, got %+v", got)
	}
}

func TestClassifyUnwrapsDeferredEnvelope(t *testing.T) {
	got := Classify(Defer(TeamAccessForbidden("u1", "t1")))
	if got.Status != http.StatusForbidden {
		t.Fatalf("expected 403 from wrapped cause, got %+v", got)
	}

	got = Classify(Defer("boom"))
	if got.Status != http.StatusInternalServerError || got.Message != "Internal server error" {
		t.Fatalf("non-error deferred value must be internal error, got %+v", got)
	}

	got = Classify(Defer(errors.New("plain cause")))
	if got.Status != http.StatusInternalServerError || got.Message != "plain cause" {
		t.Fatalf("plain deferred cause must keep its message, got %+v", got)
	}
}

func TestClassifyWrappedTaggedError(t *testing.T) {
	err := fmt.Errorf("switch team: %w", InvalidTeam("not-a-uuid"))
	got := Classify(err)
	if got.Status != http.StatusBadRequest || got.Kind != KindInvalidTeam {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestKindHelpers(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", UserConflict("dup", errors.New("23505")))
	if !HasKind(err, KindUserConflict) {
		t.Fatal("expected user conflict kind")
	}
	if !errors.Is(err, &Error{Kind: KindUserConflict}) {
		t.Fatal("expected errors.Is kind match")
	}
	if errors.Is(err, &Error{Kind: KindUserNotFound}) {
		t.Fatal("unexpected kind match")
	}
	if KindProviderAuth.IsUnauthorized() {
		t.Fatal("provider auth is not in the unauthorized family")
	}
	if KindInvalidToken.String() != "InvalidTokenError" {
		t.Fatalf("unexpected name %q", KindInvalidToken.String())
	}
}

func TestBodyStampsTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := Classify(InvalidToken("")).Body("/api/v1/users/me", "req-1", now)
	if b.StatusCode != http.StatusUnauthorized || b.Timestamp != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected body %+v", b)
	}
	if b.Path != "/api/v1/users/me" || b.RequestID != "req-1" {
		t.Fatalf("unexpected body %+v", b)
	}
}

func TestClassifyKeepsContext(t *testing.T) {
	c := Classify(TeamAccessForbidden("u1", "t1"))
	if c.Context[KeyUserID] != "u1" || c.Context[KeyTeamID] != "t1" {
		t.Fatalf("context dropped: %+v", c.Context)
	}

	c = Classify(fmt.Errorf("provision: %w", PersonalTeamNotFound("u9")))
	if c.Context[KeyUserID] != "u9" {
		t.Fatalf("wrapped context dropped: %+v", c.Context)
	}

	c = Classify(Defer(InvalidToken("token use mismatch")))
	if c.Context["reason"] != "token use mismatch" {
		t.Fatalf("reason not carried: %+v", c.Context)
	}

	src := InvalidTeam("abc")
	c = Classify(src)
	c.Context[KeyTeamID] = "mutated"
	if src.Context[KeyTeamID] != "abc" {
		t.Fatal("classified context aliases the error's map")
	}

	if c := Classify(errors.New("plain")); c.Context != nil {
		t.Fatalf("untagged error must carry no context, got %+v", c.Context)
	}
}
