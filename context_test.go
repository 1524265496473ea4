package authgate

import (
	"context"
	"testing"

	"github.com/localizekit/authgate/apperr"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFromContext(ctx); ok {
		t.Fatal("empty context must not carry an identity")
	}
	if _, err := RequireIdentity(ctx); !apperr.HasKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if c := apperr.Classify(mustErr(RequireIdentity(ctx))); c.Status != 401 || c.Message != "Invalid token: User not authenticated" {
		t.Fatalf("unexpected classification %+v", c)
	}

	ctx = WithIdentity(ctx, Identity{Subject: "user-1"})
	id, err := RequireIdentity(ctx)
	if err != nil || id.Subject != "user-1" {
		t.Fatalf("unexpected identity %+v %v", id, err)
	}
}

func TestRequestIDContext(t *testing.T) {
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatal("empty context must yield empty request id")
	}
	ctx := WithRequestID(context.Background(), "req-1")
	if RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("request id not propagated")
	}
}

func mustErr(_ Identity, err error) error { return err }
