package jwt

import (
	"sync"
	"testing"
	"time"

	"github.com/localizekit/authgate/apperr"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	access, err := NewCodec(Config{Secret: []byte("access-secret"), Use: UseAccess})
	if err != nil {
		t.Fatalf("access codec: %v", err)
	}
	refresh, err := NewCodec(Config{Secret: []byte("refresh-secret"), Use: UseRefresh})
	if err != nil {
		t.Fatalf("refresh codec: %v", err)
	}
	iss, err := NewIssuer(access, refresh, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}

func TestIssueAccessClaimsSubsetOfRefresh(t *testing.T) {
	iss := newTestIssuer(t)
	pair, err := iss.Issue(Claims{Subject: "user-1", Email: String("u@example.com"), Plan: String("pro"), TeamID: String("team-9")})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	access, err := iss.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	refresh, err := iss.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if access.Payload().Subject != refresh.Subject ||
		access.EmailValue() != refresh.EmailValue() ||
		access.PlanValue() != refresh.PlanValue() ||
		access.TeamIDValue() != refresh.TeamIDValue() {
		t.Fatalf("access claims %+v not a subset of refresh claims %+v", access, refresh)
	}
	if !access.ExpiresAt.Before(refresh.ExpiresAt) {
		t.Fatal("access token must expire before refresh token")
	}
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	iss := newTestIssuer(t)
	pair, _ := iss.Issue(Claims{Subject: "user-1"})

	if _, err := iss.VerifyAccess(pair.RefreshToken); !apperr.HasKind(err, apperr.KindInvalidToken) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
	if _, _, err := iss.Refresh(pair.AccessToken); !apperr.HasKind(err, apperr.KindInvalidToken) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestRefreshReissuesFromClaims(t *testing.T) {
	iss := newTestIssuer(t)
	pair, _ := iss.Issue(Claims{Subject: "user-1"})

	next, claims, err := iss.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if claims.Subject != "user-1" || claims.TeamID != nil {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if next.AccessToken == next.RefreshToken {
		t.Fatal("expected distinct access and refresh tokens")
	}
	a, err := iss.VerifyAccess(next.AccessToken)
	if err != nil || a.Subject != "user-1" {
		t.Fatalf("new access token invalid: %v", err)
	}
	r, err := iss.VerifyRefresh(next.RefreshToken)
	if err != nil || r.Subject != "user-1" {
		t.Fatalf("new refresh token invalid: %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	iss := newTestIssuer(t)
	if _, _, err := iss.Refresh("garbage"); !apperr.HasKind(err, apperr.KindInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestRefreshRejectsEverySingleCharacterFlip(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	iss := newTestIssuer(t)
	pair, err := iss.Issue(Claims{Subject: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	token := pair.RefreshToken
	for i := range len(token) {
		for _, c := range []byte(alphabet) {
			if c == token[i] {
				continue
			}
			tampered := token[:i] + string(c) + token[i+1:]
			if _, _, err := iss.Refresh(tampered); !apperr.HasKind(err, apperr.KindInvalidToken) {
				t.Fatalf("position %d %q->%q: expected InvalidToken, got %v", i, token[i], c, err)
			}
		}
	}
}

func TestNewIssuerValidation(t *testing.T) {
	a, _ := NewCodec(Config{Secret: []byte("a"), Use: UseAccess})
	r, _ := NewCodec(Config{Secret: []byte("r"), Use: UseRefresh})
	same, _ := NewCodec(Config{Secret: []byte("s"), Use: UseAccess})

	if _, err := NewIssuer(nil, r, time.Minute, time.Hour); err == nil {
		t.Fatal("expected nil codec error")
	}
	if _, err := NewIssuer(a, r, 0, time.Hour); err == nil {
		t.Fatal("expected ttl error")
	}
	if _, err := NewIssuer(a, r, time.Hour, time.Minute); err == nil {
		t.Fatal("expected refresh shorter than access error")
	}
	if _, err := NewIssuer(a, same, time.Minute, time.Hour); err == nil {
		t.Fatal("expected shared use error")
	}
}

func TestIssueConcurrent(t *testing.T) {
	iss := newTestIssuer(t)
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := iss.Issue(Claims{Subject: "user-1"})
			if err != nil {
				errs <- err
				return
			}
			if _, err := iss.VerifyAccess(pair.AccessToken); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent issue/verify: %v", err)
	}
}
