package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/apperr"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret-access-secret-0001")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-refresh-secret-01")
	t.Setenv("AUTHGATE_STORE", "memory")
	t.Setenv("AUTHGATE_AUDIT", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SECRET_KEY", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("AUTHGATE_ENV", "development")
}

func run(ctx context.Context, args ...string) (string, string, error) {
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestTokenMintAndVerify(t *testing.T) {
	setBaseEnv(t)
	ctx := context.Background()

	out, _, err := run(ctx, "token", "mint", "--sub", "user-1", "--team", "team-1", "--plan", "pro")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	var pair authgate.TokenPair
	if err := json.Unmarshal([]byte(out), &pair); err != nil {
		t.Fatalf("decode pair %q: %v", out, err)
	}

	out, _, err = run(ctx, "token", "verify", pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	var claims claimsView
	if err := json.Unmarshal([]byte(out), &claims); err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	if claims.Subject != "user-1" || claims.TeamID == nil || *claims.TeamID != "team-1" || claims.Plan == nil || *claims.Plan != "pro" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt); got != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %v", got)
	}

	if _, _, err := run(ctx, "token", "verify", "--refresh", pair.RefreshToken); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	_, _, err = run(ctx, "token", "verify", pair.RefreshToken)
	if !apperr.HasKind(err, apperr.KindInvalidToken) {
		t.Fatalf("refresh token must not verify as access, got %v", err)
	}
}

func TestTokenMintRequiresSubject(t *testing.T) {
	setBaseEnv(t)
	if _, _, err := run(context.Background(), "token", "mint"); err == nil || !strings.Contains(err.Error(), "--sub") {
		t.Fatalf("expected --sub error, got %v", err)
	}
}

func TestTokenRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")
	_, _, err := run(context.Background(), "token", "mint", "--sub", "u")
	if !apperr.HasKind(err, apperr.KindMissingEnv) {
		t.Fatalf("expected MissingEnv, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	setBaseEnv(t)
	ctx := context.Background()

	out, _, err := run(ctx, "migrate")
	if err != nil || !strings.Contains(out, "nothing to migrate") {
		t.Fatalf("memory migrate: out=%q err=%v", out, err)
	}

	t.Setenv("AUTHGATE_STORE", "sqlite")
	t.Setenv("AUTHGATE_SQLITE_PATH", filepath.Join(t.TempDir(), "authgate.db"))
	for i := 0; i < 2; i++ {
		out, _, err = run(ctx, "migrate")
		if err != nil || !strings.Contains(out, "sqlite store migrated") {
			t.Fatalf("sqlite migrate #%d: out=%q err=%v", i, out, err)
		}
	}

	t.Setenv("AUTHGATE_STORE", "postgres")
	t.Setenv("DB_URL_STRING", "mysql://nope")
	if _, _, err := run(ctx, "migrate"); err == nil {
		t.Fatal("expected invalid postgres url to fail")
	}
}

func TestServeRequiresProvider(t *testing.T) {
	setBaseEnv(t)
	_, _, err := run(context.Background(), "serve")
	if !apperr.HasKind(err, apperr.KindMissingEnv) {
		t.Fatalf("expected MissingEnv, got %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUPABASE_URL", "http://127.0.0.1:1")
	t.Setenv("SUPABASE_SECRET_KEY", "service-key")

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		stderr string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		_, stderr, err := run(ctx, "serve", "--addr", "127.0.0.1:0")
		done <- result{stderr: stderr, err: err}
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("serve: %v", res.err)
		}
		if !strings.Contains(res.stderr, "authgate starting") {
			t.Fatalf("expected startup log, got %q", res.stderr)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestNewLogger(t *testing.T) {
	cfg := authgate.DefaultConfig()
	var buf bytes.Buffer

	cfg.Environment = authgate.EnvProduction
	logger, err := newLogger(cfg, &buf)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	logger.Info("hello")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"service":"authgate"`) {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	cfg.Environment = "development"
	logger, _ = newLogger(cfg, &buf)
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text output, got %q", buf.String())
	}

	cfg.Log.Format = "xml"
	if _, err := newLogger(cfg, &buf); err == nil {
		t.Fatal("expected invalid format error")
	}
	cfg.Log = authgate.LogConfig{Level: "loud"}
	if _, err := newLogger(cfg, &buf); err == nil {
		t.Fatal("expected invalid level error")
	}
}

func TestAuditSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, closeSink, err := auditSink(path, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("audit sink: %v", err)
	}
	sink.Emit(context.Background(), authgate.AuditEvent{EventType: authgate.AuditEventRefresh, UserID: "u1", Success: true})
	closeSink()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	var got authgate.AuditEvent
	if err := json.Unmarshal(bytes.TrimSpace(data), &got); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	if got.EventType != authgate.AuditEventRefresh || got.UserID != "u1" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestAuditSinkDefaultsToLogger(t *testing.T) {
	sink, closeSink, err := auditSink("", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("audit sink: %v", err)
	}
	defer closeSink()
	if _, ok := sink.(*authgate.SlogSink); !ok {
		t.Fatalf("expected slog sink, got %T", sink)
	}
}
