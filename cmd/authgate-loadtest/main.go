// Command authgate-loadtest drives an in-process authgate server over
// HTTP: it seeds users through provider login, then measures guarded
// reads, refresh rotation and a client refresh storm.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/localizekit/authgate"
	"github.com/localizekit/authgate/account"
	"github.com/localizekit/authgate/client"
	"github.com/localizekit/authgate/internal/server"
	"github.com/localizekit/authgate/jwt"
	"github.com/localizekit/authgate/store/memory"
)

// loadProvider accepts any non-empty token and derives a stable identity
// from it.
type loadProvider struct{}

func (loadProvider) GetUser(_ context.Context, token string) (account.ProviderIdentity, error) {
	if token == "" {
		return account.ProviderIdentity{}, fmt.Errorf("empty token")
	}
	return account.ProviderIdentity{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(token)).String(),
		Email:    token + "@load.test",
		Metadata: map[string]any{"full_name": token},
	}, nil
}

type userState struct {
	mu   sync.Mutex
	pair jwt.TokenPair
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of users to seed through provider login")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (me + refresh)")
		sessions    = flag.Int("sessions", 32, "client sessions in the refresh storm")
		callers     = flag.Int("callers", 16, "concurrent callers per storm session")
		redisAddr   = flag.String("redis-addr", "", "redis address for storm token stores; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "authgate:loadtest", "storm token store key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *sessions <= 0 || *callers <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, ops, sessions and callers must be > 0")
		os.Exit(2)
	}

	if err := run(context.Background(), config{
		users:       *users,
		concurrency: *concurrency,
		ops:         *ops,
		sessions:    *sessions,
		callers:     *callers,
		redisAddr:   *redisAddr,
		prefix:      *prefix,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	users       int
	concurrency int
	ops         int
	sessions    int
	callers     int
	redisAddr   string
	prefix      string
}

func run(ctx context.Context, cfg config) error {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	engineCfg := authgate.DefaultConfig()
	engineCfg.JWT.Secret = []byte(uuid.NewString() + uuid.NewString())
	engineCfg.JWT.RefreshSecret = []byte(uuid.NewString() + uuid.NewString())
	engineCfg.Audit.Enabled = false

	engine, err := authgate.New().
		WithConfig(engineCfg).
		WithStore(memory.New()).
		WithIdentityProvider(loadProvider{}).
		WithLogger(quiet).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv, err := server.New(server.Options{Engine: engine, Logger: quiet})
	if err != nil {
		return err
	}
	var refreshCalls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			refreshCalls.Add(1)
		}
		srv.ServeHTTP(w, r)
	}))
	defer ts.Close()
	fmt.Printf("in-process server at %s\n", ts.URL)

	httpClient := &http.Client{Transport: &http.Transport{
		MaxIdleConns:        cfg.concurrency * 2,
		MaxIdleConnsPerHost: cfg.concurrency * 2,
	}}

	states := make([]userState, cfg.users)
	fmt.Printf("seeding %d users...\n", cfg.users)
	startSeed := time.Now()
	for i := range states {
		var pair jwt.TokenPair
		if err := postJSON(ctx, httpClient, ts.URL+"/api/v1/auth/login", map[string]string{
			"accessToken": fmt.Sprintf("load-user-%d", i),
		}, &pair); err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
		states[i].pair = pair
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	meStats := runMePhase(ctx, httpClient, ts.URL, states, cfg.ops, cfg.concurrency)
	refreshCalls.Store(0)
	refreshStats := runRefreshPhase(ctx, httpClient, ts.URL, states, cfg.ops, cfg.concurrency)

	storeClient, cleanup, err := openRedis(cfg.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()
	refreshCalls.Store(0)
	storm, err := runStorm(ctx, ts.URL, storeClient, cfg, states, quiet)
	if err != nil {
		return err
	}

	fmt.Println("---- results ----")
	printStats("me", meStats)
	printStats("refresh", refreshStats)
	printStats("storm", storm.stats)
	fmt.Printf("storm: sessions=%d refresh_calls=%d (want %d)\n", cfg.sessions, refreshCalls.Load(), cfg.sessions)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: verify_ok=%d verify_fail=%d refresh_ok=%d gate_rejected=%d\n",
		snap.Counters[authgate.MetricVerifySuccess],
		snap.Counters[authgate.MetricVerifyFailure],
		snap.Counters[authgate.MetricRefreshSuccess],
		snap.Counters[authgate.MetricGateRejected],
	)
	if refreshCalls.Load() != int64(cfg.sessions) {
		return fmt.Errorf("refresh storm issued %d refresh calls for %d sessions", refreshCalls.Load(), cfg.sessions)
	}
	return nil
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return rc, func() {
			_ = rc.Close()
			mr.Close()
		}, nil
	}
	rc := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return rc, func() { _ = rc.Close() }, nil
}

func runMePhase(ctx context.Context, hc *http.Client, base string, states []userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		token := state.pair.AccessToken
		state.mu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/users/me", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := hc.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("me: status %d", resp.StatusCode)
		}
		return nil
	})
}

// runRefreshPhase rotates each user's pair under its lock so every refresh
// presents the newest refresh token.
func runRefreshPhase(ctx context.Context, hc *http.Client, base string, states []userState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		var next jwt.TokenPair
		if err := postJSON(ctx, hc, base+"/api/v1/auth/refresh", map[string]string{
			"refreshToken": state.pair.RefreshToken,
		}, &next); err != nil {
			return err
		}
		state.pair = next
		return nil
	})
}

type stormResult struct {
	stats phaseStats
}

// runStorm gives each session a stale access token and a valid refresh
// token, then fires callers concurrent requests per session. The client
// transport must collapse each session's 401s into one refresh.
func runStorm(ctx context.Context, base string, rc redis.UniversalClient, cfg config, states []userState, logger *slog.Logger) (stormResult, error) {
	type stormSession struct {
		http *http.Client
	}
	sessions := make([]stormSession, cfg.sessions)
	for i := range sessions {
		store := client.NewRedisStore(rc, fmt.Sprintf("%s:%d", cfg.prefix, i), time.Hour)
		sess, err := client.NewSession(client.Options{
			Store:      store,
			RefreshURL: base + "/api/v1/auth/refresh",
			Logger:     logger,
		})
		if err != nil {
			return stormResult{}, err
		}
		state := &states[i%len(states)]
		if err := sess.SignIn(ctx, jwt.TokenPair{
			AccessToken:  "stale-access-token",
			RefreshToken: state.pair.RefreshToken,
		}); err != nil {
			return stormResult{}, fmt.Errorf("sign in storm session %d: %w", i, err)
		}
		sessions[i] = stormSession{http: sess.Client()}
	}

	var (
		wg        sync.WaitGroup
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, cfg.sessions*cfg.callers)
		start     = make(chan struct{})
	)
	for _, s := range sessions {
		for c := 0; c < cfg.callers; c++ {
			wg.Add(1)
			go func(hc *http.Client) {
				defer wg.Done()
				<-start
				t0 := time.Now()
				err := getOK(ctx, hc, base+"/api/v1/users/me")
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}(s.http)
		}
	}
	begin := time.Now()
	close(start)
	wg.Wait()
	return stormResult{stats: computeStats(time.Since(begin), latencies, failures.Load())}, nil
}

func getOK(ctx context.Context, hc *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func postJSON(ctx context.Context, hc *http.Client, url string, body any, out *jwt.TokenPair) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	var env struct {
		Data jwt.TokenPair `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	*out = env.Data
	return nil
}
