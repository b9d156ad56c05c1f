// Command authgate-loadtest drives Engine.Evaluate concurrently over seeded
// sessions and reports latency percentiles and outcome counts per phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/permission"
	"github.com/MrEthical07/authgate/records"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type seeded struct {
	userID string
	issued *authgate.IssuedSession
}

// phase builds the request for operation i against session s.
type phase struct {
	name  string
	route authgate.Route
	build func(i int, s *seeded) authgate.Request
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv(authgate.EnvRedisAddr)
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := records.NewMemory()
	_ = store.PutRole(ctx, permission.Role{Name: "User", Permissions: []string{"View Orders", "Create Orders"}})
	_ = store.PutUser(ctx, "lt-key-owner", "User")
	_ = store.PutAPIKey(ctx, permission.APIKey{Key: "lt-key", UserID: "lt-key-owner", Type: "user", Permissions: []string{"trade"}})

	cfg := authgate.DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte("loadtest-secret-0123456789abcdef0123")
	cfg.Session.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	// The generator runs from one address; the limiter would reject almost everything.
	cfg.RateLimit.Enabled = false

	engine, err := authgate.New().WithConfig(cfg).WithRedis(client).WithRecordStore(store).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]seeded, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range states {
		userID := fmt.Sprintf("u-%d", i)
		issued, err := engine.IssueSession(ctx, authgate.Identity{ID: userID, Role: "User"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue session failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = seeded{userID: userID, issued: issued}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	phases := []phase{
		{
			name:  "access_token",
			route: authgate.Route{Permission: "View Orders"},
			build: func(_ int, s *seeded) authgate.Request {
				return authgate.Request{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, AccessToken: s.issued.Tokens.AccessToken, SessionID: s.issued.SessionID}
			},
		},
		{
			name:  "refresh",
			route: authgate.Route{Permission: "View Orders"},
			build: func(_ int, s *seeded) authgate.Request {
				return authgate.Request{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, SessionID: s.issued.SessionID}
			},
		},
		{
			name:  "api_key",
			route: authgate.Route{Permission: "Create Orders"},
			build: func(_ int, _ *seeded) authgate.Request {
				return authgate.Request{Method: http.MethodPost, Path: "/api/exchange/order", HasCookies: true, APIKey: "lt-key"}
			},
		},
		{
			name:  "csrf_post",
			route: authgate.Route{},
			build: func(i int, s *seeded) authgate.Request {
				csrf := s.issued.CSRFToken
				if i%10 == 0 {
					csrf = "forged"
				}
				return authgate.Request{Method: http.MethodPost, Path: "/logout", HasCookies: true, AccessToken: s.issued.Tokens.AccessToken, SessionID: s.issued.SessionID, CSRFToken: csrf}
			},
		},
	}

	results := make([]phaseStats, len(phases))
	for i, p := range phases {
		results[i] = runPhase(ctx, engine, p, states, *ops, *concurrency)
	}

	fmt.Println("---- results ----")
	for i, p := range phases {
		printStats(p.name, results[i])
	}
	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: allowed=%d refresh=%d refresh_fallback=%d csrf_rejected=%d\n",
		snap.Counters[authgate.MetricRequestAllowed],
		snap.Counters[authgate.MetricRefreshSuccess],
		snap.Counters[authgate.MetricRefreshFallback],
		snap.Counters[authgate.MetricCSRFRejected],
	)
}

func runPhase(ctx context.Context, engine *authgate.Engine, p phase, states []seeded, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		latencies = make([]time.Duration, 0, ops)
		outcomes  = map[string]int{}
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				req := p.build(i, &states[r.Intn(len(states))])
				req.ClientIP = "198.51.100.1"

				t0 := time.Now()
				_, err := engine.Evaluate(ctx, req, p.route)
				d := time.Since(t0)

				outcome := "ok"
				if err != nil {
					outcome = fmt.Sprintf("%d %s", authgate.HTTPStatus(err), authgate.Reason(err))
				}
				mu.Lock()
				latencies = append(latencies, d)
				outcomes[outcome]++
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, outcomes)
}
