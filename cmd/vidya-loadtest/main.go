// Command vidya-loadtest exercises the gateway's refresh coordination under
// load. It starts an in-process stub API whose access tokens expire every
// few requests, drives concurrent authenticated calls through one client,
// and reports latency percentiles plus the engine's own metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	vidya "github.com/anveshlabs/vidya"
	"github.com/anveshlabs/vidya/token"
	"github.com/redis/go-redis/v9"
)

// stubAPI is a minimal backend: /users/me validates the bearer token,
// /auth/refresh rotates it. Every expireEvery authenticated requests the
// current token is invalidated, forcing a refresh storm across workers.
type stubAPI struct {
	mu          sync.Mutex
	generation  int
	validAccess string
	served      int
	expireEvery int
}

func (s *stubAPI) currentUser() vidya.UserRecord {
	return vidya.UserRecord{UserID: "u1", Phone: "+919876543210", Name: "Load Tester"}
}

func (s *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/refresh":
		s.mu.Lock()
		s.generation++
		s.validAccess = fmt.Sprintf("access-%d", s.generation)
		pair := map[string]string{
			"access_token":  s.validAccess,
			"refresh_token": fmt.Sprintf("refresh-%d", s.generation),
		}
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pair)

	case "/users/me":
		s.mu.Lock()
		valid := "Bearer " + s.validAccess
		s.served++
		expire := s.expireEvery > 0 && s.served%s.expireEvery == 0
		if expire {
			s.validAccess = "expired"
		}
		s.mu.Unlock()

		if r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.currentUser())

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase")
		expireEvery = flag.Int("expire-every", 50, "invalidate the access token every N requests")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "vidya-load", "key prefix for the redis-backed store")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api := &stubAPI{generation: 1, validAccess: "access-1", expireEvery: *expireEvery}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen failed: %v\n", err)
		os.Exit(1)
	}
	server := &http.Server{Handler: api}
	go func() { _ = server.Serve(listener) }()
	defer func() { _ = server.Close() }()
	baseURL := "http://" + listener.Addr().String()
	fmt.Printf("stub API at %s\n", baseURL)

	kv := token.NewRedisKV(rdb, *prefix)
	client, err := vidya.New().
		WithBaseURL(baseURL).
		WithKV(kv).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client build failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := token.NewStore(kv).SetPair(ctx, "access-1", "refresh-1"); err != nil {
		fmt.Fprintf(os.Stderr, "seed session failed: %v\n", err)
		os.Exit(1)
	}

	meStats := runPhase(*ops, *concurrency, func() bool {
		return client.CurrentUser(ctx) != nil
	})
	refreshStats := runPhase(*ops/10, *concurrency, func() bool {
		_, err := client.RefreshTokens(ctx)
		return err == nil
	})

	fmt.Println("---- results ----")
	printStats("me", meStats)
	printStats("refresh", refreshStats)
	printMetrics(client)
}

func runPhase(ops, concurrency int, op func() bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op()
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func printMetrics(client *vidya.Client) {
	snapshot := client.MetricsSnapshot()
	fmt.Println("---- engine metrics ----")
	for _, line := range []struct {
		name string
		id   vidya.MetricID
	}{
		{"request_success", vidya.MetricRequestSuccess},
		{"request_failure", vidya.MetricRequestFailure},
		{"request_unauthorized", vidya.MetricRequestUnauthorized},
		{"refresh_success", vidya.MetricRefreshSuccess},
		{"refresh_failure", vidya.MetricRefreshFailure},
		{"waiter_enqueued", vidya.MetricWaiterEnqueued},
		{"waiter_replayed", vidya.MetricWaiterReplayed},
		{"waiter_rejected", vidya.MetricWaiterRejected},
	} {
		fmt.Printf("%-22s %d\n", line.name, snapshot.Counters[line.id])
	}
}
