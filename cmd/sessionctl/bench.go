package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/store"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"
)

var benchRoutes = guard.Routes{
	"/home":        {},
	"/cart":        {RequiresAuth: true},
	"/orders":      {RequiresAuth: true},
	"/merchant/*":  {RequiresRole: guard.Roles{"merchant"}},
	"/admin/*":     {RequiresRole: guard.Roles{"admin"}},
	"/magic-bag/*": {},
}

var benchPaths = []string{"/home", "/cart", "/orders", "/merchant/bags", "/admin/users", "/magic-bag/7", "/unknown"}

func cmdBench(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	concurrency := fs.Int("concurrency", 64, "number of concurrent workers")
	ops := fs.Int("ops", 200000, "guard checks per phase")
	roleName := fs.String("role", string(role.Merchant), "role of the seeded session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *concurrency <= 0 || *ops <= 0 {
		return errors.New("concurrency and ops must be > 0")
	}

	backend := store.NewMemoryBackend()
	r := role.Normalize(*roleName)
	token, err := benchToken(r)
	if err != nil {
		return err
	}
	for key, value := range map[string]string{store.KeyToken: token, store.KeyUsername: "bench", store.KeyRole: r.String()} {
		if err := backend.Save(ctx, key, value); err != nil {
			return err
		}
	}

	cfg := e.cfg
	cfg.Session.FetchProfile = false
	cfg.Metrics.Enabled = true
	c, err := goSession.New().
		WithConfig(cfg).
		WithLogger(e.logger).
		WithBackend(backend).
		Build()
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Initialize(ctx); err != nil {
		return err
	}

	g := c.NewGuard()
	fmt.Fprintf(e.stdout, "session role=%s logged_in=%t\n", c.Snapshot().Role, c.IsLoggedIn())

	check := func(worker int, rnd *rand.Rand) error {
		path := benchPaths[rnd.Intn(len(benchPaths))]
		g.Check(ctx, benchRoutes.Lookup(path))
		return nil
	}
	guardStats, err := runPhase(ctx, *ops, *concurrency, check)
	if err != nil {
		return err
	}

	observe := func(worker int, rnd *rand.Rand) error {
		c.Snapshot()
		c.CheckTokenValidity(ctx)
		return nil
	}
	readStats, err := runPhase(ctx, *ops, *concurrency, observe)
	if err != nil {
		return err
	}

	snap := c.MetricsSnapshot()
	fmt.Fprintln(e.stdout, "---- results ----")
	printStats(e.stdout, "guard", guardStats)
	printStats(e.stdout, "snapshot", readStats)
	fmt.Fprintf(e.stdout, "guard allowed=%d denied=%d\n",
		snap.Counters[goSession.MetricGuardAllowed],
		snap.Counters[goSession.MetricGuardDenied],
	)
	return nil
}

func benchToken(r role.Role) (string, error) {
	claims := jwtlib.MapClaims{
		"sub":  "bench",
		"role": r.String(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("sessionctl-bench"))
}

// runPhase spreads ops calls of fn over concurrency workers and records the
// latency of each call.
func runPhase(ctx context.Context, ops, concurrency int, fn func(worker int, rnd *rand.Rand) error) (phaseStats, error) {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	eg, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		worker := w
		eg.Go(func() error {
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				t0 := time.Now()
				err := fn(worker, rnd)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return phaseStats{}, err
	}
	return computeStats(time.Since(start), latencies, failures), nil
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
