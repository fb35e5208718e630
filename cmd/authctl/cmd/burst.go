package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	authclient "github.com/eyoklama/authclient"
	"github.com/eyoklama/authclient/cmd/authctl/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type burstStats struct {
	total     time.Duration
	ok        int
	failures  int64
	p50       time.Duration
	p95       time.Duration
	p99       time.Duration
	refreshes uint64
	coalesced uint64
	retried   uint64
}

func newBurstCmd() *cobra.Command {
	var (
		n           int
		concurrency int
		path        string
	)
	cmd := &cobra.Command{
		Use:   "burst",
		Short: "Fire concurrent authorized GETs and report refresh coalescing",
		Long: `Sends --n concurrent GET requests to --path. When the access token has
expired, the output shows a single refresh shared by every request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 || concurrency <= 0 {
				return errors.New("--n and --concurrency must be > 0")
			}
			c, err := config.MustFromContext(cmd.Context()).Provider.Client(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := runBurst(cmd.Context(), c, path, n, concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			data := pterm.TableData{
				{"REQUESTS", "OK", "FAILED", "REFRESHES", "COALESCED", "RETRIED", "P50", "P95", "P99", "TOTAL"},
				{
					fmt.Sprint(n), fmt.Sprint(stats.ok), fmt.Sprint(stats.failures),
					fmt.Sprint(stats.refreshes), fmt.Sprint(stats.coalesced), fmt.Sprint(stats.retried),
					stats.p50.Round(time.Microsecond).String(),
					stats.p95.Round(time.Microsecond).String(),
					stats.p99.Round(time.Microsecond).String(),
					stats.total.Round(time.Millisecond).String(),
				},
			}
			if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
				return err
			}
			if stats.failures > 0 {
				return fmt.Errorf("%d of %d requests failed", stats.failures, n)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 16, "number of requests")
	cmd.Flags().IntVar(&concurrency, "concurrency", 16, "maximum requests in flight")
	cmd.Flags().StringVar(&path, "path", "/auth/verify-token", "API path to GET")
	return cmd
}

// runBurst sends n GETs with at most concurrency in flight. Request failures
// are counted, not returned.
func runBurst(ctx context.Context, c *authclient.Client, path string, n, concurrency int) (burstStats, error) {
	before := c.MetricsSnapshot()

	var (
		failures  atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, n)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	start := time.Now()
	for range n {
		g.Go(func() error {
			t0 := time.Now()
			err := c.Do(gctx, http.MethodGet, path, nil, nil)
			d := time.Since(t0)
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return err
				}
				failures.Add(1)
				return nil
			}
			mu.Lock()
			latencies = append(latencies, d)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return burstStats{}, err
	}
	total := time.Since(start)

	after := c.MetricsSnapshot()
	delta := func(id authclient.MetricID) uint64 { return after.Counters[id] - before.Counters[id] }

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return burstStats{
		total:     total,
		ok:        len(latencies),
		failures:  failures.Load(),
		p50:       percentile(latencies, 50),
		p95:       percentile(latencies, 95),
		p99:       percentile(latencies, 99),
		refreshes: delta(authclient.MetricRefreshSuccess) + delta(authclient.MetricRefreshFailure),
		coalesced: delta(authclient.MetricRefreshCoalesced),
		retried:   delta(authclient.MetricRequestRetried),
	}, nil
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
