package icon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

// RatePolicy bounds outbound pressure of a batch refresh.
type RatePolicy struct {
	MaxConcurrency int
	Delay          time.Duration // pause between the end of a refresh and the next dispatch
}

// DefaultRatePolicy refreshes one domain at a time, one second apart.
var DefaultRatePolicy = RatePolicy{MaxConcurrency: 1, Delay: time.Second}

// BatchReport summarizes a RefreshAll run. Err aggregates every failure.
type BatchReport struct {
	Total       int
	Refreshed   int
	Synthesized int
	Kept        int // nothing found, previous fetched icon left in place
	Failed      int
	Duration    time.Duration
	Err         error
}

// Refresher is the part of Manager a batch needs.
type Refresher interface {
	Refresh(ctx context.Context, domain, override string) (Icon, error)
}

type BatchRefresher struct {
	refresher Refresher
	policy    RatePolicy
	logger    logger.Logger
}

func NewBatchRefresher(r Refresher, policy RatePolicy, log logger.Logger) *BatchRefresher {
	if policy.MaxConcurrency < 1 {
		policy.MaxConcurrency = 1
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	return &BatchRefresher{refresher: r, policy: policy, logger: log}
}

func (b *BatchRefresher) Policy() RatePolicy { return b.policy }

// RefreshAll refreshes every distinct domain in domains. Inputs that
// normalize to the same key are refreshed once. Cancelling ctx stops further
// dispatches; refreshes already started run to completion.
func (b *BatchRefresher) RefreshAll(ctx context.Context, domains []string) BatchReport {
	start := time.Now()

	var (
		mu     sync.Mutex
		report BatchReport
	)
	record := func(icon Icon, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			report.Failed++
			report.Err = multierr.Append(report.Err, err)
		case icon.Stale:
			report.Kept++
		case icon.Synthesized:
			report.Synthesized++
		default:
			report.Refreshed++
		}
	}

	keys := make([]string, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		key, err := NormalizeDomain(d)
		if err != nil {
			report.Total++
			record(Icon{}, err)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	report.Total += len(keys)

	// The slot is taken before the delay: at full concurrency the pause
	// starts once a running refresh has returned.
	sem := semaphore.NewWeighted(int64(b.policy.MaxConcurrency))
	var g errgroup.Group

dispatch:
	for i, key := range keys {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if i > 0 && b.policy.Delay > 0 {
			t := time.NewTimer(b.policy.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				sem.Release(1)
				break dispatch
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			icon, err := b.refresher.Refresh(ctx, key, "")
			record(icon, err)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		mu.Lock()
		skipped := report.Total - report.Refreshed - report.Synthesized - report.Kept - report.Failed
		report.Failed += skipped
		report.Err = multierr.Append(report.Err, err)
		mu.Unlock()
	}

	report.Duration = time.Since(start)
	b.logger.Info("icon batch refresh done",
		logger.Int("total", report.Total),
		logger.Int("refreshed", report.Refreshed),
		logger.Int("synthesized", report.Synthesized),
		logger.Int("kept", report.Kept),
		logger.Int("failed", report.Failed),
		logger.Duration("took", report.Duration))

	return report
}
