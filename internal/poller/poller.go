// Package poller follows analysis jobs until they reach a terminal status.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/logger"
)

// DefaultInterval matches the web client's refresh rate
const DefaultInterval = 3 * time.Second

// ErrPollTimeout is returned when Timeout elapses before a terminal status
var ErrPollTimeout = errors.New("timed out waiting for analysis to finish")

// Fetcher loads a single analysis record
type Fetcher interface {
	GetAnalysis(ctx context.Context, id string) (*api.Analysis, error)
}

// UpdateFunc receives every fetched record, terminal ones included
type UpdateFunc func(*api.Analysis)

// Poller polls one job at a time with a single request in flight
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration // 0 = no limit

	fetcher Fetcher
	log     *logger.Logger
}

// New creates a poller. A non-positive interval uses DefaultInterval.
func New(fetcher Fetcher, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		Interval: interval,
		Timeout:  timeout,
		fetcher:  fetcher,
		log:      logger.NewWithCallback("poller", func() bool { return false }),
	}
}

// SetLogger replaces the poller's logger
func (p *Poller) SetLogger(l *logger.Logger) {
	if l != nil {
		p.log = l.WithComponent("poller")
	}
}

// Poll fetches the analysis every Interval until it is COMPLETED or FAILED
// and returns the final record. The first fetch happens one interval after
// the call. A fetch error ends polling immediately.
func (p *Poller) Poll(ctx context.Context, id string, onUpdate UpdateFunc) (*api.Analysis, error) {
	if id == "" {
		return nil, api.NewValidationError("id", "", "Analysis id is required.")
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.Timeout, ErrPollTimeout)
		defer cancel()
	}

	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, p.stopCause(ctx)
		case <-timer.C:
		}

		analysis, err := p.fetcher.GetAnalysis(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, p.stopCause(ctx)
			}
			p.log.WarnWithFields("polling stopped", []logger.Field{logger.F("analysis_id", id), logger.Error(err)})
			return nil, fmt.Errorf("%s: %w", api.MsgFetchStatusFailed, err)
		}

		p.log.DebugWithFields("polled analysis", []logger.Field{
			logger.F("analysis_id", id),
			logger.F("status", string(analysis.Status)),
			logger.F("attempt", attempt),
		})

		if onUpdate != nil {
			onUpdate(analysis)
		}

		if analysis.Status.IsTerminal() {
			return analysis, nil
		}

		timer.Reset(p.Interval)
	}
}

// Track follows a freshly uploaded record. Records that are not PENDING or
// IN_PROGRESS are returned as-is without any request.
func (p *Poller) Track(ctx context.Context, analysis *api.Analysis, onUpdate UpdateFunc) (*api.Analysis, error) {
	if analysis == nil {
		return nil, api.NewValidationError("analysis", "", "No analysis to track.")
	}
	if !analysis.Status.IsActive() {
		return analysis, nil
	}
	return p.Poll(ctx, analysis.ID, onUpdate)
}

// TrackAll tracks several jobs concurrently. Results keep input order.
// onUpdate calls are serialized. The first error cancels the other jobs.
func (p *Poller) TrackAll(ctx context.Context, analyses []*api.Analysis, onUpdate UpdateFunc) ([]*api.Analysis, error) {
	results := make([]*api.Analysis, len(analyses))

	var mu sync.Mutex
	serialized := func(a *api.Analysis) {
		if onUpdate == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onUpdate(a)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, analysis := range analyses {
		g.Go(func() error {
			final, err := p.Track(gctx, analysis, serialized)
			if err != nil {
				return err
			}
			results[i] = final
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Poller) stopCause(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrPollTimeout) {
		return ErrPollTimeout
	}
	return ctx.Err()
}
