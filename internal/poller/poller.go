// Package poller periodically refreshes the listing collection.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"listings_dashboard/internal/dashboard"
	"listings_dashboard/internal/gateway"
	"listings_dashboard/internal/metrics"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/normalize"
	"listings_dashboard/internal/notify"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 8 * time.Second

// Fetcher retrieves the raw listing collection.
type Fetcher interface {
	FetchListings(ctx context.Context) (*gateway.Response, error)
}

// Archiver stores a copy of every applied collection.
type Archiver interface {
	Archive(ctx context.Context, records []model.Listing, at time.Time) error
}

// Broadcaster pushes dashboard snapshots to live clients.
type Broadcaster interface {
	Broadcast(msg notify.Message)
}

// Poller drives fetch, normalize and session updates on a fixed interval and
// on demand. Starting a refresh cancels the one still in flight.
type Poller struct {
	fetcher  Fetcher
	session  *dashboard.Session
	notifier notify.Notifier
	log      *zap.Logger
	tick     time.Duration
	now      func() time.Time

	archiver    Archiver
	broadcaster Broadcaster
	metrics     *metrics.Metrics

	trigger chan struct{}
	seq     atomic.Uint64

	mu       sync.Mutex
	inflight context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Poller. notifier may be nil.
func New(fetcher Fetcher, session *dashboard.Session, notifier notify.Notifier, log *zap.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		session:  session,
		notifier: notifier,
		log:      log,
		tick:     DefaultInterval,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// SetTickInterval overrides the default 8-second refresh interval.
func (p *Poller) SetTickInterval(d time.Duration) {
	p.tick = d
}

// SetNotifier replaces the alert destination.
func (p *Poller) SetNotifier(n notify.Notifier) {
	p.notifier = n
}

// SetArchiver enables archiving of applied collections.
func (p *Poller) SetArchiver(a Archiver) {
	p.archiver = a
}

// SetBroadcaster enables snapshot pushes after every applied refresh.
func (p *Poller) SetBroadcaster(b Broadcaster) {
	p.broadcaster = b
}

// SetMetrics enables refresh instrumentation.
func (p *Poller) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Trigger requests an immediate refresh. It never blocks; requests made
// while one is pending are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then on every tick or trigger, blocking
// until ctx is cancelled. The in-flight refresh is cancelled on return.
func (p *Poller) Run(ctx context.Context) {
	p.start(ctx)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.inflight != nil {
				p.inflight()
			}
			p.mu.Unlock()
			p.wg.Wait()
			return
		case <-ticker.C:
			p.start(ctx)
		case <-p.trigger:
			p.start(ctx)
		}
	}
}

// Refresh runs one refresh synchronously, cancelling any refresh in flight.
func (p *Poller) Refresh(ctx context.Context) error {
	rctx, seq, cancel := p.begin(ctx)
	defer cancel()
	return p.refresh(rctx, seq)
}

func (p *Poller) start(ctx context.Context) {
	rctx, seq, cancel := p.begin(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		if err := p.refresh(rctx, seq); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Debug("refresh failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	}()
}

// begin numbers a new refresh and cancels its predecessor.
func (p *Poller) begin(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	seq := p.seq.Add(1)

	p.mu.Lock()
	if p.inflight != nil {
		p.inflight()
	}
	p.inflight = cancel
	p.mu.Unlock()

	return ctx, seq, cancel
}

func (p *Poller) refresh(ctx context.Context, seq uint64) error {
	records, err := p.fetch(ctx)
	if ctx.Err() != nil {
		p.count(metrics.RefreshCanceled)
		p.log.Debug("refresh superseded", zap.Uint64("seq", seq))
		return ctx.Err()
	}

	at := p.now()
	if err != nil {
		p.count(metrics.RefreshError)
		p.log.Error("fetch listings", zap.Uint64("seq", seq), zap.Error(err))
		p.publish(ctx, p.session.FetchFailed(seq, err, at), at)
		return fmt.Errorf("refresh %d: %w", seq, err)
	}

	u := p.session.Fetched(seq, records, at)
	if !u.Applied {
		p.count(metrics.RefreshStale)
		p.log.Debug("dropping stale refresh", zap.Uint64("seq", seq), zap.Uint64("current", u.Seq))
		return nil
	}
	p.count(metrics.RefreshOK)
	if p.metrics != nil {
		p.metrics.Listings.Set(float64(len(records)))
	}
	p.log.Debug("listings refreshed", zap.Uint64("seq", seq), zap.Int("count", len(records)), zap.Int("new", u.New.Count()))

	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, records, at); err != nil {
			p.log.Error("archive listings", zap.Error(err))
		}
	}
	p.publish(ctx, u, at)
	return nil
}

func (p *Poller) fetch(ctx context.Context) ([]model.Listing, error) {
	resp, err := p.fetcher.FetchListings(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	raw, err := normalize.Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(raw), nil
}

func (p *Poller) publish(ctx context.Context, u dashboard.Update, at time.Time) {
	if !u.Applied {
		return
	}
	if p.metrics != nil {
		p.metrics.NewItems.Set(float64(u.New.Count()))
	}
	if p.broadcaster != nil {
		p.broadcaster.Broadcast(notify.Message{Type: notify.MessageSnapshot, Data: p.session.View(1, 0)})
	}
	if u.Notify && p.notifier != nil {
		alert := notify.NewAlert(u.New, at)
		if err := p.notifier.SendAlert(ctx, alert); err != nil {
			p.log.Error("send alert", zap.Error(err))
			return
		}
		p.log.Info("sent new listing alert", zap.Int("count", alert.Count))
	}
}

func (p *Poller) count(result string) {
	if p.metrics != nil {
		p.metrics.Refreshes.WithLabelValues(result).Inc()
	}
}
