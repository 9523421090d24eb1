// Package poller fetches recent orders while the push connection is down.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/openrport/dashnotify/client/orders"
	"github.com/openrport/dashnotify/notifications"
	"github.com/openrport/dashnotify/share/logger"
)

const (
	DefaultPageSize        = 10
	DefaultMaxAuthFailures = 3
	DefaultInterval        = time.Duration(notifications.DefaultPollingIntervalMs) * time.Millisecond
)

// ConnectionState tells the poller whether the push connection is up.
type ConnectionState interface {
	IsConnected() bool
}

type Source interface {
	RecentOrders(ctx context.Context, limit int) ([]orders.Order, error)
}

type WatermarkStore interface {
	LoadWatermark(ctx context.Context) (time.Time, bool)
	SaveWatermark(ctx context.Context, at time.Time) error
}

// Sink receives the notifications found by one cycle, newest first.
type Sink func(batch []notifications.Notification)

type Config struct {
	PageSize int
	// MaxAuthFailures consecutive authentication failures suspend polling,
	// zero never suspends.
	MaxAuthFailures int
	// Interval is asked before every cycle, so interval changes apply to the next wait.
	Interval func() time.Duration
}

// Poller runs one cycle per interval. A cycle does nothing while the push
// connection is up. Otherwise it emits every order created after the
// watermark and moves the watermark to now.
type Poller struct {
	config     Config
	connection ConnectionState
	source     Source
	watermarks WatermarkStore
	sink       Sink
	logger     *logger.Logger
	now        func() time.Time

	mu           sync.Mutex
	watermark    time.Time
	authFailures int
	suspended    bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
	running  bool
}

func New(config Config, connection ConnectionState, source Source, watermarks WatermarkStore, sink Sink, l *logger.Logger) *Poller {
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Interval == nil {
		config.Interval = func() time.Duration { return DefaultInterval }
	}
	return &Poller{
		config:     config,
		connection: connection,
		source:     source,
		watermarks: watermarks,
		sink:       sink,
		logger:     l,
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start restores the watermark and launches the loop. Without a stored
// watermark it starts from now, so past orders are never replayed. A stored
// watermark ahead of the clock is pulled back to now.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	select {
	case <-p.stop:
		return
	default:
	}

	now := p.now()
	wm, found := p.watermarks.LoadWatermark(ctx)
	switch {
	case !found:
		wm = now
		if err := p.watermarks.SaveWatermark(ctx, wm); err != nil {
			p.logger.Errorf("failed saving initial poll watermark: %v", err)
		}
		p.logger.Debugf("no poll watermark, starting from %s", wm.Format(time.RFC3339))
	case wm.After(now):
		p.logger.Infof("poll watermark %s is ahead of the clock, resetting", wm.Format(time.RFC3339))
		wm = now
		if err := p.watermarks.SaveWatermark(ctx, wm); err != nil {
			p.logger.Errorf("failed saving poll watermark: %v", err)
		}
	}
	p.watermark = wm

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	go p.pollLoop(loopCtx)
}

// Stop ends the loop and waits for a running cycle to finish. No cycle starts
// after Stop returns.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.mu.Lock()
	running := p.running
	cancel := p.cancel
	p.mu.Unlock()
	if !running {
		return
	}
	cancel()
	<-p.done
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-time.After(p.config.Interval()):
		case <-p.stop:
			return
		}
		select {
		case <-p.stop:
			return
		default:
		}

		if _, err := p.Poll(ctx); err != nil {
			p.logger.Errorf("poll failed: %v", err)
		}
	}
}

// Poll runs a single cycle and returns how many notifications it emitted.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	if p.connection.IsConnected() {
		return 0, nil
	}
	p.mu.Lock()
	suspended := p.suspended
	p.mu.Unlock()
	if suspended {
		return 0, nil
	}

	// orders created while the request is in flight stay after the watermark
	now := p.now()
	list, err := p.source.RecentOrders(ctx, p.config.PageSize)
	if err != nil {
		p.recordFailure(err)
		return 0, err
	}

	p.mu.Lock()
	p.authFailures = 0
	wm := p.watermark
	next := now
	if wm.After(next) {
		next = wm
	}
	p.watermark = next
	p.mu.Unlock()

	var batch []notifications.Notification
	for _, o := range list {
		if o.CreatedAt.After(wm) {
			batch = append(batch, orders.CreatedNotification(o, now))
		}
	}

	if err := p.watermarks.SaveWatermark(ctx, next); err != nil {
		p.logger.Errorf("failed saving poll watermark: %v", err)
	}
	if len(batch) > 0 {
		p.logger.Debugf("found %d new orders since %s", len(batch), wm.Format(time.RFC3339))
		p.sink(batch)
	}
	return len(batch), nil
}

func (p *Poller) recordFailure(err error) {
	if !orders.IsAuthError(err) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authFailures++
	if p.config.MaxAuthFailures > 0 && p.authFailures >= p.config.MaxAuthFailures && !p.suspended {
		p.suspended = true
		p.logger.Errorf("polling suspended after %d authentication failures", p.authFailures)
	}
}

// ResumeAuth lifts an authentication suspension, called once the credential
// is known to work again.
func (p *Poller) ResumeAuth() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.suspended {
		p.logger.Infof("polling resumed")
	}
	p.suspended = false
	p.authFailures = 0
}

func (p *Poller) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

func (p *Poller) Watermark() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}
