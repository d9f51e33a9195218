package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Poller drives one periodic snapshot fetch. Push frames carry deltas; the
// pollers carry authority. Each poller fires immediately on start, then on a
// fixed interval until stopped. Fetch errors are logged and the cadence keeps
// going; the next tick gets a fresh chance.
// -----------------------------------------------------------------------------

// FetchFunc performs one snapshot round trip and applies the result.
type FetchFunc func(ctx context.Context) error

// -----------------------------------------------------------------------------

type Poller struct {
	Name     string
	Interval time.Duration
	Fetch    FetchFunc
	Logger   *logger.Logger

	// OnError is invoked with each fetch error after logging. Optional; used
	// to route auth failures into session teardown.
	OnError func(error)

	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewPoller(name string, interval time.Duration, log *logger.Logger, fetch FetchFunc) *Poller {
	return &Poller{
		Name:     name,
		Interval: interval,
		Fetch:    fetch,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

// Start launches the polling loop on the parent context.
func (p *Poller) Start(parentCtx context.Context, wg *sync.WaitGroup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning.Load() {
		return fmt.Errorf("poller %s is already running", p.Name)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.cancelFunc = cancel
	p.isRunning.Store(true)

	wg.Add(1)
	go p.runLoop(ctx, wg)
	p.Logger.Info("Started poller: %s (every %v)", p.Name, p.Interval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit. No fetch fires after Stop returns and
// the loop has drained.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning.Load() {
		return fmt.Errorf("poller %s is not running", p.Name)
	}

	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.isRunning.Store(false)
	p.Logger.Info("Stopped poller: %s", p.Name)
	return nil
}

// -----------------------------------------------------------------------------

func (p *Poller) IsRunning() bool {
	return p.isRunning.Load()
}

// -----------------------------------------------------------------------------

func (p *Poller) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	// Immediate first fetch so the dashboard is not blank for one interval.
	p.fetchOnce(ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchOnce(ctx)
		}
	}
}

// -----------------------------------------------------------------------------

func (p *Poller) fetchOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.Fetch(ctx); err != nil {
		p.Logger.Warning("Fetch failed for %s: %v", p.Name, err)
		if p.OnError != nil {
			p.OnError(err)
		}
	}
}
