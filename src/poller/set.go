package poller

import (
	"context"
	"sync"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Set manages the snapshot pollers as a group so the session layer can start
// and stop them together.
// -----------------------------------------------------------------------------

type Set struct {
	Logger  *logger.Logger
	pollers []*Poller
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

func NewSet(log *logger.Logger) *Set {
	return &Set{Logger: log}
}

// -----------------------------------------------------------------------------

func (s *Set) Add(p *Poller) {
	s.mu.Lock()
	s.pollers = append(s.pollers, p)
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

// StartAll launches every registered poller. Pollers already running are left
// alone.
func (s *Set) StartAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pollers {
		if p.IsRunning() {
			continue
		}
		if err := p.Start(ctx, &s.wg); err != nil {
			s.Logger.Error("Could not start poller %s: %v", p.Name, err)
		}
	}
}

// -----------------------------------------------------------------------------

// StopAll stops every running poller and waits for their loops to drain.
func (s *Set) StopAll() {
	s.mu.Lock()
	for _, p := range s.pollers {
		if p.IsRunning() {
			_ = p.Stop()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}
