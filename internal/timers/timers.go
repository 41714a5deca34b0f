// Package timers runs the named periodic timers that drive authentication
// polling and reconnection.
package timers

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Well-known timer names.
const (
	CheckAuthStatus  = "check_auth_status"
	RefreshShortCode = "refresh_short_code"
	Reconnect        = "reconnect"
)

// interval is an exact-duration cron schedule. cron.Every rounds periods up
// to a whole second; the auth poll and reconnect timers run at 500 ms.
type interval time.Duration

func (i interval) Next(t time.Time) time.Time { return t.Add(time.Duration(i)) }

// Service runs named periodic timers on a shared cron scheduler.
//
// Starting a name that is already running replaces it. Callbacks are handed
// to the runner, which queues them for the consumer tick; they therefore
// never run concurrently with each other.
type Service struct {
	cron *cron.Cron
	run  func(func())
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewService creates a started timer service. run marshals callbacks onto
// the consumer tick.
func NewService(run func(func()), log zerolog.Logger) *Service {
	s := &Service{
		cron:    cron.New(),
		run:     run,
		log:     log,
		entries: make(map[string]cron.EntryID),
	}
	s.cron.Start()
	return s
}

// Start arms (or replaces) the named timer.
func (s *Service) Start(name string, every time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}

	id := s.cron.Schedule(interval(every), cron.FuncJob(func() {
		s.run(fn)
	}))
	s.entries[name] = id

	s.log.Debug().Str("timer", name).Dur("interval", every).Msg("Timer started")
}

// Stop disarms the named timer. Stopping an unknown name is a no-op.
func (s *Service) Stop(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, name)

	s.log.Debug().Str("timer", name).Msg("Timer stopped")
}

// Running reports whether the named timer is armed.
func (s *Service) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// StopAll disarms every timer.
func (s *Service) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Shutdown disarms every timer and stops the scheduler.
func (s *Service) Shutdown() {
	s.StopAll()
	s.cron.Stop()
}
