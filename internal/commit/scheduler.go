package commit

import (
	"sync"
	"time"
)

// Scheduler runs a callback once after a quiet period. Arm restarts the
// period; only the last Arm of a burst leads to a callback.
type Scheduler struct {
	clock Clock
	delay time.Duration
	fn    func(gen uint64)

	mu    sync.Mutex
	timer Timer
	gen   uint64
	fired int
}

// NewScheduler creates a scheduler that calls fn after delay of quiet.
// A nil clock uses the real clock.
func NewScheduler(clock Clock, delay time.Duration, fn func()) *Scheduler {
	return NewGenerationScheduler(clock, delay, func(uint64) {
		if fn != nil {
			fn()
		}
	})
}

// NewGenerationScheduler is NewScheduler for callbacks that hand the firing
// off to another goroutine. fn receives the generation it fired for; pass it
// to Current when the hand-off is processed to drop fires that a later Arm
// or Stop has superseded.
func NewGenerationScheduler(clock Clock, delay time.Duration, fn func(gen uint64)) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock, delay: delay, fn: fn}
}

// Delay returns the configured quiet period.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Arm starts or restarts the quiet period.
func (s *Scheduler) Arm() {
	s.ArmAfter(s.delay)
}

// ArmAfter restarts the quiet period with an explicit delay.
func (s *Scheduler) ArmAfter(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen) })
}

// Stop cancels a pending callback. It reports whether one was pending.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil {
		return false
	}
	stopped := s.timer.Stop()
	s.timer = nil
	s.gen++
	return stopped
}

// Current reports whether gen is still the latest arming, i.e. nothing
// re-armed or stopped the scheduler since that callback fired.
func (s *Scheduler) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// Pending reports whether a callback is scheduled.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Fired returns how many times the callback has run.
func (s *Scheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// fire runs the callback unless the timer was replaced after it was
// already in flight.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.fired++
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		fn(gen)
	}
}
