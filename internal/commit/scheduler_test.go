package commit

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestSchedulerCoalescesBurst(t *testing.T) {
	clock := NewFakeClock(epoch)
	var calls []time.Time
	s := NewScheduler(clock, time.Second, func() {
		calls = append(calls, clock.Now())
	})

	for i := 0; i < 5; i++ {
		s.Arm()
		clock.Advance(100 * time.Millisecond)
	}
	lastArm := epoch.Add(400 * time.Millisecond)

	clock.Advance(899 * time.Millisecond)
	if len(calls) != 0 {
		t.Fatalf("callback ran %d times before the quiet period ended", len(calls))
	}

	clock.Advance(time.Millisecond)
	if len(calls) != 1 {
		t.Fatalf("callback ran %d times, want 1", len(calls))
	}
	if want := lastArm.Add(time.Second); !calls[0].Equal(want) {
		t.Errorf("callback at %v, want %v", calls[0], want)
	}

	clock.Advance(10 * time.Second)
	if len(calls) != 1 {
		t.Errorf("callback ran again without a new Arm")
	}
	if s.Fired() != 1 {
		t.Errorf("Fired() = %d, want 1", s.Fired())
	}
}

func TestSchedulerStop(t *testing.T) {
	clock := NewFakeClock(epoch)
	called := false
	s := NewScheduler(clock, time.Second, func() { called = true })

	if s.Stop() {
		t.Error("Stop() on idle scheduler = true")
	}

	s.Arm()
	if !s.Pending() {
		t.Error("Pending() = false after Arm")
	}
	if !s.Stop() {
		t.Error("Stop() = false with a pending timer")
	}
	clock.Advance(2 * time.Second)
	if called {
		t.Error("callback ran after Stop")
	}
	if s.Pending() {
		t.Error("Pending() = true after Stop")
	}
}

func TestSchedulerArmAfter(t *testing.T) {
	clock := NewFakeClock(epoch)
	fired := 0
	s := NewScheduler(clock, time.Second, func() { fired++ })

	s.ArmAfter(3 * time.Second)
	clock.Advance(2 * time.Second)
	if fired != 0 {
		t.Fatal("fired before the explicit delay")
	}
	clock.Advance(time.Second)
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestSchedulerRearmFromCallback(t *testing.T) {
	clock := NewFakeClock(epoch)
	var s *Scheduler
	fired := 0
	s = NewScheduler(clock, time.Second, func() {
		fired++
		if fired < 3 {
			s.Arm()
		}
	})

	s.Arm()
	clock.Advance(10 * time.Second)
	if fired != 3 {
		t.Errorf("fired = %d, want 3", fired)
	}
}

func TestSchedulerGenerationSuperseded(t *testing.T) {
	clock := NewFakeClock(epoch)
	var fires []uint64
	s := NewGenerationScheduler(clock, time.Second, func(gen uint64) {
		fires = append(fires, gen)
	})

	s.Arm()
	clock.Advance(time.Second)
	if len(fires) != 1 {
		t.Fatalf("fired %d times, want 1", len(fires))
	}
	queued := fires[0]
	if !s.Current(queued) {
		t.Error("Current() = false with no re-arm since the fire")
	}

	// A re-arm before the queued fire is handled makes it stale
	s.Arm()
	if s.Current(queued) {
		t.Error("Current() = true for a fire superseded by Arm")
	}
	clock.Advance(time.Second)
	if len(fires) != 2 || !s.Current(fires[1]) {
		t.Errorf("fires = %v, want a second current fire", fires)
	}

	s.Stop()
	if s.Current(fires[1]) {
		t.Error("Current() = true after Stop")
	}
}

func TestSchedulerZeroDelay(t *testing.T) {
	clock := NewFakeClock(epoch)
	fired := 0
	s := NewScheduler(clock, 0, func() { fired++ })

	s.Arm()
	clock.Advance(0)
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestSchedulerRealClock(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	s := NewScheduler(nil, 10*time.Millisecond, wg.Done)

	s.Arm()
	s.Arm()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real clock scheduler never fired")
	}
}

func TestFakeClockOrdersTimers(t *testing.T) {
	clock := NewFakeClock(epoch)
	var order []int
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clock.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	t2 := clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	if clock.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", clock.Pending())
	}
	if !t2.Stop() {
		t.Error("Stop() = false for a pending timer")
	}
	clock.Advance(5 * time.Second)

	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("fire order = %v, want [1 3]", order)
	}
	if !clock.Now().Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("Now() = %v after Advance", clock.Now())
	}
}
