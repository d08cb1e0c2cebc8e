// Package commit provides the debounced commit timer used by the dial.
//
// A Scheduler holds at most one live timer. Every Arm call replaces the
// previous timer, so a burst of interactions produces a single callback
// once the burst has been quiet for the configured delay:
//
//	s := commit.NewScheduler(commit.RealClock(), 3*time.Second, func() {
//	    program.Send(commitMsg{})
//	})
//	s.Arm() // on every drag step, tap or edit
//
// The callback is fire-and-forget; the scheduler does not observe its
// outcome. Tests drive time with FakeClock.
package commit
