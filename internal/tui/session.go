package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/commit"
	"github.com/muurk/thermodial/internal/logging"
)

// Messages delivered from outside the Bubble Tea event loop
type stateMsg struct {
	state climate.State
}

type backendDoneMsg struct {
	err error
}

// commitElapsedMsg carries the scheduler generation that fired, so a fire
// queued before a later re-arm can be recognised and dropped.
type commitElapsedMsg struct {
	gen uint64
}

// sessionMsg wraps a message read from the session channel so Update knows
// to keep listening.
type sessionMsg struct {
	inner tea.Msg
}

// session owns everything that outlives a single Update call: the backend
// goroutine, the commit timer and the channel they report on.
type session struct {
	ctx     context.Context
	cancel  context.CancelFunc
	backend climate.Backend
	msgs    chan tea.Msg
	sched   *commit.Scheduler
}

func newSession(parent context.Context, backend climate.Backend, clock commit.Clock) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		ctx:     ctx,
		cancel:  cancel,
		backend: backend,
		msgs:    make(chan tea.Msg, 64),
	}
	s.sched = commit.NewGenerationScheduler(clock, 0, func(gen uint64) {
		s.post(commitElapsedMsg{gen: gen})
	})
	return s
}

// post hands msg to the event loop. It gives up once the session is over.
func (s *session) post(msg tea.Msg) {
	select {
	case s.msgs <- msg:
	case <-s.ctx.Done():
	}
}

// listen waits for the next session message.
func (s *session) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-s.msgs:
			return sessionMsg{inner: msg}
		case <-s.ctx.Done():
			return nil
		}
	}
}

// start runs the backend in its own goroutine. State pushes and the final
// error arrive through the session channel.
func (s *session) start() tea.Cmd {
	return func() tea.Msg {
		go func() {
			err := s.backend.Run(s.ctx, func(st climate.State) {
				logging.LogStatePush("dial", st)
				s.post(stateMsg{state: st})
			})
			if err != nil {
				logging.Warn("Climate backend stopped", zap.Error(err))
			}
			s.post(backendDoneMsg{err: err})
		}()
		return nil
	}
}

// stop cancels the backend and any armed commit.
func (s *session) stop() {
	s.sched.Stop()
	s.cancel()
}
