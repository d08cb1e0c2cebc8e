package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/dial"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/ui"
)

// WriteTimeout bounds a single set-point or mode write.
const WriteTimeout = 10 * time.Second

// mousePointer is the pointer id used for the terminal mouse.
const mousePointer = 1

type pulseElapsedMsg struct {
	control dial.Control
}

type writeResultMsg struct {
	what string
	err  error
}

// DialModel is the interactive dial screen.
type DialModel struct {
	widget dial.Widget
	view   ui.DialView

	last      climate.State
	haveState bool
	captured  bool

	status    string
	statusErr bool

	keys    dialKeyMap
	help    help.Model
	session *session
}

func newDialModel(w dial.Widget, s *session) DialModel {
	return DialModel{
		widget:  w,
		view:    ui.NewDialView(w.Config),
		keys:    newDialKeyMap(),
		help:    help.New(),
		session: s,
	}
}

// Widget returns the current dial state.
func (m DialModel) Widget() dial.Widget {
	return m.widget
}

// Update handles messages for the dial screen
func (m DialModel) Update(msg tea.Msg) (DialModel, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.last = msg.state
		m.haveState = true
		return m.dispatch(dial.ExternalState{State: msg.state})

	case commitElapsedMsg:
		if !m.session.sched.Current(msg.gen) {
			logging.Debug("Dropping superseded commit timer")
			return m, nil
		}
		return m.dispatch(dial.CommitElapsed{})

	case pulseElapsedMsg:
		return m.dispatch(dial.PulseElapsed{Control: msg.control})

	case writeResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.what, msg.err)
			m.statusErr = true
			// Show what the entity really has again
			if m.haveState && !m.widget.InControl() {
				return m.dispatch(dial.ExternalState{State: m.last})
			}
			return m, nil
		}
		m.status = msg.what
		m.statusErr = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m DialModel) handleKey(msg tea.KeyMsg) (DialModel, tea.Cmd) {
	if m.widget.Menu.Open {
		switch {
		case key.Matches(msg, m.keys.Up):
			return m.dispatch(dial.MenuMove{Delta: -1})
		case key.Matches(msg, m.keys.Down):
			return m.dispatch(dial.MenuMove{Delta: 1})
		case key.Matches(msg, m.keys.Choose):
			return m.dispatch(dial.MenuChoose{})
		case key.Matches(msg, m.keys.Close), key.Matches(msg, m.keys.Menu):
			return m.dispatch(dial.MenuClose{})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		return m.dispatch(dial.Tap{Control: nudgeControl(m.widget.Model, 1)})
	case key.Matches(msg, m.keys.Down):
		return m.dispatch(dial.Tap{Control: nudgeControl(m.widget.Model, -1)})
	case key.Matches(msg, m.keys.Switch):
		if m.widget.Model.IsDualModeActive() {
			other := dial.SetpointHigh
			if m.widget.Model.Active == dial.SetpointHigh {
				other = dial.SetpointLow
			}
			return m.dispatch(dial.SelectSetpoint{Setpoint: other})
		}
	case key.Matches(msg, m.keys.Menu):
		return m.dispatch(dial.MenuToggle{})
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// nudgeControl picks the tap control that moves the set-point being
// edited in direction dir.
func nudgeControl(model dial.Model, dir int) dial.Control {
	if model.IsDualModeActive() {
		if model.Active == dial.SetpointHigh {
			if dir > 0 {
				return dial.ControlHighUp
			}
			return dial.ControlHighDown
		}
		if dir > 0 {
			return dial.ControlLowUp
		}
		return dial.ControlLowDown
	}
	if dir > 0 {
		return dial.ControlUp
	}
	return dial.ControlDown
}

// handleMouse translates terminal cells into dial pointer events. The
// terminal reports a single mouse, so one pointer id is used throughout.
func (m DialModel) handleMouse(msg tea.MouseMsg) (DialModel, tea.Cmd) {
	col, row := msg.X-dialLeft, msg.Y-headerRows
	x, y := m.view.ToDial(col, row)

	switch msg.Action {
	case tea.MouseActionRelease:
		return m.dispatch(dial.PointerUp{ID: mousePointer})

	case tea.MouseActionMotion:
		if m.captured {
			return m.dispatch(dial.PointerMove{ID: mousePointer, X: x, Y: y})
		}
		return m, nil

	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.dispatch(dial.Tap{Control: nudgeControl(m.widget.Model, 1)})
		case tea.MouseButtonWheelDown:
			return m.dispatch(dial.Tap{Control: nudgeControl(m.widget.Model, -1)})
		}

		if row >= m.view.Height() {
			if msg.Button != tea.MouseButtonLeft {
				return m, nil
			}
			if row == m.view.ModeLineRow() {
				return m.dispatch(dial.MenuToggle{})
			}
			if i, ok := m.view.MenuIndexAt(row, m.widget.Menu); ok {
				return m.dispatch(dial.MenuSelect{Index: i})
			}
			return m, nil
		}
		return m.dispatch(dial.PointerDown{
			ID:      mousePointer,
			X:       x,
			Y:       y,
			Primary: msg.Button == tea.MouseButtonLeft,
		})
	}
	return m, nil
}

// dispatch feeds ev to the widget and turns the resulting effects into
// commands.
func (m DialModel) dispatch(ev dial.Event) (DialModel, tea.Cmd) {
	var effects []dial.Effect
	m.widget, effects = m.widget.HandleEvent(ev)

	var cmds []tea.Cmd
	for _, e := range effects {
		switch e := e.(type) {
		case dial.EffectCapturePointer:
			m.captured = true
		case dial.EffectReleasePointer:
			m.captured = false
		case dial.EffectScheduleCommit:
			m.session.sched.ArmAfter(e.Delay)
		case dial.EffectPulse:
			c := e.Control
			cmds = append(cmds, tea.Tick(e.Duration, func(time.Time) tea.Msg {
				return pulseElapsedMsg{control: c}
			}))
		case dial.EffectCommit:
			if cmd := m.writeTemperature(e.Request); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case dial.EffectSetMode:
			cmds = append(cmds, m.writeMode(e.Mode))
		}
	}

	switch len(cmds) {
	case 0:
		return m, nil
	case 1:
		return m, cmds[0]
	default:
		return m, tea.Batch(cmds...)
	}
}

func (m DialModel) writeTemperature(req climate.TemperatureRequest) tea.Cmd {
	if m.haveState && !climate.NeedsWrite(m.last, req) {
		logging.Debug("Commit matches entity state, not writing",
			zap.String("entity_id", m.last.EntityID),
			zap.String("request", req.String()),
		)
		return nil
	}
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(s.ctx, WriteTimeout)
		defer cancel()
		err := s.backend.SetTemperature(ctx, req)
		return writeResultMsg{what: "set " + req.String(), err: err}
	}
}

func (m DialModel) writeMode(mode string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(s.ctx, WriteTimeout)
		defer cancel()
		err := s.backend.SetMode(ctx, mode)
		return writeResultMsg{what: "mode " + mode, err: err}
	}
}

// Flush sends a commit that is still waiting for its quiet period. Hosts
// call it on exit so the last adjustment is not lost.
func (m DialModel) Flush(ctx context.Context) error {
	if !m.widget.InControl() || m.widget.Drag.Active() {
		return nil
	}
	m.session.sched.Stop()

	_, effects := m.widget.HandleEvent(dial.CommitElapsed{})
	for _, e := range effects {
		c, ok := e.(dial.EffectCommit)
		if !ok || (m.haveState && !climate.NeedsWrite(m.last, c.Request)) {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
		err := m.session.backend.SetTemperature(wctx, c.Request)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to send pending set-point: %w", err)
		}
	}
	return nil
}

// View renders the dial screen body (without the header)
func (m DialModel) View() string {
	var b strings.Builder
	b.WriteString(indent(m.view.Render(dial.Project(m.widget)), dialLeft))
	b.WriteString("\n\n")

	if m.status != "" {
		style := statusOKStyle
		if m.statusErr {
			style = statusErrStyle
		}
		b.WriteString(indent(style.Render(m.status), dialLeft))
		b.WriteString("\n")
	}
	b.WriteString(indent(m.help.View(m.keys), dialLeft))
	return b.String()
}
