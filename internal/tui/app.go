package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/thermodial/internal/climate"
	"github.com/muurk/thermodial/internal/commit"
	"github.com/muurk/thermodial/internal/dial"
	"github.com/muurk/thermodial/internal/logging"
	"github.com/muurk/thermodial/internal/ui"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenConnecting Screen = "connecting"
	ScreenDial       Screen = "dial"
	ScreenError      Screen = "error"
)

// Options configures the interactive dial.
type Options struct {
	Backend climate.Backend
	Dial    dial.Config
	Title   string       // Entity name shown in the header
	Source  string       // Where the entity lives, e.g. the Home Assistant URL
	Clock   commit.Clock // Commit timer clock; nil uses the real clock
}

// AppModel is the top-level model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen
	Dial          DialModel
	Err           error

	Width  int
	Height int

	opts      Options
	spinner   spinner.Model
	help      help.Model
	errorKeys errorKeyMap
	session   *session
}

// NewAppModel validates opts and prepares the connecting screen. The
// backend starts when the program calls Init.
func NewAppModel(ctx context.Context, opts Options) (AppModel, error) {
	if opts.Backend == nil {
		return AppModel{}, errors.New("no climate backend configured")
	}
	w, err := dial.NewWidget(opts.Dial)
	if err != nil {
		return AppModel{}, err
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	sess := newSession(ctx, opts.Backend, opts.Clock)
	return AppModel{
		CurrentScreen: ScreenConnecting,
		Dial:          newDialModel(w, sess),
		Width:         ui.MinTerminalWidth,
		opts:          opts,
		spinner:       s,
		help:          help.New(),
		errorKeys:     newErrorKeyMap(),
		session:       sess,
	}, nil
}

// Init starts the backend and the spinner
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.session.start(), m.session.listen(), m.spinner.Tick)
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		next, cmd := m.Update(msg.inner)
		return next, tea.Batch(cmd, m.session.listen())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case stateMsg:
		if m.CurrentScreen != ScreenDial {
			logging.Info("Climate entity connected", zap.String("entity_id", msg.state.EntityID))
			m.CurrentScreen = ScreenDial
			m.Err = nil
		}

	case backendDoneMsg:
		if msg.err == nil {
			msg.err = errors.New("connection closed")
		}
		m.Err = msg.err
		m.CurrentScreen = ScreenError
		m.session.sched.Stop()
		return m, nil

	case spinner.TickMsg:
		if m.CurrentScreen != ScreenConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.CurrentScreen == ScreenError {
			return m.updateErrorScreen(msg)
		}
		if key.Matches(msg, m.Dial.keys.Quit) {
			return m, tea.Quit
		}
		if m.CurrentScreen != ScreenDial {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.Dial, cmd = m.Dial.Update(msg)
	return m, cmd
}

// updateErrorScreen handles user input on the error screen
func (m AppModel) updateErrorScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.errorKeys.Retry):
		logging.Info("Retrying climate backend")
		m.CurrentScreen = ScreenConnecting
		m.Err = nil
		return m, tea.Batch(m.session.start(), m.spinner.Tick)
	case key.Matches(msg, m.errorKeys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current screen
func (m AppModel) View() string {
	header := renderHeader(m.opts.Title, m.opts.Source, string(m.CurrentScreen), m.Width)

	var body string
	switch m.CurrentScreen {
	case ScreenConnecting:
		body = m.renderConnecting()
	case ScreenDial:
		body = m.Dial.View()
	case ScreenError:
		body = m.renderError()
	default:
		body = "Unknown screen"
	}
	return header + "\n" + body
}

func (m AppModel) renderConnecting() string {
	var b strings.Builder
	b.WriteString("\n")
	target := m.opts.Source
	if target == "" {
		target = m.opts.Title
	}
	b.WriteString(indent(fmt.Sprintf("%s Connecting to %s...", m.spinner.View(), target), dialLeft))
	b.WriteString("\n\n")
	b.WriteString(indent(m.help.View(m.errorKeys), dialLeft))
	return b.String()
}

func (m AppModel) renderError() string {
	result := ui.NewFailureResult("Lost the climate entity", m.Err, []string{
		"Check the entity id and that the thermostat is online",
		"Check the access token (THERMODIAL_TOKEN) is still valid",
		"Run with --log-level debug --log-file thermodial.log for details",
	}).SetWidth(m.Width)
	return "\n" + result.Render() + "\n" + indent(m.help.View(m.errorKeys), dialLeft)
}

// Run shows the dial full screen until the user quits or ctx is done. A
// commit still waiting for its quiet period is sent before returning.
func Run(ctx context.Context, opts Options) error {
	m, err := NewAppModel(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		m.session.stop()
		if err := opts.Backend.Close(); err != nil {
			logging.Debug("Closing climate backend", zap.Error(err))
		}
	}()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("dial UI failed: %w", err)
	}

	if fm, ok := final.(AppModel); ok && fm.CurrentScreen == ScreenDial {
		if err := fm.Dial.Flush(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}
	return nil
}
