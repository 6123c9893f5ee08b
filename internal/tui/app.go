package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/bridge"
	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/relay"
	"github.com/muurk/lightify/internal/store"
)

const (
	luminanceStep = 10
	minLuminance  = 10
	maxLuminance  = 100

	updateBuffer = 16
)

// Bridge is the part of *bridge.Bridge the dashboard drives.
type Bridge interface {
	relay.Sender
	Refresh(ctx context.Context) error
	Groups() []store.Group
	Lights() []store.Light
	OnUpdate(fn func(store.Update)) func()
	Done() <-chan struct{}
}

// Options configures the dashboard.
type Options struct {
	// Name labels the bridge in the header, usually its address.
	Name string
	// Timeout bounds each refresh.
	Timeout time.Duration
	// Fade is the transition time, in deciseconds, of luminance changes.
	Fade uint16
}

// Pane identifies which list has focus.
type Pane int

const (
	PaneGroups Pane = iota
	PaneLights
)

// Messages for async operations
type cacheUpdatedMsg struct{}
type disconnectedMsg struct{}
type refreshDoneMsg struct{ err error }
type commandDoneMsg struct {
	status string
	err    error
}

// Model is the dashboard screen. It lists the bridge's cached groups and
// lights and sends switch and luminance commands for the selected entry.
type Model struct {
	bridge      Bridge
	opts        Options
	updates     chan struct{}
	unsubscribe func()

	Groups []store.Group
	Lights []store.Light

	Pane   Pane
	Cursor [2]int

	Refreshing   bool
	Disconnected bool
	ShowingHelp  bool
	Status       string
	Err          error

	Width  int
	Height int

	Spinner spinner.Model
	Help    help.Model
	Keys    keyMap
}

// New creates a dashboard over b and subscribes to its cache updates.
// Close releases the subscription.
func New(b Bridge, opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := Model{
		bridge:  b,
		opts:    opts,
		updates: make(chan struct{}, updateBuffer),
		Groups:  b.Groups(),
		Lights:  b.Lights(),
		Width:   MinTerminalWidth,
		Height:  24,
		Spinner: s,
		Help:    help.New(),
		Keys:    newKeyMap(),
	}

	// Listeners run on the bridge's reader goroutine, so they only signal.
	updates := m.updates
	m.unsubscribe = b.OnUpdate(func(store.Update) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	return m
}

// Close stops listening for bridge updates.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the first refresh and the update listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.Spinner.Tick,
		m.refreshCmd(),
		m.waitForUpdate(),
		m.waitForDisconnect(),
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case cacheUpdatedMsg:
		m.reload()
		return m, m.waitForUpdate()

	case disconnectedMsg:
		m.Disconnected = true
		m.Refreshing = false
		m.Status = ""
		m.Err = errors.New("bridge connection lost")
		return m, nil

	case refreshDoneMsg:
		m.Refreshing = false
		m.reload()
		if msg.err != nil {
			m.Err = msg.err
			m.Status = ""
		} else {
			m.Err = nil
			m.Status = fmt.Sprintf("Refreshed %d groups, %d lights", len(m.Groups), len(m.Lights))
		}
		return m, nil

	case commandDoneMsg:
		m.reload()
		if msg.err != nil {
			m.Err = msg.err
			m.Status = ""
		} else {
			m.Err = nil
			m.Status = msg.status
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowingHelp {
		// Any key closes the help screen
		m.ShowingHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowingHelp = true

	case key.Matches(msg, m.Keys.Tab):
		if m.Pane == PaneGroups {
			m.Pane = PaneLights
		} else {
			m.Pane = PaneGroups
		}

	case key.Matches(msg, m.Keys.Up):
		if m.Cursor[m.Pane] > 0 {
			m.Cursor[m.Pane]--
		}

	case key.Matches(msg, m.Keys.Down):
		if m.Cursor[m.Pane] < m.paneLen(m.Pane)-1 {
			m.Cursor[m.Pane]++
		}

	case key.Matches(msg, m.Keys.Refresh):
		if m.Disconnected || m.Refreshing {
			return m, nil
		}
		m.Refreshing = true
		m.Status = "Refreshing..."
		return m, m.refreshCmd()

	case key.Matches(msg, m.Keys.Toggle):
		return m, m.toggleCmd()

	case key.Matches(msg, m.Keys.Brighter):
		return m, m.luminanceCmd(luminanceStep)

	case key.Matches(msg, m.Keys.Dimmer):
		return m, m.luminanceCmd(-luminanceStep)
	}

	return m, nil
}

// reload re-reads the bridge cache and keeps both cursors in range.
func (m *Model) reload() {
	m.Groups = m.bridge.Groups()
	m.Lights = m.bridge.Lights()
	for _, p := range []Pane{PaneGroups, PaneLights} {
		n := m.paneLen(p)
		if m.Cursor[p] >= n {
			m.Cursor[p] = max(n-1, 0)
		}
	}
}

func (m Model) paneLen(p Pane) int {
	if p == PaneGroups {
		return len(m.Groups)
	}
	return len(m.Lights)
}

// selection describes the highlighted entry as a command target.
type selection struct {
	target    protocol.Target
	name      string
	on        bool
	luminance uint8
}

func (m Model) selected() (selection, bool) {
	i := m.Cursor[m.Pane]
	if m.Pane == PaneLights {
		if i >= len(m.Lights) {
			return selection{}, false
		}
		l := m.Lights[i]
		return selection{target: l.Target(), name: displayName(l.Name, protocol.FormatAddress(l.Address)), on: l.On, luminance: l.Luminance}, true
	}

	if i >= len(m.Groups) {
		return selection{}, false
	}
	g := m.Groups[i]
	sel := selection{target: protocol.GroupTarget(g.ID), name: displayName(g.Name, fmt.Sprintf("group %d", g.ID))}
	for _, l := range m.Lights {
		if !g.HasMember(l.Address) {
			continue
		}
		sel.on = sel.on || l.On
		if l.Luminance > sel.luminance {
			sel.luminance = l.Luminance
		}
	}
	return sel, true
}

func (m Model) toggleCmd() tea.Cmd {
	sel, ok := m.selected()
	if !ok || m.Disconnected {
		return nil
	}
	b := m.bridge
	on := !sel.on
	return func() tea.Msg {
		err := b.SendOnOff(sel.target, on)
		logCommand("onoff", sel.target, err)
		return commandDoneMsg{status: fmt.Sprintf("%s switched %s", sel.name, onOff(on)), err: err}
	}
}

func (m Model) luminanceCmd(delta int) tea.Cmd {
	sel, ok := m.selected()
	if !ok || m.Disconnected {
		return nil
	}
	level := stepLuminance(sel.luminance, delta)
	b := m.bridge
	fade := m.opts.Fade
	return func() tea.Msg {
		err := b.SendLuminance(sel.target, level, fade)
		logCommand("luminance", sel.target, err)
		return commandDoneMsg{status: fmt.Sprintf("%s luminance %d%%", sel.name, level), err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	b := m.bridge
	timeout := m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return refreshDoneMsg{err: b.Refresh(ctx)}
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	done := m.bridge.Done()
	return func() tea.Msg {
		select {
		case <-updates:
			return cacheUpdatedMsg{}
		case <-done:
			return nil
		}
	}
}

func (m Model) waitForDisconnect() tea.Cmd {
	done := m.bridge.Done()
	return func() tea.Msg {
		<-done
		return disconnectedMsg{}
	}
}

// stepLuminance moves level by delta to the next multiple of the step,
// staying within the dashboard's usable range.
func stepLuminance(level uint8, delta int) uint8 {
	cur := int(level)
	var next int
	if delta > 0 {
		next = (cur/luminanceStep)*luminanceStep + delta
	} else {
		next = ((cur+luminanceStep-1)/luminanceStep)*luminanceStep + delta
	}
	return uint8(min(max(next, minLuminance), maxLuminance))
}

func logCommand(op string, target protocol.Target, err error) {
	if err == nil {
		logging.Debug("Dashboard command sent", zap.String("op", op), zap.Stringer("target", target))
		return
	}
	logging.Warn("Dashboard command failed", zap.String("op", op), zap.Stringer("target", target), zap.Error(err))
}

// errorText turns bridge errors into short status lines.
func errorText(err error) string {
	switch {
	case bridge.IsBusy(err):
		return "Bridge busy, try again"
	case bridge.IsTimeout(err):
		return "Bridge did not answer in time"
	case bridge.IsClosed(err), bridge.IsTransportError(err):
		return "Bridge connection lost"
	}
	return err.Error()
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, b Bridge, opts Options) error {
	m := New(b, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
