package tui

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

const (
	deskLamp  = uint64(0x84182600000B2C1D)
	floorLamp = uint64(0x84182600000B2C1E)
)

// fakeBridge is an in-memory Bridge backed by a real store.
type fakeBridge struct {
	mu        sync.Mutex
	cache     *store.Store
	listeners map[int]func(store.Update)
	nextID    int
	err       error
	sent      []string
	refreshes int
	done      chan struct{}
}

func newFakeBridge() *fakeBridge {
	b := &fakeBridge{
		cache:     store.New(),
		listeners: make(map[int]func(store.Update)),
		done:      make(chan struct{}),
	}
	b.cache.ApplyGroupList(&protocol.GroupListResponse{Groups: []protocol.GroupEntry{{ID: 3, Name: "Office"}}})
	b.cache.ApplyGroupInfo(&protocol.GroupInfoResponse{ID: 3, Name: "Office", Members: []protocol.GroupMember{{Address: deskLamp}}})
	b.cache.ApplyAllLightsStatus(&protocol.AllLightsStatusResponse{Lights: []protocol.LightStatus{
		{Address: deskLamp, Name: "Desk", LightState: protocol.LightState{Luminance: 20, Temperature: 2700}},
		{Address: floorLamp, Name: "Floor", LightState: protocol.LightState{On: true, Luminance: 100}},
	}})
	return b
}

func (b *fakeBridge) apply(fn func(*store.Store) store.Update) {
	b.mu.Lock()
	update := fn(b.cache)
	listeners := make([]func(store.Update), 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, l := range listeners {
		l(update)
	}
}

func (b *fakeBridge) send(call string, op protocol.Opcode, target protocol.Target, mutate func(*store.Light)) error {
	b.mu.Lock()
	if b.err != nil {
		defer b.mu.Unlock()
		return b.err
	}
	b.sent = append(b.sent, call)
	b.mu.Unlock()

	b.apply(func(s *store.Store) store.Update { return s.ApplyCommand(op, target, mutate) })
	return nil
}

func (b *fakeBridge) SendOnOff(target protocol.Target, on bool) error {
	call := "off " + target.String()
	if on {
		call = "on " + target.String()
	}
	return b.send(call, protocol.OpOnOff, target, func(l *store.Light) { l.On = on })
}

func (b *fakeBridge) SendLuminance(target protocol.Target, luminance uint8, fade uint16) error {
	call := "luminance " + target.String() + " " + strconv.Itoa(int(luminance)) + " " + strconv.Itoa(int(fade))
	return b.send(call, protocol.OpLuminance, target, func(l *store.Light) { l.Luminance = luminance })
}

func (b *fakeBridge) SendTemperature(target protocol.Target, kelvin uint16, _ uint16) error {
	return b.send("temperature "+target.String(), protocol.OpTemperature, target, func(l *store.Light) { l.Temperature = kelvin })
}

func (b *fakeBridge) SendColour(target protocol.Target, r, g, bl uint8, _ uint16) error {
	return b.send("colour "+target.String(), protocol.OpColour, target, func(l *store.Light) { l.R, l.G, l.B = r, g, bl })
}

func (b *fakeBridge) Refresh(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshes++
	return b.err
}

func (b *fakeBridge) Groups() []store.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Groups()
}

func (b *fakeBridge) Lights() []store.Light {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Lights()
}

func (b *fakeBridge) OnUpdate(fn func(store.Update)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *fakeBridge) Done() <-chan struct{} { return b.done }

func (b *fakeBridge) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sent...)
}

func (b *fakeBridge) listenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press feeds msg to m and, when the model answers with a command, runs it
// and feeds its result back once.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if out := cmd(); out != nil {
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

// deliver feeds msg to m without running the command it returns.
func deliver(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func newTestModel(t *testing.T) (Model, *fakeBridge) {
	t.Helper()
	b := newFakeBridge()
	m := New(b, Options{Name: "10.0.0.5:4000", Fade: 5})
	t.Cleanup(m.Close)
	return m, b
}

func TestNewLoadsCache(t *testing.T) {
	m, b := newTestModel(t)

	require.Len(t, m.Groups, 1)
	require.Len(t, m.Lights, 2)
	assert.Equal(t, 1, b.listenerCount())

	view := m.View()
	assert.Contains(t, view, "Office")
	assert.Contains(t, view, "Desk")
	assert.Contains(t, view, "Floor")
	assert.Contains(t, view, "10.0.0.5:4000")
}

func TestCloseUnsubscribes(t *testing.T) {
	b := newFakeBridge()
	m := New(b, Options{})
	require.Equal(t, 1, b.listenerCount())

	m.Close()
	assert.Equal(t, 0, b.listenerCount())
}

func TestNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, PaneGroups, m.Pane)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.Cursor[PaneGroups], "cursor stays on the only group")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PaneLights, m.Pane)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.Cursor[PaneLights])

	m = press(t, m, runeKey('k'))
	assert.Equal(t, 0, m.Cursor[PaneLights])

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PaneGroups, m.Pane)
}

func TestToggleGroup(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"on group:3"}, b.calls())
	assert.Equal(t, "Office switched on", m.Status)
	assert.NoError(t, m.Err)

	desk := m.Lights[0]
	assert.Equal(t, deskLamp, desk.Address)
	assert.True(t, desk.On, "member light reloaded from cache")

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"on group:3", "off group:3"}, b.calls())
	assert.Equal(t, "Office switched off", m.Status)
}

func TestToggleLight(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"off light:84:18:26:00:00:0b:2c:1e"}, b.calls())
	assert.Equal(t, "Floor switched off", m.Status)
	assert.False(t, m.Lights[1].On)
}

func TestLuminanceSteps(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, runeKey('+'))
	assert.Equal(t, "Desk luminance 30%", m.Status)
	assert.Equal(t, uint8(30), m.Lights[0].Luminance)

	m = press(t, m, runeKey('-'))
	m = press(t, m, runeKey('-'))
	m = press(t, m, runeKey('-'))

	assert.Equal(t, []string{
		"luminance light:84:18:26:00:00:0b:2c:1d 30 5",
		"luminance light:84:18:26:00:00:0b:2c:1d 20 5",
		"luminance light:84:18:26:00:00:0b:2c:1d 10 5",
		"luminance light:84:18:26:00:00:0b:2c:1d 10 5",
	}, b.calls())
}

func TestGroupLuminanceUsesBrightestMember(t *testing.T) {
	m, b := newTestModel(t)
	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupInfo(&protocol.GroupInfoResponse{ID: 3, Name: "Office", Members: []protocol.GroupMember{{Address: deskLamp}, {Address: floorLamp}}})
	})
	m = deliver(m, cacheUpdatedMsg{})

	m = press(t, m, runeKey('-'))
	assert.Equal(t, []string{"luminance group:3 90 5"}, b.calls())
	assert.Equal(t, "Office luminance 90%", m.Status)
}

func TestStepLuminance(t *testing.T) {
	tests := []struct {
		level uint8
		delta int
		want  uint8
	}{
		{20, 10, 30},
		{25, 10, 30},
		{25, -10, 20},
		{20, -10, 10},
		{10, -10, 10},
		{0, -10, 10},
		{0, 10, 10},
		{95, 10, 100},
		{100, 10, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stepLuminance(tt.level, tt.delta), "level %d delta %d", tt.level, tt.delta)
	}
}

func TestCommandError(t *testing.T) {
	m, b := newTestModel(t)
	b.err = errors.New("boom")

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.Error(t, m.Err)
	assert.Empty(t, m.Status)
	assert.Contains(t, m.View(), "boom")
}

func TestRefresh(t *testing.T) {
	m, b := newTestModel(t)

	next, cmd := m.Update(runeKey('r'))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.Refreshing)

	// A second press while refreshing is ignored
	_, again := m.Update(runeKey('r'))
	assert.Nil(t, again)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.Refreshing)
	assert.Equal(t, 1, b.refreshes)
	assert.Equal(t, "Refreshed 1 groups, 2 lights", m.Status)
}

func TestCacheUpdateRedraws(t *testing.T) {
	m, b := newTestModel(t)
	wait := m.waitForUpdate()

	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupList(&protocol.GroupListResponse{Groups: []protocol.GroupEntry{{ID: 3, Name: "Office"}, {ID: 4, Name: "Hall"}}})
	})

	msg := wait()
	require.IsType(t, cacheUpdatedMsg{}, msg)

	next, cmd := m.Update(msg)
	m = next.(Model)
	assert.Len(t, m.Groups, 2)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Contains(t, m.View(), "Hall")
}

func TestCursorClampedWhenGroupsDropped(t *testing.T) {
	m, b := newTestModel(t)
	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupList(&protocol.GroupListResponse{Groups: []protocol.GroupEntry{{ID: 3, Name: "Office"}, {ID: 4, Name: "Hall"}}})
	})
	m = deliver(m, cacheUpdatedMsg{})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.Cursor[PaneGroups])

	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupList(&protocol.GroupListResponse{Groups: []protocol.GroupEntry{{ID: 3, Name: "Office"}}})
	})
	m = deliver(m, cacheUpdatedMsg{})
	assert.Equal(t, 0, m.Cursor[PaneGroups])
}

func TestDisconnect(t *testing.T) {
	m, b := newTestModel(t)
	wait := m.waitForDisconnect()
	close(b.done)

	next, _ := m.Update(wait())
	m = next.(Model)
	assert.True(t, m.Disconnected)
	assert.Contains(t, m.View(), "connection lost")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.Nil(t, cmd, "no commands once disconnected")
	assert.Empty(t, b.calls())
}

func TestHelpModal(t *testing.T) {
	m, b := newTestModel(t)

	m = press(t, m, runeKey('?'))
	assert.True(t, m.ShowingHelp)
	assert.Contains(t, m.View(), "DASHBOARD HELP")

	// Any key closes help without acting
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.False(t, m.ShowingHelp)
	assert.Empty(t, b.calls())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t)

	m = deliver(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.Width)
	assert.Equal(t, 40, m.Height)
	assert.Contains(t, m.View(), "GROUPS (1)")
}
