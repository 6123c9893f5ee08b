package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

const (
	kitchenLamp = uint64(0x84182600000B2C1D)
	hallLamp    = uint64(0x84182600000B2C1E)
)

// fakeBridge is an in-memory Bridge backed by a real store.
type fakeBridge struct {
	mu        sync.Mutex
	cache     *store.Store
	listeners map[int]func(store.Update)
	nextID    int
	calls     []string
	refreshes int
	refresh   func(b *fakeBridge) error
	done      chan struct{}
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		cache:     store.New(),
		listeners: make(map[int]func(store.Update)),
		done:      make(chan struct{}),
		refresh:   func(*fakeBridge) error { return nil },
	}
}

// seed fills the cache with one group holding two lights.
func (b *fakeBridge) seed() {
	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupList(&protocol.GroupListResponse{Groups: []protocol.GroupEntry{{ID: 3, Name: "Kitchen"}}})
	})
	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupInfo(&protocol.GroupInfoResponse{ID: 3, Name: "Kitchen", Members: []protocol.GroupMember{
			{Address: kitchenLamp}, {Address: hallLamp},
		}})
	})
	b.apply(func(s *store.Store) store.Update {
		return s.ApplyAllLightsStatus(&protocol.AllLightsStatusResponse{Lights: []protocol.LightStatus{
			{Address: kitchenLamp, Name: "Kitchen Lamp", LightState: protocol.LightState{On: true, Luminance: 80}},
			{Address: hallLamp, Name: "Hall Lamp"},
		}})
	})
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

func (b *fakeBridge) record(call string, op protocol.Opcode, target protocol.Target, mutate func(*store.Light)) error {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
	b.apply(func(s *store.Store) store.Update { return s.ApplyCommand(op, target, mutate) })
	return nil
}

func (b *fakeBridge) SendOnOff(target protocol.Target, on bool) error {
	return b.record(fmt.Sprintf("onoff %s %t", target, on), protocol.OpOnOff, target, func(l *store.Light) { l.On = on })
}

func (b *fakeBridge) SendLuminance(target protocol.Target, luminance uint8, fade uint16) error {
	return b.record(fmt.Sprintf("luminance %s %d %d", target, luminance, fade), protocol.OpLuminance, target,
		func(l *store.Light) { l.Luminance = luminance })
}

func (b *fakeBridge) SendTemperature(target protocol.Target, kelvin uint16, fade uint16) error {
	return b.record(fmt.Sprintf("temperature %s %d %d", target, kelvin, fade), protocol.OpTemperature, target,
		func(l *store.Light) { l.Temperature = kelvin })
}

func (b *fakeBridge) SendColour(target protocol.Target, r, g, bl uint8, fade uint16) error {
	return b.record(fmt.Sprintf("colour %s %d,%d,%d %d", target, r, g, bl, fade), protocol.OpColour, target,
		func(l *store.Light) { l.R, l.G, l.B = r, g, bl })
}

func (b *fakeBridge) Refresh(context.Context) error {
	b.mu.Lock()
	b.refreshes++
	b.mu.Unlock()
	return b.refresh(b)
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
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *fakeBridge) Done() <-chan struct{} { return b.done }

func (b *fakeBridge) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBridge) Refreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

// fakePublisher records retained publishes and subscriptions.
type fakePublisher struct {
	mu       sync.Mutex
	retained map[string][]byte
	handlers map[string]MessageHandler
	failSub  error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{retained: make(map[string][]byte), handlers: make(map[string]MessageHandler)}
}

func (p *fakePublisher) Publish(topic string, payload []byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if retained {
		p.retained[topic] = payload
	}
	return nil
}

func (p *fakePublisher) Subscribe(topic string, handler MessageHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSub != nil {
		return p.failSub
	}
	p.handlers[topic] = handler
	return nil
}

func (p *fakePublisher) payload(topic string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, ok := p.retained[topic]
	return payload, ok
}

func (p *fakePublisher) handler(topic string) MessageHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handlers[topic]
}

var testTopics = Topics{Prefix: "lightify", Bridge: "home"}

func startRelay(t *testing.T, b *fakeBridge, p *fakePublisher, poll time.Duration) (context.CancelFunc, <-chan error) {
	t.Helper()
	r := New(b, p, Options{Topics: testTopics, PollInterval: poll, DefaultFade: 5, Logger: zaptest.NewLogger(t)})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func lightStateOf(t *testing.T, p *fakePublisher, address uint64) (LightState, bool) {
	payload, ok := p.payload(testTopics.LightState(address))
	if !ok {
		return LightState{}, false
	}
	var state LightState
	require.NoError(t, json.Unmarshal(payload, &state))
	return state, true
}

func TestRelay_PublishesCacheAfterRefresh(t *testing.T) {
	b := newFakeBridge()
	b.refresh = func(b *fakeBridge) error {
		b.seed()
		return nil
	}
	p := newFakePublisher()
	startRelay(t, b, p, 0)

	require.Eventually(t, func() bool {
		_, ok := p.payload(testTopics.GroupState(3))
		return ok
	}, time.Second, 5*time.Millisecond)

	state, ok := lightStateOf(t, p, kitchenLamp)
	require.True(t, ok)
	assert.Equal(t, "ON", state.State)
	assert.Equal(t, uint8(80), state.Brightness)
	assert.Equal(t, "Kitchen Lamp", state.Name)

	payload, _ := p.payload(testTopics.GroupState(3))
	var group GroupState
	require.NoError(t, json.Unmarshal(payload, &group))
	assert.Equal(t, "Kitchen", group.Name)
	assert.Equal(t, "ON", group.State)
	assert.Len(t, group.Members, 2)
}

func TestRelay_SubscribesToCommandTopics(t *testing.T) {
	b := newFakeBridge()
	p := newFakePublisher()
	startRelay(t, b, p, 0)

	require.Eventually(t, func() bool {
		return p.handler(testTopics.LightCommands()) != nil && p.handler(testTopics.GroupCommands()) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestRelay_AppliesLightCommand(t *testing.T) {
	b := newFakeBridge()
	b.seed()
	p := newFakePublisher()
	startRelay(t, b, p, 0)

	var handler MessageHandler
	require.Eventually(t, func() bool {
		handler = p.handler(testTopics.LightCommands())
		return handler != nil
	}, time.Second, 5*time.Millisecond)

	topic := testTopics.LightState(hallLamp) + "/set"
	require.NoError(t, handler(topic, []byte(`{"state":"ON","brightness":40}`)))

	assert.Equal(t, []string{
		"onoff light:84:18:26:00:00:0b:2c:1e true",
		"luminance light:84:18:26:00:00:0b:2c:1e 40 5",
	}, b.Calls())

	require.Eventually(t, func() bool {
		state, ok := lightStateOf(t, p, hallLamp)
		return ok && state.State == "ON" && state.Brightness == 40
	}, time.Second, 5*time.Millisecond)
}

func TestRelay_AppliesGroupCommand(t *testing.T) {
	b := newFakeBridge()
	b.seed()
	p := newFakePublisher()
	startRelay(t, b, p, 0)

	var handler MessageHandler
	require.Eventually(t, func() bool {
		handler = p.handler(testTopics.GroupCommands())
		return handler != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, handler("lightify/home/group/3/set", []byte(`{"state":"OFF"}`)))
	assert.Equal(t, []string{"onoff group:3 false"}, b.Calls())

	require.Eventually(t, func() bool {
		payload, ok := p.payload(testTopics.GroupState(3))
		if !ok {
			return false
		}
		var group GroupState
		return json.Unmarshal(payload, &group) == nil && group.State == "OFF"
	}, time.Second, 5*time.Millisecond)
}

func TestRelay_RejectsBadCommands(t *testing.T) {
	b := newFakeBridge()
	p := newFakePublisher()
	r := New(b, p, Options{Topics: testTopics, Logger: zaptest.NewLogger(t)})

	err := r.handleCommand("lightify/home/light/zz/set", []byte(`{"state":"ON"}`))
	assert.ErrorIs(t, err, protocol.ErrInvalidTarget)

	err = r.handleCommand("lightify/home/group/3/set", []byte(`{"state":"DIM"}`))
	assert.ErrorIs(t, err, ErrInvalidCommand)

	assert.Empty(t, b.Calls())
}

func TestRelay_RemovesDroppedGroup(t *testing.T) {
	b := newFakeBridge()
	b.seed()
	p := newFakePublisher()
	startRelay(t, b, p, 0)

	require.Eventually(t, func() bool {
		payload, ok := p.payload(testTopics.GroupState(3))
		return ok && len(payload) > 0
	}, time.Second, 5*time.Millisecond)

	b.apply(func(s *store.Store) store.Update {
		return s.ApplyGroupList(&protocol.GroupListResponse{})
	})

	require.Eventually(t, func() bool {
		payload, ok := p.payload(testTopics.GroupState(3))
		return ok && len(payload) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRelay_PollsOnInterval(t *testing.T) {
	b := newFakeBridge()
	p := newFakePublisher()
	startRelay(t, b, p, 10*time.Millisecond)

	require.Eventually(t, func() bool { return b.Refreshes() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestRelay_StopsWhenBridgeDisconnects(t *testing.T) {
	b := newFakeBridge()
	p := newFakePublisher()
	_, errCh := startRelay(t, b, p, 0)

	close(b.done)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrBridgeDisconnected)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_StopsOnContextCancel(t *testing.T) {
	b := newFakeBridge()
	p := newFakePublisher()
	cancel, errCh := startRelay(t, b, p, 0)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_SubscribeFailure(t *testing.T) {
	b := newFakeBridge()
	p := newFakePublisher()
	p.failSub = errors.New("broker said no")

	r := New(b, p, Options{Topics: testTopics, Logger: zaptest.NewLogger(t)})
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker said no")
}

func TestRelay_OverflowRepublishes(t *testing.T) {
	b := newFakeBridge()
	b.seed()
	p := newFakePublisher()
	r := New(b, p, Options{Topics: testTopics, Logger: zaptest.NewLogger(t)})

	for i := 0; i < updateQueueSize+1; i++ {
		r.enqueue(store.Update{Lights: []uint64{kitchenLamp}})
	}
	assert.True(t, r.overflow.Load())
}
