package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lightify/internal/bridge"
	"github.com/muurk/lightify/internal/logging"
	"github.com/muurk/lightify/internal/store"
)

// ErrBridgeDisconnected is returned by Run when the bridge connection ends.
var ErrBridgeDisconnected = errors.New("relay: bridge disconnected")

const updateQueueSize = 64

// Bridge is the part of *bridge.Bridge the relay drives.
type Bridge interface {
	Sender
	Refresh(ctx context.Context) error
	Groups() []store.Group
	Lights() []store.Light
	OnUpdate(fn func(store.Update)) func()
	Done() <-chan struct{}
}

// Publisher is the part of *Client the relay publishes through.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
}

// Options configures a Relay.
type Options struct {
	Topics       Topics
	PollInterval time.Duration // zero disables polling after the first refresh
	DefaultFade  uint16
	Logger       *zap.Logger
}

// Relay mirrors a bridge's cache onto MQTT and applies commands received
// on MQTT to the bridge.
type Relay struct {
	bridge Bridge
	pub    Publisher
	opts   Options
	log    *zap.Logger

	updates  chan store.Update
	overflow atomic.Bool
}

// New creates a relay between b and pub.
func New(b Bridge, pub Publisher, opts Options) *Relay {
	if opts.Logger == nil {
		opts.Logger = logging.Named("relay")
	}
	return &Relay{
		bridge:  b,
		pub:     pub,
		opts:    opts,
		log:     opts.Logger,
		updates: make(chan store.Update, updateQueueSize),
	}
}

// Run subscribes to command topics, refreshes the bridge every poll interval
// and publishes every cache change. It returns nil when ctx ends and
// ErrBridgeDisconnected when the bridge connection does.
func (r *Relay) Run(ctx context.Context) error {
	for _, topic := range []string{r.opts.Topics.LightCommands(), r.opts.Topics.GroupCommands()} {
		if err := r.pub.Subscribe(topic, r.handleCommand); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	unsubscribe := r.bridge.OnUpdate(r.enqueue)
	defer unsubscribe()

	r.refresh(ctx)
	r.publishAll()

	var tick <-chan time.Time
	if r.opts.PollInterval > 0 {
		ticker := time.NewTicker(r.opts.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.bridge.Done():
			return ErrBridgeDisconnected
		case update := <-r.updates:
			r.publishUpdate(update)
		case <-tick:
			r.refresh(ctx)
		}

		if r.overflow.Swap(false) {
			r.log.Warn("Update queue overflowed, republishing everything")
			r.publishAll()
		}
	}
}

// enqueue runs on the bridge's goroutines and must not block.
func (r *Relay) enqueue(update store.Update) {
	select {
	case r.updates <- update:
	default:
		r.overflow.Store(true)
	}
}

func (r *Relay) refresh(ctx context.Context) {
	if err := r.bridge.Refresh(ctx); err != nil {
		if bridge.IsBusy(err) {
			r.log.Debug("Skipping refresh, bridge busy")
			return
		}
		r.log.Warn("Bridge refresh failed", zap.Error(err))
	}
}

// publishUpdate publishes the entities an update touched. Groups are
// republished whenever lights change, since their state derives from members.
func (r *Relay) publishUpdate(update store.Update) {
	if update.Cleared {
		r.publishAll()
		return
	}

	lights := lightIndex(r.bridge.Lights())
	for _, address := range update.Lights {
		if l, ok := lights[address]; ok {
			r.publish(r.opts.Topics.LightState(address), NewLightState(l))
		}
	}

	groups := r.bridge.Groups()
	if len(update.Lights) > 0 {
		for _, g := range groups {
			r.publish(r.opts.Topics.GroupState(g.ID), NewGroupState(g, lights))
		}
		return
	}

	byID := make(map[uint16]store.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}
	for _, id := range update.Groups {
		g, ok := byID[id]
		if !ok {
			// Empty retained payload removes a dropped group from the broker.
			r.publishRaw(r.opts.Topics.GroupState(id), nil)
			continue
		}
		r.publish(r.opts.Topics.GroupState(id), NewGroupState(g, lights))
	}
}

func (r *Relay) publishAll() {
	lights := lightIndex(r.bridge.Lights())
	for address, l := range lights {
		r.publish(r.opts.Topics.LightState(address), NewLightState(l))
	}
	for _, g := range r.bridge.Groups() {
		r.publish(r.opts.Topics.GroupState(g.ID), NewGroupState(g, lights))
	}
}

func (r *Relay) publish(topic string, state any) {
	payload, err := json.Marshal(state)
	if err != nil {
		r.log.Error("Failed to encode state", zap.String("topic", topic), zap.Error(err))
		return
	}
	r.publishRaw(topic, payload)
}

func (r *Relay) publishRaw(topic string, payload []byte) {
	if err := r.pub.Publish(topic, payload, true); err != nil {
		r.log.Warn("Publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// handleCommand applies one command message to the bridge.
func (r *Relay) handleCommand(topic string, payload []byte) error {
	target, err := r.opts.Topics.ParseCommandTopic(topic)
	if err != nil {
		return err
	}
	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}

	r.log.Info("Applying command", zap.String("target", target.String()), zap.ByteString("payload", payload))
	return cmd.Apply(r.bridge, target, r.opts.DefaultFade)
}

func lightIndex(lights []store.Light) map[uint64]store.Light {
	index := make(map[uint64]store.Light, len(lights))
	for _, l := range lights {
		index[l.Address] = l
	}
	return index
}
