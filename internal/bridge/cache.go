package bridge

import (
	"fmt"
	"strings"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

// Groups returns a snapshot of the cached groups ordered by id.
func (b *Bridge) Groups() []store.Group {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Groups()
}

// Lights returns a snapshot of the cached lights ordered by address.
func (b *Bridge) Lights() []store.Light {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Lights()
}

// Group returns the cached group with the given id.
func (b *Bridge) Group(id uint16) (store.Group, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Group(id)
}

// Light returns the cached light at address.
func (b *Bridge) Light(address uint64) (store.Light, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Light(address)
}

// GroupByName returns the cached group with the given name.
func (b *Bridge) GroupByName(name string) (store.Group, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.GroupByName(name)
}

// LightByName returns the cached light with the given name.
func (b *Bridge) LightByName(name string) (store.Light, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.LightByName(name)
}

// ClearCache forgets every cached group and light.
func (b *Bridge) ClearCache() {
	b.mu.Lock()
	update := b.cache.Clear()
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	notify(listeners, update)
}

// ResolveTarget parses "group:<id>" or "light:<address>", falling back to a
// cached group name and then a cached light name.
func (b *Bridge) ResolveTarget(s string) (protocol.Target, error) {
	if target, err := protocol.ParseTarget(s); err == nil {
		return target, nil
	}

	name := strings.TrimSpace(s)
	if g, ok := b.GroupByName(name); ok {
		return protocol.GroupTarget(g.ID), nil
	}
	if l, ok := b.LightByName(name); ok {
		return l.Target(), nil
	}
	return protocol.Target{}, fmt.Errorf("%w: no group or light named %q", protocol.ErrInvalidTarget, name)
}

// OnUpdate registers fn to be told which entities changed after every applied
// response, command, or cache clear. fn runs outside the cache lock, on the
// reader goroutine for responses; it must not block or issue requests. The
// returned function unregisters fn.
func (b *Bridge) OnUpdate(fn func(store.Update)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// snapshotListeners copies the listener set. Callers hold mu.
func (b *Bridge) snapshotListeners() []func(store.Update) {
	listeners := make([]func(store.Update), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(store.Update), update store.Update) {
	if update.Empty() {
		return
	}
	for _, fn := range listeners {
		fn(update)
	}
}
