package bridge

import (
	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

// SendOnOff switches a group or light on or off.
func (b *Bridge) SendOnOff(target protocol.Target, on bool) error {
	return b.send(protocol.OpOnOff, target,
		func(seq uint8) ([]byte, error) { return protocol.BuildOnOff(seq, target, on) },
		func(l *store.Light) { l.On = on },
	)
}

// SendLuminance sets luminance (0-100) over fade deciseconds.
func (b *Bridge) SendLuminance(target protocol.Target, luminance uint8, fade uint16) error {
	return b.send(protocol.OpLuminance, target,
		func(seq uint8) ([]byte, error) { return protocol.BuildLuminance(seq, target, luminance, fade) },
		func(l *store.Light) { l.Luminance = luminance },
	)
}

// SendTemperature sets colour temperature in kelvin over fade deciseconds.
func (b *Bridge) SendTemperature(target protocol.Target, kelvin uint16, fade uint16) error {
	return b.send(protocol.OpTemperature, target,
		func(seq uint8) ([]byte, error) { return protocol.BuildTemperature(seq, target, kelvin, fade) },
		func(l *store.Light) { l.Temperature = kelvin },
	)
}

// SendColour sets an RGB colour over fade deciseconds.
func (b *Bridge) SendColour(target protocol.Target, r, g, bl uint8, fade uint16) error {
	return b.send(protocol.OpColour, target,
		func(seq uint8) ([]byte, error) { return protocol.BuildColour(seq, target, r, g, bl, fade) },
		func(l *store.Light) { l.R, l.G, l.B = r, g, bl },
	)
}

// send writes a fire-and-forget command. Commands are not gated by the
// outstanding query and await no response; only argument and transport
// failures are reported. On success the cache records the expected effect.
func (b *Bridge) send(op protocol.Opcode, target protocol.Target, build func(seq uint8) ([]byte, error), mutate func(*store.Light)) error {
	name := op.String()

	b.mu.Lock()
	if b.state == StateDisconnected {
		err := b.closedError(name)
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	payload, err := build(b.seq.Next())
	if err != nil {
		return newError(ErrTypeInvalidArgument, name, "cannot encode command for "+target.String(), err)
	}

	if err := b.write(name, payload); err != nil {
		return err
	}

	b.mu.Lock()
	update := b.cache.ApplyCommand(op, target, mutate)
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	notify(listeners, update)
	return nil
}
