package relay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/muurk/lightify/internal/protocol"
)

// Availability payloads published to the status topic
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

const setSuffix = "set"

// Topics builds the topic tree of one bridge:
//
//	<prefix>/<bridge>/status
//	<prefix>/<bridge>/light/<address>        retained state
//	<prefix>/<bridge>/light/<address>/set    commands
//	<prefix>/<bridge>/group/<id>             retained state
//	<prefix>/<bridge>/group/<id>/set         commands
type Topics struct {
	Prefix string
	Bridge string
}

func (t Topics) base() string {
	return t.Prefix + "/" + t.Bridge
}

// Status returns the availability topic.
func (t Topics) Status() string {
	return t.base() + "/status"
}

// LightState returns the state topic of one light.
func (t Topics) LightState(address uint64) string {
	return fmt.Sprintf("%s/light/%s", t.base(), addressSegment(address))
}

// GroupState returns the state topic of one group.
func (t Topics) GroupState(id uint16) string {
	return fmt.Sprintf("%s/group/%d", t.base(), id)
}

// LightCommands matches every light command topic.
func (t Topics) LightCommands() string {
	return t.base() + "/light/+/" + setSuffix
}

// GroupCommands matches every group command topic.
func (t Topics) GroupCommands() string {
	return t.base() + "/group/+/" + setSuffix
}

// ParseCommandTopic extracts the target of a command topic.
func (t Topics) ParseCommandTopic(topic string) (protocol.Target, error) {
	rest, ok := strings.CutPrefix(topic, t.base()+"/")
	if !ok {
		return protocol.Target{}, fmt.Errorf("%w: topic %q outside %s", protocol.ErrInvalidTarget, topic, t.base())
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != setSuffix {
		return protocol.Target{}, fmt.Errorf("%w: %q is not a command topic", protocol.ErrInvalidTarget, topic)
	}

	switch parts[0] {
	case "light":
		address, err := strconv.ParseUint(parts[1], 16, 64)
		if err != nil {
			return protocol.Target{}, fmt.Errorf("%w: light %q: %v", protocol.ErrInvalidTarget, parts[1], err)
		}
		return protocol.DeviceTarget(address), nil
	case "group":
		id, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			return protocol.Target{}, fmt.Errorf("%w: group %q: %v", protocol.ErrInvalidTarget, parts[1], err)
		}
		return protocol.GroupTarget(uint16(id)), nil
	default:
		return protocol.Target{}, fmt.Errorf("%w: unknown entity %q", protocol.ErrInvalidTarget, parts[0])
	}
}

// addressSegment renders an address as 16 hex digits; colons are avoided
// in topic levels.
func addressSegment(address uint64) string {
	return fmt.Sprintf("%016x", address)
}
