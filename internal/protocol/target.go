package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTarget indicates a target that cannot be addressed or parsed.
var ErrInvalidTarget = errors.New("invalid target")

// TargetKind selects the addressing mode of an outbound payload.
type TargetKind uint8

const (
	TargetGlobal TargetKind = iota
	TargetGroup
	TargetDevice
)

// Addressing flags (payload byte 0)
const (
	FlagDevice = 0x00
	FlagGroup  = 0x02 // also used for global queries
)

// AddressSize is the size of the addressing block for group and device targets.
const AddressSize = 8

func (k TargetKind) String() string {
	switch k {
	case TargetGlobal:
		return "global"
	case TargetGroup:
		return "group"
	case TargetDevice:
		return "device"
	default:
		return fmt.Sprintf("TargetKind(%d)", uint8(k))
	}
}

// Target addresses a command: the whole bridge, one group, or one device.
// Only the field matching Kind is meaningful.
type Target struct {
	Kind    TargetKind
	GroupID uint16
	Address uint64
}

// GlobalTarget addresses the bridge itself.
func GlobalTarget() Target { return Target{Kind: TargetGlobal} }

// GroupTarget addresses every light in a bridge-defined group.
func GroupTarget(id uint16) Target { return Target{Kind: TargetGroup, GroupID: id} }

// DeviceTarget addresses a single light by its 64-bit device address.
func DeviceTarget(address uint64) Target { return Target{Kind: TargetDevice, Address: address} }

// Flag returns the addressing flag written to payload byte 0.
func (t Target) Flag() byte {
	if t.Kind == TargetDevice {
		return FlagDevice
	}
	return FlagGroup
}

// AddressBlock returns the addressing bytes that follow the common header:
// none for global, the LE group id plus six zero bytes for a group, and the
// LE device address for a device.
func (t Target) AddressBlock() []byte {
	switch t.Kind {
	case TargetGroup:
		block := make([]byte, AddressSize)
		binary.LittleEndian.PutUint16(block[0:2], t.GroupID)
		return block
	case TargetDevice:
		block := make([]byte, AddressSize)
		binary.LittleEndian.PutUint64(block, t.Address)
		return block
	default:
		return nil
	}
}

// String renders the target in the form accepted by ParseTarget.
func (t Target) String() string {
	switch t.Kind {
	case TargetGroup:
		return fmt.Sprintf("group:%d", t.GroupID)
	case TargetDevice:
		return "light:" + FormatAddress(t.Address)
	default:
		return "global"
	}
}

// FormatAddress renders a device address as colon-separated hex octets,
// most significant first (the way the bridge app prints MAC-style ids).
func FormatAddress(address uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], address)
	parts := make([]string, len(b))
	for i, octet := range b {
		parts[i] = fmt.Sprintf("%02x", octet)
	}
	return strings.Join(parts, ":")
}

// ParseAddress accepts "84:18:26:00:00:0b:2c:1d", "0x8418260000...", or a
// bare decimal/hex integer.
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty address", ErrInvalidTarget)
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 8 {
			return 0, fmt.Errorf("%w: address %q must have 8 octets", ErrInvalidTarget, s)
		}
		var address uint64
		for _, part := range parts {
			octet, err := strconv.ParseUint(part, 16, 8)
			if err != nil {
				return 0, fmt.Errorf("%w: address %q: %v", ErrInvalidTarget, s, err)
			}
			address = address<<8 | octet
		}
		return address, nil
	}

	address, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: address %q: %v", ErrInvalidTarget, s, err)
	}
	return address, nil
}

// ParseTarget parses "group:<id>" or "light:<address>" ("device:" is an alias).
func ParseTarget(s string) (Target, error) {
	kind, value, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Target{}, fmt.Errorf("%w: %q (want group:<id> or light:<address>)", ErrInvalidTarget, s)
	}

	switch strings.ToLower(kind) {
	case "group":
		id, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return Target{}, fmt.Errorf("%w: group id %q: %v", ErrInvalidTarget, value, err)
		}
		return GroupTarget(uint16(id)), nil
	case "light", "device":
		address, err := ParseAddress(value)
		if err != nil {
			return Target{}, err
		}
		return DeviceTarget(address), nil
	default:
		return Target{}, fmt.Errorf("%w: unknown target kind %q", ErrInvalidTarget, kind)
	}
}
