package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
)

// Opcode selects the command or query a payload represents.
type Opcode byte

// Opcodes understood by the bridge
const (
	OpAllLightsStatus Opcode = 0x13 // light address, status and name for every light
	OpGroupList       Opcode = 0x1E // group id and name for every group
	OpGroupInfo       Opcode = 0x26 // group id, name and member addresses
	OpLuminance       Opcode = 0x31
	OpOnOff           Opcode = 0x32
	OpTemperature     Opcode = 0x33
	OpColour          Opcode = 0x36
	OpLightStatus     Opcode = 0x68 // status of one light
)

// Request header constants
const (
	RequestHeaderSize = 6
	headerMarker      = 0x07 // payload byte 4, constant in every request

	// MaxLuminance is the brightest luminance value, in percent.
	MaxLuminance = 100

	// whiteChannel is the fixed fourth colour byte of a COLOUR command.
	whiteChannel = 0xFF

	allLightsStatusFlag = 0x01
)

// ErrInvalidValue indicates a command argument outside its protocol range.
var ErrInvalidValue = errors.New("invalid value")

// String returns a human-readable opcode name
func (o Opcode) String() string {
	switch o {
	case OpAllLightsStatus:
		return "ALL_LIGHTS_STATUS"
	case OpGroupList:
		return "GROUP_LIST"
	case OpGroupInfo:
		return "GROUP_INFO"
	case OpLuminance:
		return "LUMINANCE"
	case OpOnOff:
		return "ONOFF"
	case OpTemperature:
		return "TEMPERATURE"
	case OpColour:
		return "COLOUR"
	case OpLightStatus:
		return "LIGHT_STATUS"
	default:
		return fmt.Sprintf("Opcode(0x%02x)", byte(o))
	}
}

// Sequencer hands out the per-connection packet sequence. It wraps at 256
// and is safe for concurrent use; the bridge only echoes it back.
type Sequencer struct {
	next atomic.Uint32
}

// Next returns the sequence for the next outbound payload.
func (s *Sequencer) Next() uint8 {
	return uint8(s.next.Add(1) - 1)
}

// BuildCommand assembles an outbound payload:
//
//	[0]     flag          0x02 group/global, 0x00 device
//	[1]     opcode
//	[2-3]   0x00 0x00
//	[4]     0x07
//	[5]     sequence
//	[6-13]  address       group id LE + 6 zero bytes, or device address LE (absent for global)
//	[..]    data          command specific
func BuildCommand(seq uint8, op Opcode, target Target, data []byte) []byte {
	address := target.AddressBlock()
	payload := make([]byte, 0, RequestHeaderSize+len(address)+len(data))

	payload = append(payload, target.Flag(), byte(op), 0x00, 0x00, headerMarker, seq)
	payload = append(payload, address...)
	payload = append(payload, data...)

	return payload
}

// BuildAllLightsStatusQuery asks for the status of every light.
func BuildAllLightsStatusQuery(seq uint8) []byte {
	return BuildCommand(seq, OpAllLightsStatus, GlobalTarget(), []byte{allLightsStatusFlag})
}

// BuildGroupListQuery asks for the id and name of every group.
func BuildGroupListQuery(seq uint8) []byte {
	return BuildCommand(seq, OpGroupList, GlobalTarget(), nil)
}

// BuildGroupInfoQuery asks for the name and members of one group.
func BuildGroupInfoQuery(seq uint8, groupID uint16) []byte {
	return BuildCommand(seq, OpGroupInfo, GroupTarget(groupID), nil)
}

// BuildLightStatusQuery asks for the status of one light.
func BuildLightStatusQuery(seq uint8, address uint64) []byte {
	return BuildCommand(seq, OpLightStatus, DeviceTarget(address), nil)
}

// BuildOnOff switches a group or light on or off.
func BuildOnOff(seq uint8, target Target, on bool) ([]byte, error) {
	if err := requireAddressed(target); err != nil {
		return nil, err
	}
	var value byte
	if on {
		value = 0x01
	}
	return BuildCommand(seq, OpOnOff, target, []byte{value}), nil
}

// BuildLuminance sets luminance (0-100) over fade deciseconds.
func BuildLuminance(seq uint8, target Target, luminance uint8, fade uint16) ([]byte, error) {
	if err := requireAddressed(target); err != nil {
		return nil, err
	}
	if luminance > MaxLuminance {
		return nil, fmt.Errorf("%w: luminance %d exceeds %d", ErrInvalidValue, luminance, MaxLuminance)
	}

	data := make([]byte, 3)
	data[0] = luminance
	binary.LittleEndian.PutUint16(data[1:3], fade)
	return BuildCommand(seq, OpLuminance, target, data), nil
}

// BuildTemperature sets colour temperature in kelvin over fade deciseconds.
func BuildTemperature(seq uint8, target Target, kelvin uint16, fade uint16) ([]byte, error) {
	if err := requireAddressed(target); err != nil {
		return nil, err
	}

	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:2], kelvin)
	binary.LittleEndian.PutUint16(data[2:4], fade)
	return BuildCommand(seq, OpTemperature, target, data), nil
}

// BuildColour sets an RGB colour over fade deciseconds.
func BuildColour(seq uint8, target Target, r, g, b uint8, fade uint16) ([]byte, error) {
	if err := requireAddressed(target); err != nil {
		return nil, err
	}

	data := make([]byte, 6)
	data[0], data[1], data[2], data[3] = r, g, b, whiteChannel
	binary.LittleEndian.PutUint16(data[4:6], fade)
	return BuildCommand(seq, OpColour, target, data), nil
}

// requireAddressed rejects the global target for per-light commands.
func requireAddressed(target Target) error {
	switch target.Kind {
	case TargetGroup, TargetDevice:
		return nil
	default:
		return fmt.Errorf("%w: %s commands need a group or device target", ErrInvalidTarget, target.Kind)
	}
}
