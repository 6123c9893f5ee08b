package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Response layout constants. Responses carry one status byte more than
// requests, so counts and ids start at offset 7.
const (
	ResponseHeaderSize = 7

	nameSize = 16

	groupListMinSize   = 9
	groupListEntrySize = 18

	groupInfoMinSize    = 26
	groupInfoMemberSize = 18
	groupInfoMemberPad  = groupInfoMemberSize - AddressSize

	allLightsMinSize   = 9
	allLightsEntrySize = 50

	lightStatusMinSize = 35
)

// Decode errors
var (
	// ErrMalformedPayload indicates a payload shorter than its declared or implied records.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnsupportedResponse indicates a response kind with no decoder.
	ErrUnsupportedResponse = errors.New("unsupported response kind")
)

// ResponseKind names the shape of an inbound payload. The protocol does not
// self-describe responses, so the kind always comes from the pending request.
type ResponseKind uint8

const (
	KindGroupList ResponseKind = iota + 1
	KindGroupInfo
	KindLightStatus
	KindAllLightsStatus
)

func (k ResponseKind) String() string {
	switch k {
	case KindGroupList:
		return "GroupList"
	case KindGroupInfo:
		return "GroupInfo"
	case KindLightStatus:
		return "LightStatus"
	case KindAllLightsStatus:
		return "AllLightsStatus"
	default:
		return fmt.Sprintf("ResponseKind(%d)", uint8(k))
	}
}

// Response is a decoded inbound payload.
type Response interface {
	Kind() ResponseKind
	String() string
}

// GroupEntry is one record of a GROUP_LIST response.
type GroupEntry struct {
	ID   uint16
	Name string
}

// GroupListResponse lists every group the bridge knows.
type GroupListResponse struct {
	Groups []GroupEntry
}

func (r *GroupListResponse) Kind() ResponseKind { return KindGroupList }

func (r *GroupListResponse) String() string {
	return fmt.Sprintf("GroupList{count=%d}", len(r.Groups))
}

// GroupMember is one member record of a GROUP_INFO response. Reserved holds
// the ten trailing bytes of the record, which carry no decoded meaning.
type GroupMember struct {
	Address  uint64
	Reserved [groupInfoMemberPad]byte
}

// GroupInfoResponse describes one group and its members.
type GroupInfoResponse struct {
	ID      uint16
	Name    string
	Members []GroupMember
}

func (r *GroupInfoResponse) Kind() ResponseKind { return KindGroupInfo }

func (r *GroupInfoResponse) String() string {
	return fmt.Sprintf("GroupInfo{id=%d, name=%q, members=%d}", r.ID, r.Name, len(r.Members))
}

// Addresses returns the member addresses in response order.
func (r *GroupInfoResponse) Addresses() []uint64 {
	addresses := make([]uint64, len(r.Members))
	for i, m := range r.Members {
		addresses[i] = m.Address
	}
	return addresses
}

// LightState is the status block shared by both status responses.
type LightState struct {
	On          bool
	Luminance   uint8
	Temperature uint16
	R, G, B     uint8
	Reserved    byte // byte following blue, undecoded
}

// LightStatus is one record of an ALL_LIGHTS_STATUS response.
type LightStatus struct {
	Address uint64
	Name    string
	LightState
}

// AllLightsStatusResponse carries the status of every light the bridge reports.
type AllLightsStatusResponse struct {
	Lights []LightStatus
}

func (r *AllLightsStatusResponse) Kind() ResponseKind { return KindAllLightsStatus }

func (r *AllLightsStatusResponse) String() string {
	return fmt.Sprintf("AllLightsStatus{count=%d}", len(r.Lights))
}

// LightStatusResponse carries the status of the single light that was queried.
// The payload has no address or name; the caller knows which light it asked for.
type LightStatusResponse struct {
	LightState
}

func (r *LightStatusResponse) Kind() ResponseKind { return KindLightStatus }

func (r *LightStatusResponse) String() string {
	return fmt.Sprintf("LightStatus{on=%v, luminance=%d, temperature=%d, rgb=%d/%d/%d}",
		r.On, r.Luminance, r.Temperature, r.R, r.G, r.B)
}

// ParseResponse decodes payload as the given kind.
func ParseResponse(kind ResponseKind, payload []byte) (Response, error) {
	switch kind {
	case KindGroupList:
		return ParseGroupList(payload)
	case KindGroupInfo:
		return ParseGroupInfo(payload)
	case KindAllLightsStatus:
		return ParseAllLightsStatus(payload)
	case KindLightStatus:
		return ParseLightStatus(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResponse, kind)
	}
}

// ParseGroupList decodes a GROUP_LIST response:
//
//	[7-8]   count         uint16 LE
//	[9..]   count × 18    id uint16 LE, name 16 bytes ASCII
func ParseGroupList(payload []byte) (*GroupListResponse, error) {
	if len(payload) < groupListMinSize {
		return nil, tooShort("group list", len(payload), groupListMinSize)
	}

	count := int(binary.LittleEndian.Uint16(payload[7:9]))
	if need := groupListMinSize + groupListEntrySize*count; len(payload) < need {
		return nil, truncated("group list", count, len(payload), need)
	}

	resp := &GroupListResponse{Groups: make([]GroupEntry, 0, count)}
	for i := 0; i < count; i++ {
		entry := payload[groupListMinSize+groupListEntrySize*i:]
		resp.Groups = append(resp.Groups, GroupEntry{
			ID:   binary.LittleEndian.Uint16(entry[0:2]),
			Name: decodeName(entry[2 : 2+nameSize]),
		})
	}

	return resp, nil
}

// ParseGroupInfo decodes a GROUP_INFO response:
//
//	[7-8]   id            uint16 LE
//	[9-24]  name          16 bytes ASCII
//	[25]    count         uint8
//	[26..]  count × 18    address uint64 LE, 10 reserved bytes
func ParseGroupInfo(payload []byte) (*GroupInfoResponse, error) {
	if len(payload) < groupInfoMinSize {
		return nil, tooShort("group info", len(payload), groupInfoMinSize)
	}

	count := int(payload[25])
	if need := groupInfoMinSize + groupInfoMemberSize*count; len(payload) < need {
		return nil, truncated("group info", count, len(payload), need)
	}

	resp := &GroupInfoResponse{
		ID:      binary.LittleEndian.Uint16(payload[7:9]),
		Name:    decodeName(payload[9 : 9+nameSize]),
		Members: make([]GroupMember, count),
	}
	for i := range resp.Members {
		entry := payload[groupInfoMinSize+groupInfoMemberSize*i:]
		resp.Members[i].Address = binary.LittleEndian.Uint64(entry[0:AddressSize])
		copy(resp.Members[i].Reserved[:], entry[AddressSize:groupInfoMemberSize])
	}

	return resp, nil
}

// ParseAllLightsStatus decodes an ALL_LIGHTS_STATUS response:
//
//	[7-8]   count         uint16 LE
//	[9..]   count × 50    see parseLightEntry
func ParseAllLightsStatus(payload []byte) (*AllLightsStatusResponse, error) {
	if len(payload) < allLightsMinSize {
		return nil, tooShort("all lights status", len(payload), allLightsMinSize)
	}

	count := int(binary.LittleEndian.Uint16(payload[7:9]))
	if need := allLightsMinSize + allLightsEntrySize*count; len(payload) < need {
		return nil, truncated("all lights status", count, len(payload), need)
	}

	resp := &AllLightsStatusResponse{Lights: make([]LightStatus, count)}
	for i := range resp.Lights {
		start := allLightsMinSize + allLightsEntrySize*i
		resp.Lights[i] = parseLightEntry(payload[start : start+allLightsEntrySize])
	}

	return resp, nil
}

// parseLightEntry decodes one 50-byte light record:
//
//	[0-1]    unused
//	[2-9]    address       uint64 LE
//	[10-17]  unused
//	[18]     on            0x01 = on
//	[19]     luminance
//	[20-21]  temperature   uint16 LE
//	[22-24]  r, g, b
//	[25]     reserved
//	[26-41]  name          16 bytes ASCII
//	[42-49]  unused
func parseLightEntry(entry []byte) LightStatus {
	return LightStatus{
		Address: binary.LittleEndian.Uint64(entry[2:10]),
		Name:    decodeName(entry[26 : 26+nameSize]),
		LightState: LightState{
			On:          entry[18] == 0x01,
			Luminance:   entry[19],
			Temperature: binary.LittleEndian.Uint16(entry[20:22]),
			R:           entry[22],
			G:           entry[23],
			B:           entry[24],
			Reserved:    entry[25],
		},
	}
}

// ParseLightStatus decodes a LIGHT_STATUS response:
//
//	[27]     on            non-zero = on
//	[28]     luminance
//	[29-30]  temperature   uint16 LE
//	[31-33]  r, g, b
//	[34]     reserved
func ParseLightStatus(payload []byte) (*LightStatusResponse, error) {
	if len(payload) < lightStatusMinSize {
		return nil, tooShort("light status", len(payload), lightStatusMinSize)
	}

	return &LightStatusResponse{
		LightState: LightState{
			On:          payload[27] != 0,
			Luminance:   payload[28],
			Temperature: binary.LittleEndian.Uint16(payload[29:31]),
			R:           payload[31],
			G:           payload[32],
			B:           payload[33],
			Reserved:    payload[34],
		},
	}, nil
}

// decodeName converts a fixed-width ASCII field, dropping padding and control
// bytes at either end (the bridge pads with spaces or NULs).
func decodeName(field []byte) string {
	return strings.TrimFunc(string(field), func(r rune) bool {
		return r <= ' '
	})
}

func tooShort(what string, got, want int) error {
	return fmt.Errorf("%w: %s response too short: %d bytes (minimum %d)", ErrMalformedPayload, what, got, want)
}

func truncated(what string, count, got, want int) error {
	return fmt.Errorf("%w: %s response declares %d records but has %d bytes (need %d)",
		ErrMalformedPayload, what, count, got, want)
}
