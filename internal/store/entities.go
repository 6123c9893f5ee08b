package store

import (
	"encoding/json"
	"sort"

	"github.com/muurk/lightify/internal/protocol"
)

// Group is a snapshot of one bridge-defined group.
type Group struct {
	ID      uint16   `json:"id"`
	Name    string   `json:"name"`
	Members []uint64 `json:"-"` // sorted device addresses
}

// HasMember reports whether address belongs to the group.
func (g Group) HasMember(address uint64) bool {
	i := sort.Search(len(g.Members), func(i int) bool { return g.Members[i] >= address })
	return i < len(g.Members) && g.Members[i] == address
}

// MarshalJSON renders member addresses in their printable form; raw uint64
// values do not survive JSON consumers that use float64 numbers.
func (g Group) MarshalJSON() ([]byte, error) {
	members := make([]string, len(g.Members))
	for i, m := range g.Members {
		members[i] = protocol.FormatAddress(m)
	}
	return json.Marshal(struct {
		ID      uint16   `json:"id"`
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}{g.ID, g.Name, members})
}

// Light is a snapshot of one light's last known state.
type Light struct {
	Address     uint64 `json:"-"`
	Name        string `json:"name"`
	On          bool   `json:"on"`
	Luminance   uint8  `json:"luminance"`
	Temperature uint16 `json:"temperature"`
	R           uint8  `json:"r"`
	G           uint8  `json:"g"`
	B           uint8  `json:"b"`
	Reserved    byte   `json:"-"`
}

// MarshalJSON adds the printable address to the light's fields.
func (l Light) MarshalJSON() ([]byte, error) {
	type plain Light
	return json.Marshal(struct {
		Address string `json:"address"`
		plain
	}{protocol.FormatAddress(l.Address), plain(l)})
}

// Target returns the device target addressing this light.
func (l Light) Target() protocol.Target {
	return protocol.DeviceTarget(l.Address)
}

// setState overwrites every status field from a decoded state block.
func (l *Light) setState(s protocol.LightState) {
	l.On = s.On
	l.Luminance = s.Luminance
	l.Temperature = s.Temperature
	l.R, l.G, l.B = s.R, s.G, s.B
	l.Reserved = s.Reserved
}

// group is the cached form of a Group; members is a set.
type group struct {
	id      uint16
	name    string
	members map[uint64]struct{}
}

func (g *group) snapshot() Group {
	members := make([]uint64, 0, len(g.members))
	for m := range g.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return Group{ID: g.id, Name: g.name, Members: members}
}
