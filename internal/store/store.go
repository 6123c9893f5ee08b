package store

import (
	"sort"
	"strings"

	"github.com/muurk/lightify/internal/protocol"
)

// Update describes which cached entities an applied response or command touched.
type Update struct {
	Source  protocol.Opcode
	Groups  []uint16
	Lights  []uint64
	Cleared bool
}

// Empty reports whether the update touched nothing.
func (u Update) Empty() bool {
	return len(u.Groups) == 0 && len(u.Lights) == 0 && !u.Cleared
}

// Store is the reconciled group and light cache of one bridge.
//
// Store is not safe for concurrent use. The bridge serializes every call
// under the same lock that guards its request state.
type Store struct {
	groups map[uint16]*group
	lights map[uint64]*Light
}

// New returns an empty cache.
func New() *Store {
	return &Store{
		groups: make(map[uint16]*group),
		lights: make(map[uint64]*Light),
	}
}

// ApplyGroupList replaces the set of known groups. Groups that survive keep
// their members; groups missing from the response are dropped.
func (s *Store) ApplyGroupList(resp *protocol.GroupListResponse) Update {
	update := Update{Source: protocol.OpGroupList}
	groups := make(map[uint16]*group, len(resp.Groups))

	for _, entry := range resp.Groups {
		g, ok := s.groups[entry.ID]
		if !ok {
			g = &group{id: entry.ID, members: make(map[uint64]struct{})}
		}
		g.name = entry.Name
		groups[entry.ID] = g
		update.Groups = append(update.Groups, entry.ID)
	}
	for id := range s.groups {
		if _, ok := groups[id]; !ok {
			update.Groups = append(update.Groups, id)
		}
	}

	s.groups = groups
	sortIDs(update.Groups)
	return update
}

// ApplyGroupInfo overwrites one group's name and replaces its members.
func (s *Store) ApplyGroupInfo(resp *protocol.GroupInfoResponse) Update {
	g := s.findOrCreateGroup(resp.ID)
	g.name = resp.Name
	g.members = make(map[uint64]struct{}, len(resp.Members))
	for _, m := range resp.Members {
		g.members[m.Address] = struct{}{}
	}

	return Update{Source: protocol.OpGroupInfo, Groups: []uint16{resp.ID}}
}

// ApplyAllLightsStatus merges the reported lights into the cache. Lights the
// response does not mention keep their last known state.
func (s *Store) ApplyAllLightsStatus(resp *protocol.AllLightsStatusResponse) Update {
	update := Update{Source: protocol.OpAllLightsStatus}

	for _, status := range resp.Lights {
		l := s.findOrCreateLight(status.Address)
		l.Name = status.Name
		l.setState(status.LightState)
		update.Lights = append(update.Lights, status.Address)
	}

	sortAddresses(update.Lights)
	return update
}

// ApplyLightStatus overwrites the status of the light at address. The
// response carries no name, so a cached name is left alone.
func (s *Store) ApplyLightStatus(address uint64, resp *protocol.LightStatusResponse) Update {
	s.findOrCreateLight(address).setState(resp.LightState)
	return Update{Source: protocol.OpLightStatus, Lights: []uint64{address}}
}

// ApplyCommand records the expected effect of a command sent to target. A
// device target creates the light if needed; a group target changes the
// cached members of that group that are already known lights.
func (s *Store) ApplyCommand(op protocol.Opcode, target protocol.Target, mutate func(*Light)) Update {
	update := Update{Source: op}

	switch target.Kind {
	case protocol.TargetDevice:
		mutate(s.findOrCreateLight(target.Address))
		update.Lights = []uint64{target.Address}
	case protocol.TargetGroup:
		g, ok := s.groups[target.GroupID]
		if !ok {
			return update
		}
		for address := range g.members {
			if l, ok := s.lights[address]; ok {
				mutate(l)
				update.Lights = append(update.Lights, address)
			}
		}
		sortAddresses(update.Lights)
	}

	return update
}

// Clear forgets every group and light.
func (s *Store) Clear() Update {
	s.groups = make(map[uint16]*group)
	s.lights = make(map[uint64]*Light)
	return Update{Cleared: true}
}

// Groups returns copies of all cached groups ordered by id.
func (s *Store) Groups() []Group {
	groups := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g.snapshot())
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// Lights returns copies of all cached lights ordered by address.
func (s *Store) Lights() []Light {
	lights := make([]Light, 0, len(s.lights))
	for _, l := range s.lights {
		lights = append(lights, *l)
	}
	sort.Slice(lights, func(i, j int) bool { return lights[i].Address < lights[j].Address })
	return lights
}

// Group returns a copy of the group with the given id.
func (s *Store) Group(id uint16) (Group, bool) {
	g, ok := s.groups[id]
	if !ok {
		return Group{}, false
	}
	return g.snapshot(), true
}

// Light returns a copy of the light at address.
func (s *Store) Light(address uint64) (Light, bool) {
	l, ok := s.lights[address]
	if !ok {
		return Light{}, false
	}
	return *l, true
}

// GroupByName finds a group by case-insensitive name. When several groups
// share a name the lowest id wins.
func (s *Store) GroupByName(name string) (Group, bool) {
	for _, g := range s.Groups() {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}
	return Group{}, false
}

// LightByName finds a light by case-insensitive name. When several lights
// share a name the lowest address wins.
func (s *Store) LightByName(name string) (Light, bool) {
	for _, l := range s.Lights() {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Light{}, false
}

func (s *Store) findOrCreateGroup(id uint16) *group {
	g, ok := s.groups[id]
	if !ok {
		g = &group{id: id, members: make(map[uint64]struct{})}
		s.groups[id] = g
	}
	return g
}

func (s *Store) findOrCreateLight(address uint64) *Light {
	l, ok := s.lights[address]
	if !ok {
		l = &Light{Address: address}
		s.lights[address] = l
	}
	return l
}

func sortIDs(ids []uint16) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortAddresses(addresses []uint64) {
	sort.Slice(addresses, func(i, j int) bool { return addresses[i] < addresses[j] })
}
