package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

// ErrInvalidCommand indicates a command payload that cannot be applied.
var ErrInvalidCommand = errors.New("invalid command")

// Colour is an RGB triple.
type Colour struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Command is the JSON payload accepted on command topics. Absent fields are
// left unchanged.
type Command struct {
	State      *string `json:"state,omitempty"`      // "ON" or "OFF"
	Brightness *uint8  `json:"brightness,omitempty"` // 0-100
	ColorTemp  *uint16 `json:"color_temp,omitempty"` // kelvin
	Color      *Colour `json:"color,omitempty"`
	Transition *uint16 `json:"transition,omitempty"` // deciseconds
}

// ParseCommand decodes and validates a command payload.
func ParseCommand(payload []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	if cmd.State != nil {
		switch strings.ToUpper(*cmd.State) {
		case "ON", "OFF":
		default:
			return nil, fmt.Errorf("%w: state %q (want ON or OFF)", ErrInvalidCommand, *cmd.State)
		}
	}
	if cmd.Brightness != nil && *cmd.Brightness > protocol.MaxLuminance {
		return nil, fmt.Errorf("%w: brightness %d exceeds %d", ErrInvalidCommand, *cmd.Brightness, protocol.MaxLuminance)
	}
	if cmd.State == nil && cmd.Brightness == nil && cmd.ColorTemp == nil && cmd.Color == nil {
		return nil, fmt.Errorf("%w: nothing to change", ErrInvalidCommand)
	}

	return &cmd, nil
}

// Sender is the subset of the bridge commands uses.
type Sender interface {
	SendOnOff(target protocol.Target, on bool) error
	SendLuminance(target protocol.Target, luminance uint8, fade uint16) error
	SendTemperature(target protocol.Target, kelvin uint16, fade uint16) error
	SendColour(target protocol.Target, r, g, b uint8, fade uint16) error
}

// Apply sends the bridge commands that realize cmd. Switching off is sent
// last and switching on first, so a light is never dimmed while dark.
func (c *Command) Apply(s Sender, target protocol.Target, defaultFade uint16) error {
	fade := defaultFade
	if c.Transition != nil {
		fade = *c.Transition
	}

	on, off := false, false
	if c.State != nil {
		on = strings.EqualFold(*c.State, "ON")
		off = !on
	}

	if on {
		if err := s.SendOnOff(target, true); err != nil {
			return err
		}
	}
	if c.Brightness != nil {
		if err := s.SendLuminance(target, *c.Brightness, fade); err != nil {
			return err
		}
	}
	if c.ColorTemp != nil {
		if err := s.SendTemperature(target, *c.ColorTemp, fade); err != nil {
			return err
		}
	}
	if c.Color != nil {
		if err := s.SendColour(target, c.Color.R, c.Color.G, c.Color.B, fade); err != nil {
			return err
		}
	}
	if off {
		return s.SendOnOff(target, false)
	}
	return nil
}

// LightState is the retained JSON state of one light.
type LightState struct {
	Address    string `json:"address"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Brightness uint8  `json:"brightness"`
	ColorTemp  uint16 `json:"color_temp"`
	Color      Colour `json:"color"`
}

// NewLightState converts a cached light.
func NewLightState(l store.Light) LightState {
	return LightState{
		Address:    protocol.FormatAddress(l.Address),
		Name:       l.Name,
		State:      onOff(l.On),
		Brightness: l.Luminance,
		ColorTemp:  l.Temperature,
		Color:      Colour{R: l.R, G: l.G, B: l.B},
	}
}

// GroupState is the retained JSON state of one group. A group is ON when
// any known member is on.
type GroupState struct {
	ID      uint16   `json:"id"`
	Name    string   `json:"name"`
	State   string   `json:"state"`
	Members []string `json:"members"`
}

// NewGroupState converts a cached group, consulting lights for member state.
func NewGroupState(g store.Group, lights map[uint64]store.Light) GroupState {
	state := GroupState{ID: g.ID, Name: g.Name, State: onOff(false), Members: make([]string, 0, len(g.Members))}
	for _, m := range g.Members {
		state.Members = append(state.Members, protocol.FormatAddress(m))
		if l, ok := lights[m]; ok && l.On {
			state.State = onOff(true)
		}
	}
	return state
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
