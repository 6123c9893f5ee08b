package bridge

import (
	"fmt"

	"github.com/muurk/lightify/internal/protocol"
)

// RequestState is the correlation state of a bridge connection. At most one
// request is outstanding, so the state alone selects the response decoder.
type RequestState int

const (
	StateIdle RequestState = iota
	StateAwaitingGroupList
	StateAwaitingGroupInfo
	StateAwaitingLightStatus
	StateAwaitingAllLightsStatus
	// StateDisconnected is terminal: the connection failed or was closed.
	StateDisconnected
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingGroupList:
		return "AwaitingGroupList"
	case StateAwaitingGroupInfo:
		return "AwaitingGroupInfo"
	case StateAwaitingLightStatus:
		return "AwaitingLightStatus"
	case StateAwaitingAllLightsStatus:
		return "AwaitingAllLightsStatus"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("RequestState(%d)", int(s))
	}
}

// Awaiting reports whether a request is outstanding.
func (s RequestState) Awaiting() bool {
	return s >= StateAwaitingGroupList && s <= StateAwaitingAllLightsStatus
}

// awaitingState maps a response kind to the state that expects it.
func awaitingState(kind protocol.ResponseKind) RequestState {
	switch kind {
	case protocol.KindGroupList:
		return StateAwaitingGroupList
	case protocol.KindGroupInfo:
		return StateAwaitingGroupInfo
	case protocol.KindLightStatus:
		return StateAwaitingLightStatus
	case protocol.KindAllLightsStatus:
		return StateAwaitingAllLightsStatus
	default:
		return StateIdle
	}
}
