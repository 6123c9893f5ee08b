package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/lightify/internal/protocol"
)

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "lightify", Bridge: "home"}

	assert.Equal(t, "lightify/home/status", topics.Status())
	assert.Equal(t, "lightify/home/light/84182600000b2c1d", topics.LightState(0x84182600000B2C1D))
	assert.Equal(t, "lightify/home/group/3", topics.GroupState(3))
	assert.Equal(t, "lightify/home/light/+/set", topics.LightCommands())
	assert.Equal(t, "lightify/home/group/+/set", topics.GroupCommands())
}

func TestParseCommandTopic(t *testing.T) {
	topics := Topics{Prefix: "lightify", Bridge: "home"}

	tests := []struct {
		name    string
		topic   string
		want    protocol.Target
		wantErr bool
	}{
		{name: "light", topic: "lightify/home/light/84182600000b2c1d/set", want: protocol.DeviceTarget(0x84182600000B2C1D)},
		{name: "group", topic: "lightify/home/group/12/set", want: protocol.GroupTarget(12)},
		{name: "state topic", topic: "lightify/home/group/12", wantErr: true},
		{name: "other bridge", topic: "lightify/office/group/12/set", wantErr: true},
		{name: "bad address", topic: "lightify/home/light/kitchen/set", wantErr: true},
		{name: "group id overflow", topic: "lightify/home/group/70000/set", wantErr: true},
		{name: "unknown entity", topic: "lightify/home/scene/1/set", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topics.ParseCommandTopic(tt.topic)
			if tt.wantErr {
				assert.ErrorIs(t, err, protocol.ErrInvalidTarget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTopicsRoundTrip(t *testing.T) {
	topics := Topics{Prefix: "lightify", Bridge: "home"}
	address := uint64(0x0000000000000042)

	got, err := topics.ParseCommandTopic(topics.LightState(address) + "/set")
	require.NoError(t, err)
	assert.Equal(t, protocol.DeviceTarget(address), got)
}
