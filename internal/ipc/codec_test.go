package ipc

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

func TestDecodeReturnsValueTypes(t *testing.T) {
	msg := CreateFrameProxy{
		RoutingID:       7,
		FrameID:         3,
		SiteGroupID:     2,
		ParentRoutingID: 5,
		Live:            true,
		Replicated: types.ReplicatedState{
			Name:             "ad",
			Origin:           types.Origin{Scheme: "https", Host: "b.com"},
			EffectiveSandbox: types.SandboxPopups,
		},
	}

	got, err := RoundTrip(msg)
	require.NoError(t, err)

	proxy, ok := got.(CreateFrameProxy)
	require.True(t, ok, "decoded %T", got)
	assert.Equal(t, msg, proxy)
}

func TestInputEventKeepsSubsecondTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	msg := RouteInputEvent{
		RoutingID: 4,
		Event: types.InputEvent{
			Type:      types.MouseDown,
			Position:  types.Point{X: 100, Y: 100},
			Button:    types.ButtonLeft,
			Timestamp: ts,
		},
	}

	got, err := RoundTrip(msg)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got.(RouteInputEvent).Event.Timestamp))
}

func TestSurfaceTokenSurvivesEncoding(t *testing.T) {
	msg := SurfaceReady{RoutingID: 9, Surface: types.NewSurfaceID(1, 4)}

	got, err := RoundTrip(msg)
	require.NoError(t, err)
	assert.Equal(t, msg.Surface, got.(SurfaceReady).Surface)
}

func TestEncodeIsDeterministic(t *testing.T) {
	msg := UpdateReplicatedState{
		RoutingID: 1,
		Field:     types.FieldName,
		State:     types.ReplicatedState{Name: "x", UniqueName: "<!--frame1-->"},
	}
	a, err := Encode(msg)
	require.NoError(t, err)
	b, err := Encode(msg)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrMalformed)

	data, err := cbor.Marshal(Envelope{Kind: Kind(200), Body: cbor.RawMessage{0xa0}})
	require.NoError(t, err)
	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Encode(nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindNames(t *testing.T) {
	for k := KindInvalid + 1; k < kindCount; k++ {
		assert.NotEmpty(t, k.String(), "kind %d has no name", k)
		assert.Equal(t, k, newMessage(k).Kind())
	}
	assert.Equal(t, "kind(200)", Kind(200).String())
}
