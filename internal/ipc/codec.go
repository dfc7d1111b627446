package ipc

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrUnknownKind is returned when decoding an envelope with an unrecognised kind
	ErrUnknownKind = errors.New("ipc: unknown message kind")
	// ErrMalformed is returned when an envelope or payload fails to decode
	ErrMalformed = errors.New("ipc: malformed message")
)

// Envelope is the on-wire framing of one message
type Envelope struct {
	Kind Kind            `cbor:"1,keyasint"`
	Body cbor.RawMessage `cbor:"2,keyasint"`
}

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): the same message
// always produces the same bytes.
var encMode cbor.EncMode

// decMode ignores unknown fields so older content processes can read newer
// payloads.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Input timestamps keep sub-second precision.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("ipc: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("ipc: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes msg into an envelope
func Encode(msg Message) ([]byte, error) {
	if msg == nil || !msg.Kind().Valid() {
		return nil, ErrUnknownKind
	}
	body, err := encMode.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return encMode.Marshal(Envelope{Kind: msg.Kind(), Body: body})
}

// Decode parses an envelope and returns the payload by value, so receivers
// switch on the same types senders construct.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ptr := newMessage(env.Kind)
	if ptr == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, env.Kind)
	}
	if err := decMode.Unmarshal(env.Body, ptr); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Kind, err)
	}

	return reflect.ValueOf(ptr).Elem().Interface().(Message), nil
}

// RoundTrip encodes and decodes msg. In-memory processes pass every message
// through it so they observe exactly what a remote process would.
func RoundTrip(msg Message) (Message, error) {
	data, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
