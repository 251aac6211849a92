package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec turns envelopes and payloads into socket frames. JSON frames are
// text; CBOR frames are binary and carry captured images as raw byte
// strings instead of base64.
type Codec interface {
	Name() string
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Encode(msg Message) ([]byte, error)
	Decode(frame []byte) (Message, error)
}

// CodecByName returns the codec registered under name ("json" or "cbor").
// An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBORCodec()
)

type jsonEnvelope struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp int64           `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Binary() bool                       { return false }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Encode(msg Message) ([]byte, error) {
	return json.Marshal(jsonEnvelope{
		Type:      msg.Type,
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
		SessionID: msg.SessionID,
		Data:      msg.Data,
	})
}

func (jsonCodec) Decode(frame []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, err
	}
	return Message{
		Type:      env.Type,
		ID:        env.ID,
		Timestamp: env.Timestamp,
		SessionID: env.SessionID,
		Data:      env.Data,
	}, nil
}

type cborEnvelope struct {
	Type      MessageType     `cbor:"type"`
	ID        string          `cbor:"id,omitempty"`
	Timestamp int64           `cbor:"timestamp"`
	SessionID string          `cbor:"session_id,omitempty"`
	Data      cbor.RawMessage `cbor:"data,omitempty"`
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	// Arguments decode into map[string]any like they do from JSON.
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
	return cborCodec{enc: enc, dec: dec}
}

func (cborCodec) Name() string                         { return "cbor" }
func (cborCodec) Binary() bool                         { return true }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

func (c cborCodec) Encode(msg Message) ([]byte, error) {
	return c.enc.Marshal(cborEnvelope{
		Type:      msg.Type,
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
		SessionID: msg.SessionID,
		Data:      msg.Data,
	})
}

func (c cborCodec) Decode(frame []byte) (Message, error) {
	var env cborEnvelope
	if err := c.dec.Unmarshal(frame, &env); err != nil {
		return Message{}, err
	}
	return Message{
		Type:      env.Type,
		ID:        env.ID,
		Timestamp: env.Timestamp,
		SessionID: env.SessionID,
		Data:      env.Data,
	}, nil
}
