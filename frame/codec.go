package frame

import (
	"encoding/json"
	"fmt"
)

// wireMessage is the generic envelope every frame shares: a discriminator,
// an optional id, and an opaque payload decoded a second time once the
// type is known.
type wireMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PeekType performs the first decode pass: just enough of the envelope to
// triage the frame's kind. An envelope that is not valid JSON returns an
// error; one that decodes but has an empty "type" returns ("", nil) so
// the caller can distinguish "no type" from "unparseable".
func PeekType(data []byte) (string, error) {
	var env wireMessage

	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}

	return env.Type, nil
}

func unmarshalEnvelope(data []byte) (wireMessage, error) {
	var env wireMessage
	err := json.Unmarshal(data, &env)
	return env, err
}

// marshalPayload marshals v, collapsing a nil interface or a JSON "null"
// result to an absent payload so encode never emits "payload":null.
func marshalPayload(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	if string(data) == "null" {
		return nil, nil
	}

	return data, nil
}

func encode(id string, typ Type, payload interface{}) ([]byte, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(wireMessage{ID: id, Type: string(typ), Payload: raw})
}

// DecodeConnectionInit decodes a connection_init frame. payload is
// optional; an absent or null payload decodes to a nil InitPayload.
func DecodeConnectionInit(data []byte) (*ConnectionInitFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	f := &ConnectionInitFrame{}
	if len(env.Payload) == 0 {
		return f, nil
	}

	if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
		return nil, err
	}

	return f, nil
}

// DecodeSubscribe decodes a subscribe frame. id and payload.query are
// required.
func DecodeSubscribe(data []byte) (*SubscribeFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	if env.ID == "" {
		return nil, fmt.Errorf("subscribe frame requires a non-empty id")
	}

	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("subscribe frame requires a payload")
	}

	f := &SubscribeFrame{ID: env.ID}
	if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
		return nil, err
	}

	if f.Payload.Query == "" {
		return nil, fmt.Errorf("subscribe payload requires a non-empty query")
	}

	return f, nil
}

// DecodeComplete decodes a complete frame (either direction).
func DecodeComplete(data []byte) (*CompleteFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	if env.ID == "" {
		return nil, fmt.Errorf("complete frame requires a non-empty id")
	}

	return &CompleteFrame{ID: env.ID}, nil
}

// DecodeNext decodes a next frame (either direction: S→C result, or
// DataSync C→S pushed result).
func DecodeNext(data []byte) (*NextFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	if env.ID == "" {
		return nil, fmt.Errorf("next frame requires a non-empty id")
	}

	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("next frame requires a payload")
	}

	f := &NextFrame{ID: env.ID}
	if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
		return nil, err
	}

	return f, nil
}

// DecodeError decodes an error frame.
func DecodeError(data []byte) (*ErrorFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	if env.ID == "" {
		return nil, fmt.Errorf("error frame requires a non-empty id")
	}

	f := &ErrorFrame{ID: env.ID}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// DecodeConnectionAck decodes a connection_ack frame.
func DecodeConnectionAck(data []byte) (*ConnectionAckFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	f := &ConnectionAckFrame{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// DecodePing decodes a ping frame (either direction).
func DecodePing(data []byte) (*PingFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	f := &PingFrame{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// DecodePong decodes a pong frame (either direction).
func DecodePong(data []byte) (*PongFrame, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	f := &PongFrame{}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &f.Payload); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// EncodeConnectionInit encodes a connection_init frame.
func EncodeConnectionInit(payload InitPayload) ([]byte, error) {
	if payload == nil {
		return encode("", TypeConnectionInit, nil)
	}
	return encode("", TypeConnectionInit, payload)
}

// EncodeConnectionAck encodes a connection_ack frame.
func EncodeConnectionAck(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		return encode("", TypeConnectionAck, nil)
	}
	return encode("", TypeConnectionAck, payload)
}

// EncodeSubscribe encodes a subscribe frame.
func EncodeSubscribe(id string, req *GraphQLRequest) ([]byte, error) {
	return encode(id, TypeSubscribe, req)
}

// EncodeNext encodes a next frame (either direction).
func EncodeNext(id string, result *Result) ([]byte, error) {
	return encode(id, TypeNext, result)
}

// EncodeError encodes an error frame, preserving the order of errs.
func EncodeError(id string, errs ErrorList) ([]byte, error) {
	return encode(id, TypeError, errs)
}

// EncodeComplete encodes a complete frame (either direction).
func EncodeComplete(id string) ([]byte, error) {
	return encode(id, TypeComplete, nil)
}

// EncodePing encodes a ping frame (either direction).
func EncodePing(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		return encode("", TypePing, nil)
	}
	return encode("", TypePing, payload)
}

// EncodePong encodes a pong frame (either direction).
func EncodePong(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		return encode("", TypePong, nil)
	}
	return encode("", TypePong, payload)
}
