// Package wire implements the frame envelope codec for the interactive
// protocol.
//
// The reader is a streaming token scan: recognized keys may appear in any
// order, unknown keys and unsupported methods are skipped so newer servers
// keep working against older clients. The writer emits one canonical
// envelope shape.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Frame type tags.
const (
	TypeMethod = "method"
	TypeReply  = "reply"
)

// Error is the error object carried by failed replies.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// Frame is a decoded protocol envelope, either a method call or a reply.
type Frame struct {
	Type   string
	ID     uint32
	HasID  bool
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *Error
}

// ErrNotAnObject is returned when a frame is not a JSON object.
var ErrNotAnObject = errors.New("frame is not a JSON object")

// IsMethod reports whether the frame is a server push.
func (f *Frame) IsMethod() bool { return f.Type == TypeMethod }

// IsReply reports whether the frame is a reply to an outstanding call.
func (f *Frame) IsReply() bool { return f.Type == TypeReply }

// Parse decodes a single frame.
//
// The method name is accepted under the "method" key or the legacy "name"
// key; the first non-empty value wins. Trailing garbage after the closing
// brace is ignored, matching the tolerance of the service's own reader.
func Parse(data []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, ErrNotAnObject
	}

	f := &Frame{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read frame key: %w", err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "type":
			if err := dec.Decode(&f.Type); err != nil {
				return nil, fmt.Errorf("invalid type field: %w", err)
			}

		case "id":
			var id uint32
			if err := dec.Decode(&id); err != nil {
				return nil, fmt.Errorf("invalid id field: %w", err)
			}
			f.ID = id
			f.HasID = true

		case "method", "name":
			var m string
			if err := dec.Decode(&m); err != nil {
				return nil, fmt.Errorf("invalid method field: %w", err)
			}
			if f.Method == "" {
				f.Method = m
			}

		case "params":
			if err := dec.Decode(&f.Params); err != nil {
				return nil, fmt.Errorf("invalid params field: %w", err)
			}

		case "result":
			if err := dec.Decode(&f.Result); err != nil {
				return nil, fmt.Errorf("invalid result field: %w", err)
			}

		case "error":
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("invalid error field: %w", err)
			}
			if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
				var e Error
				if err := json.Unmarshal(raw, &e); err != nil {
					return nil, fmt.Errorf("invalid error object: %w", err)
				}
				f.Error = &e
			}

		default:
			// Unknown key, skip its value entirely
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("invalid value for key %q: %w", key, err)
			}
		}
	}

	// Consume the closing brace
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("unterminated frame: %w", err)
	}

	return f, nil
}

// methodEnvelope is the canonical client frame shape. The method name rides
// under the "method" key, which equals the type tag value; the service's
// wire format requires that exact key.
type methodEnvelope struct {
	Type   string      `json:"type"`
	ID     uint32      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// EncodeMethod renders a client method frame.
func EncodeMethod(id uint32, method string, params interface{}) ([]byte, error) {
	if params == nil {
		params = struct{}{}
	}
	data, err := json.Marshal(methodEnvelope{
		Type:   TypeMethod,
		ID:     id,
		Method: method,
		Params: params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", method, err)
	}
	return data, nil
}
