package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MethodFrames(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantMethod string
		wantID     uint32
		wantHasID  bool
		wantErr    bool
	}{
		{
			name:       "canonical method frame",
			input:      `{"type":"method","id":7,"method":"hello","params":{"a":1}}`,
			wantMethod: "hello",
			wantID:     7,
			wantHasID:  true,
		},
		{
			name:       "method name under legacy name key",
			input:      `{"type":"method","id":9,"name":"giveInput","params":{}}`,
			wantMethod: "giveInput",
			wantID:     9,
			wantHasID:  true,
		},
		{
			name:       "both keys, first non-empty wins",
			input:      `{"type":"method","method":"hello","name":"other","id":1}`,
			wantMethod: "hello",
			wantID:     1,
			wantHasID:  true,
		},
		{
			name:       "keys in any order",
			input:      `{"params":{"x":2},"method":"onReady","id":3,"type":"method"}`,
			wantMethod: "onReady",
			wantID:     3,
			wantHasID:  true,
		},
		{
			name:       "unknown keys ignored",
			input:      `{"type":"method","id":5,"method":"hello","seq":42,"discard":true,"extra":{"deep":[1,2]}}`,
			wantMethod: "hello",
			wantID:     5,
			wantHasID:  true,
		},
		{
			name:       "missing id",
			input:      `{"type":"method","method":"hello"}`,
			wantMethod: "hello",
			wantHasID:  false,
		},
		{
			name:    "not an object",
			input:   `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "truncated frame",
			input:   `{"type":"method","id":1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Parse([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, frame.IsMethod())
			assert.Equal(t, tt.wantMethod, frame.Method)
			assert.Equal(t, tt.wantID, frame.ID)
			assert.Equal(t, tt.wantHasID, frame.HasID)
		})
	}
}

func TestParse_ReplyFrames(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"reply","id":12,"result":{"groups":[]},"error":null}`))
	require.NoError(t, err)
	assert.True(t, frame.IsReply())
	assert.Equal(t, uint32(12), frame.ID)
	assert.JSONEq(t, `{"groups":[]}`, string(frame.Result))
	assert.Nil(t, frame.Error)
}

func TestParse_ReplyError(t *testing.T) {
	frame, err := Parse([]byte(`{"type":"reply","id":4,"error":{"code":4019,"message":"denied","path":"params.sceneID"}}`))
	require.NoError(t, err)
	require.NotNil(t, frame.Error)
	assert.Equal(t, 4019, frame.Error.Code)
	assert.Equal(t, "denied", frame.Error.Message)
	assert.Equal(t, "params.sceneID", frame.Error.Path)
}

func TestEncodeMethod_Envelope(t *testing.T) {
	data, err := EncodeMethod(3, "getScenes", nil)
	require.NoError(t, err)

	// The method name rides under the "method" key, never "name".
	assert.JSONEq(t, `{"type":"method","id":3,"method":"getScenes","params":{}}`, string(data))

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Contains(t, keys, "method")
	assert.NotContains(t, keys, "name")
}

func TestEncodeMethod_RoundTrip(t *testing.T) {
	params := map[string]interface{}{
		"isReady": true,
		"nested":  map[string]interface{}{"x": 0.5},
	}
	data, err := EncodeMethod(42, "ready", params)
	require.NoError(t, err)

	frame, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TypeMethod, frame.Type)
	assert.Equal(t, uint32(42), frame.ID)
	assert.Equal(t, "ready", frame.Method)
	assert.JSONEq(t, `{"isReady":true,"nested":{"x":0.5}}`, string(frame.Params))
}
