package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRouterFrames(t *testing.T) {
	id := []byte("conn-1")
	payload := []byte(`{"type":"hello"}`)

	tests := []struct {
		name         string
		frames       [][]byte
		wantIdentity []byte
		wantPayload  []byte
	}{
		{
			name:         "canonical three frames with empty delimiter",
			frames:       [][]byte{id, {}, payload},
			wantIdentity: id,
			wantPayload:  payload,
		},
		{
			name:         "compact two frames",
			frames:       [][]byte{id, payload},
			wantIdentity: id,
			wantPayload:  payload,
		},
		{
			name:   "single frame rejected",
			frames: [][]byte{id},
		},
		{
			name:   "non-empty delimiter rejected",
			frames: [][]byte{id, []byte("x"), payload},
		},
		{
			name:   "empty input rejected",
			frames: [][]byte{},
		},
		{
			name:   "four frames rejected",
			frames: [][]byte{id, {}, payload, payload},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotPayload := ParseRouterFrames(tt.frames)
			assert.Equal(t, tt.wantIdentity, gotID)
			assert.Equal(t, tt.wantPayload, gotPayload)
		})
	}
}

func TestParseRouterFramesEmptyPayload(t *testing.T) {
	// An empty payload frame is structurally valid; dropping it is the caller's call
	id := []byte("conn-1")
	gotID, gotPayload := ParseRouterFrames([][]byte{id, {}, {}})
	assert.Equal(t, id, gotID)
	assert.NotNil(t, gotPayload)
	assert.Empty(t, gotPayload)
}
