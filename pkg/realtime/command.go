package realtime

import (
	"encoding/json"
	"fmt"
)

// Outbound command types.
const (
	CommandSessionUpdate          = "session.update"
	CommandConversationItemCreate = "conversation.item.create"
	CommandResponseCreate         = "response.create"
	CommandResponseCancel         = "response.cancel"
	CommandInputAudioAppend       = "input_audio_buffer.append"
	CommandInputAudioCommit       = "input_audio_buffer.commit"
	CommandInputAudioClear        = "input_audio_buffer.clear"
)

// Command is an outbound message. Its JSON encoding must be an object; the
// client adds event_id and type to it.
type Command interface {
	CommandType() string
}

// SessionUpdate replaces the live session configuration.
type SessionUpdate struct {
	Session SessionConfig `json:"session"`
}

func (SessionUpdate) CommandType() string { return CommandSessionUpdate }

// ConversationItemCreate adds an item to the conversation.
type ConversationItemCreate struct {
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

func (ConversationItemCreate) CommandType() string { return CommandConversationItemCreate }

// ResponseCreate asks the model to generate.
type ResponseCreate struct {
	Response ResponseConfig `json:"response"`
}

func (ResponseCreate) CommandType() string { return CommandResponseCreate }

// ResponseCancel stops the in-progress response.
type ResponseCancel struct{}

func (ResponseCancel) CommandType() string { return CommandResponseCancel }

// InputAudioBufferAppend streams base64 PCM16 into the server input buffer.
type InputAudioBufferAppend struct {
	Audio string `json:"audio"`
}

func (InputAudioBufferAppend) CommandType() string { return CommandInputAudioAppend }

// InputAudioBufferCommit closes the current user utterance when server VAD is off.
type InputAudioBufferCommit struct{}

func (InputAudioBufferCommit) CommandType() string { return CommandInputAudioCommit }

// InputAudioBufferClear discards buffered input audio.
type InputAudioBufferClear struct{}

func (InputAudioBufferClear) CommandType() string { return CommandInputAudioClear }

// RawCommand sends an arbitrary command type with a flat field mapping.
type RawCommand struct {
	Type   string
	Fields map[string]any
}

func (c RawCommand) CommandType() string { return c.Type }

// MarshalJSON encodes the field mapping.
func (c RawCommand) MarshalJSON() ([]byte, error) {
	if c.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Fields)
}

// encodeCommand builds the wire frame {event_id, type, ...payload}. Envelope
// keys override payload keys of the same name.
func encodeCommand(id string, cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.CommandType(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("encode %s: payload must be a JSON object", cmd.CommandType())
	}
	fields["event_id"], _ = json.Marshal(id)
	fields["type"], _ = json.Marshal(cmd.CommandType())
	return json.Marshal(fields)
}
