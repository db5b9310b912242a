package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/saker-ai/realtime-assistant/pkg/audio"
)

// Inbound server event types handled by the client.
const (
	EventError                        = "error"
	EventResponseAudioDelta           = "response.audio.delta"
	EventResponseAudioDone            = "response.audio.done"
	EventInputAudioCommitted          = "input_audio_buffer.committed"
	EventInputAudioSpeechStarted      = "input_audio_buffer.speech_started"
	EventResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventResponseTextDelta            = "response.text.delta"
	EventInputTranscriptionDelta      = "conversation.item.input_audio_transcription.delta"
	EventInputTranscriptionCompleted  = "conversation.item.input_audio_transcription.completed"
	EventResponseDone                 = "response.done"
)

// ServerEvent is a decoded inbound frame.
type ServerEvent interface {
	EventType() string
}

type eventHeader struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

func (h eventHeader) EventType() string { return h.Type }

// ErrorEvent carries a protocol level error reported by the server.
type ErrorEvent struct {
	eventHeader
	Error ServerError `json:"error"`
}

// AudioDeltaEvent is one chunk of response audio.
type AudioDeltaEvent struct {
	eventHeader
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`

	// Audio is Delta decoded to raw PCM16 bytes.
	Audio []byte `json:"-"`
}

// AudioDoneEvent marks the end of an audio segment.
type AudioDoneEvent struct {
	eventHeader
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
}

// InputCommittedEvent reports that one user utterance was buffered.
type InputCommittedEvent struct {
	eventHeader
	PreviousItemID string `json:"previous_item_id"`
	ItemID         string `json:"item_id"`
}

// SpeechStartedEvent reports that the user started speaking.
type SpeechStartedEvent struct {
	eventHeader
	AudioStartMS int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

// TextDeltaEvent is a response-side transcript or text fragment.
type TextDeltaEvent struct {
	eventHeader
	ResponseID string `json:"response_id"`
	ItemID     string `json:"item_id"`
	Delta      string `json:"delta"`
}

// InputTranscriptDeltaEvent is a fragment of the user's input transcription.
type InputTranscriptDeltaEvent struct {
	eventHeader
	ItemID string `json:"item_id"`
	Delta  string `json:"delta"`
}

// InputTranscriptDoneEvent carries the final transcript of a user utterance.
type InputTranscriptDoneEvent struct {
	eventHeader
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Transcript   string `json:"transcript"`
}

// ResponseDoneEvent closes a response.
type ResponseDoneEvent struct {
	eventHeader
	Response Response `json:"response"`
}

// UnknownEvent is any tag the client does not act on.
type UnknownEvent struct {
	eventHeader
	Raw json.RawMessage `json:"-"`
}

func decodeEvent(data []byte) (ServerEvent, error) {
	var header eventHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	var ev ServerEvent
	switch header.Type {
	case EventError:
		ev = &ErrorEvent{}
	case EventResponseAudioDelta:
		ev = &AudioDeltaEvent{}
	case EventResponseAudioDone:
		ev = &AudioDoneEvent{}
	case EventInputAudioCommitted:
		ev = &InputCommittedEvent{}
	case EventInputAudioSpeechStarted:
		ev = &SpeechStartedEvent{}
	case EventResponseAudioTranscriptDelta, EventResponseTextDelta:
		ev = &TextDeltaEvent{}
	case EventInputTranscriptionDelta:
		ev = &InputTranscriptDeltaEvent{}
	case EventInputTranscriptionCompleted:
		ev = &InputTranscriptDoneEvent{}
	case EventResponseDone:
		ev = &ResponseDoneEvent{}
	default:
		return &UnknownEvent{eventHeader: header, Raw: append(json.RawMessage(nil), data...)}, nil
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", header.Type, err)
	}
	if delta, ok := ev.(*AudioDeltaEvent); ok {
		pcm, err := audio.DecodeBase64(delta.Delta)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", header.Type, err)
		}
		delta.Audio = pcm
	}
	return ev, nil
}
