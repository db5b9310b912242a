package realtime

import (
	"net/http"
	"time"

	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// DefaultConnectTimeout bounds the websocket handshake.
const DefaultConnectTimeout = 15 * time.Second

// Config is everything a Client needs to reach the service.
type Config struct {
	// URL is the full wss:// endpoint including query parameters.
	URL string
	// APIKey is sent once as "Authorization: Bearer <key>" during the handshake.
	APIKey string
	// Header holds extra handshake headers.
	Header http.Header
	// ConnectTimeout bounds Connect. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	Session  SessionConfig
	Response ResponseConfig
}

// SessionConfig is the payload of session.update.
type SessionConfig struct {
	Modalities              []string             `json:"modalities,omitempty"`
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitempty"`
	Tools                   []tools.Definition   `json:"tools,omitempty"`
	ToolChoice              string               `json:"tool_choice,omitempty"`
	Temperature             float64              `json:"temperature,omitempty"`
	MaxResponseOutputTokens int                  `json:"max_response_output_tokens,omitempty"`
}

// TranscriptionConfig enables transcription of the user's audio input.
type TranscriptionConfig struct {
	Model string `json:"model"`
}

// TurnDetection configures server side voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMS int     `json:"silence_duration_ms,omitempty"`
}

// ResponseConfig is the payload of response.create.
type ResponseConfig struct {
	Modalities []string `json:"modalities,omitempty"`
}

// DefaultSessionConfig returns the session used when none is configured.
// Tools is left empty; New fills it from the toolbox.
func DefaultSessionConfig(instructions string) SessionConfig {
	return SessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      instructions,
		Voice:             "shimmer",
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		InputAudioTranscription: &TranscriptionConfig{
			Model: "whisper-1",
		},
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMS:   300,
			SilenceDurationMS: 500,
		},
		ToolChoice:              "auto",
		Temperature:             0.8,
		MaxResponseOutputTokens: 4096,
	}
}

// DefaultResponseConfig requests both text and audio output.
func DefaultResponseConfig() ResponseConfig {
	return ResponseConfig{Modalities: []string{"text", "audio"}}
}

func (s SessionConfig) clone() SessionConfig {
	out := s
	out.Modalities = append([]string(nil), s.Modalities...)
	out.Tools = append([]tools.Definition(nil), s.Tools...)
	if s.InputAudioTranscription != nil {
		tc := *s.InputAudioTranscription
		out.InputAudioTranscription = &tc
	}
	if s.TurnDetection != nil {
		td := *s.TurnDetection
		out.TurnDetection = &td
	}
	return out
}
