package ws

// Browser message types.
const (
	msgTextInput       = "text-input"
	msgMicAudioStart   = "mic-audio-start"
	msgMicAudioData    = "mic-audio-data"
	msgMicAudioEnd     = "mic-audio-end"
	msgInterruptSignal = "interrupt-signal"
	msgHeartbeat       = "heartbeat"

	msgAudio          = "audio"
	msgAudioInterrupt = "audio-interrupt"
	msgAssistantText  = "assistant-text"
	msgUserTranscript = "user-transcript"
	msgError          = "error"
)

type incomingMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Audio is float samples in [-1, 1] at SampleRate.
	Audio []float64 `json:"audio,omitempty"`
	// AudioPCM is base64 PCM16 already at the model input rate.
	AudioPCM   string `json:"audio_pcm,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type audioMessage struct {
	Type        string    `json:"type"`
	TrackID     string    `json:"track_id"`
	ItemID      string    `json:"item_id,omitempty"`
	AudioPCM    string    `json:"audio_pcm,omitempty"`
	AudioFormat string    `json:"audio_format"`
	SampleRate  int       `json:"audio_sample_rate"`
	Volumes     []float64 `json:"volumes,omitempty"`
	SliceLength int       `json:"slice_length,omitempty"`
	Done        bool      `json:"done,omitempty"`
}

type interruptMessage struct {
	Type    string `json:"type"`
	TrackID string `json:"track_id"`
	Reason  string `json:"reason"`
}

type assistantTextMessage struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id"`
	Delta  string `json:"delta,omitempty"`
	Text   string `json:"text"`
}

type userTranscriptMessage struct {
	Type    string `json:"type"`
	SlotID  string `json:"slot_id"`
	ItemID  string `json:"item_id,omitempty"`
	Text    string `json:"text"`
	Pending bool   `json:"pending"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
