package realtime

// Semantic event names published on the client's bus.
const (
	ConversationUpdated       = "conversation.updated"
	ConversationInterrupted   = "conversation.interrupted"
	ConversationTextDelta     = "conversation.text.delta"
	ConversationInputTextDone = "conversation.input.text.done"
)

// Interrupt reasons.
const (
	InterruptUserMessage   = "user_message"
	InterruptSpeechStarted = "speech_started"
	InterruptHost          = "host"
)

// AudioChunk is the ConversationUpdated payload. Done chunks carry no audio
// and mark the end of a segment.
type AudioChunk struct {
	Track  string
	ItemID string
	Audio  []byte
	Done   bool
}

// Interrupted is the ConversationInterrupted payload. Track is the playback
// track that replaces the interrupted one.
type Interrupted struct {
	Track  string
	Reason string
}

// TextDelta is the ConversationTextDelta payload.
type TextDelta struct {
	ItemID string
	Delta  string
	// Transcript is the accumulated text of ItemID including Delta.
	Transcript string
	// Started is set on the first delta of a new item.
	Started bool
	// InputSlot identifies the user turn this response answers. A host can
	// open a placeholder for the user's transcript under it when Started is set.
	InputSlot string
}

// InputTextDone is the ConversationInputTextDone payload.
type InputTextDone struct {
	ItemID     string
	Transcript string
	InputSlot  string
}
