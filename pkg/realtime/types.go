package realtime

import "github.com/saker-ai/realtime-assistant/pkg/audio"

// Conversation item types.
const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCall       = "function_call"
	ItemTypeFunctionCallOutput = "function_call_output"
)

// ConversationItem is one unit of conversation content.
type ConversationItem struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// ContentPart is one piece of message content.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// InputText is a user text content part.
func InputText(text string) ContentPart {
	return ContentPart{Type: "input_text", Text: text}
}

// InputAudio is a user audio content part carrying base64 PCM16.
func InputAudio(pcm []byte) ContentPart {
	return ContentPart{Type: "input_audio", Audio: audio.EncodeBase64(pcm)}
}

// UserMessage builds a user message item.
func UserMessage(parts ...ContentPart) ConversationItem {
	return ConversationItem{Type: ItemTypeMessage, Role: "user", Content: parts}
}

// FunctionCallOutput builds the item that reports a tool result.
func FunctionCallOutput(callID, output string) ConversationItem {
	return ConversationItem{Type: ItemTypeFunctionCallOutput, CallID: callID, Output: output}
}

// Response is the resource carried by response.done.
type Response struct {
	ID     string       `json:"id"`
	Object string       `json:"object,omitempty"`
	Status string       `json:"status"`
	Output []OutputItem `json:"output"`
}

// OutputItem is one item produced by a response.
type OutputItem struct {
	ID        string        `json:"id"`
	Object    string        `json:"object,omitempty"`
	Type      string        `json:"type"`
	Status    string        `json:"status,omitempty"`
	Role      string        `json:"role,omitempty"`
	Name      string        `json:"name,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
}

// FunctionCall returns the first output item when the response completed
// with a function call.
func (r Response) FunctionCall() (OutputItem, bool) {
	if r.Status != "completed" || len(r.Output) == 0 {
		return OutputItem{}, false
	}
	first := r.Output[0]
	if first.Type != ItemTypeFunctionCall {
		return OutputItem{}, false
	}
	return first, true
}
