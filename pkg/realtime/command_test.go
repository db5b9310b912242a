package realtime

import (
	"encoding/json"
	"testing"
)

func decodeFrame(t *testing.T, frame []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(frame, &out); err != nil {
		t.Fatalf("unmarshal frame %s: %v", frame, err)
	}
	return out
}

func TestEncodeCommandEnvelope(t *testing.T) {
	frame, err := encodeCommand("evt_1", InputAudioBufferAppend{Audio: "AAE="})
	if err != nil {
		t.Fatalf("encodeCommand returned error: %v", err)
	}
	got := decodeFrame(t, frame)
	if got["event_id"] != "evt_1" {
		t.Fatalf("event_id=%v, want evt_1", got["event_id"])
	}
	if got["type"] != CommandInputAudioAppend {
		t.Fatalf("type=%v, want %s", got["type"], CommandInputAudioAppend)
	}
	if got["audio"] != "AAE=" {
		t.Fatalf("audio=%v, want AAE=", got["audio"])
	}
	if len(got) != 3 {
		t.Fatalf("fields=%v, want 3 keys", got)
	}
}

func TestEncodeCommandUserMessage(t *testing.T) {
	frame, err := encodeCommand("evt_2", ConversationItemCreate{Item: UserMessage(InputText("hello"))})
	if err != nil {
		t.Fatalf("encodeCommand returned error: %v", err)
	}
	var got struct {
		Type string           `json:"type"`
		Item ConversationItem `json:"item"`
	}
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != CommandConversationItemCreate {
		t.Fatalf("type=%q", got.Type)
	}
	if got.Item.Type != ItemTypeMessage || got.Item.Role != "user" {
		t.Fatalf("item=%+v", got.Item)
	}
	if len(got.Item.Content) != 1 || got.Item.Content[0].Type != "input_text" || got.Item.Content[0].Text != "hello" {
		t.Fatalf("content=%+v", got.Item.Content)
	}
}

func TestEncodeRawCommandEnvelopeWins(t *testing.T) {
	frame, err := encodeCommand("evt_3", RawCommand{
		Type:   "custom.thing",
		Fields: map[string]any{"type": "spoofed", "event_id": "x", "value": 7},
	})
	if err != nil {
		t.Fatalf("encodeCommand returned error: %v", err)
	}
	got := decodeFrame(t, frame)
	if got["type"] != "custom.thing" || got["event_id"] != "evt_3" {
		t.Fatalf("envelope=%v", got)
	}
	if got["value"] != float64(7) {
		t.Fatalf("value=%v, want 7", got["value"])
	}
}

func TestEncodeRawCommandNilFields(t *testing.T) {
	frame, err := encodeCommand("evt_4", RawCommand{Type: CommandInputAudioCommit})
	if err != nil {
		t.Fatalf("encodeCommand returned error: %v", err)
	}
	got := decodeFrame(t, frame)
	if len(got) != 2 || got["type"] != CommandInputAudioCommit {
		t.Fatalf("frame=%v", got)
	}
}

type listCommand []int

func (listCommand) CommandType() string { return "list" }

func TestEncodeCommandRejectsNonObject(t *testing.T) {
	if _, err := encodeCommand("evt_5", listCommand{1, 2}); err == nil {
		t.Fatal("encodeCommand(list) error=nil, want non-nil")
	}
}

func TestFunctionCallOutputItem(t *testing.T) {
	frame, err := encodeCommand("evt_6", ConversationItemCreate{Item: FunctionCallOutput("call_1", `"done"`)})
	if err != nil {
		t.Fatalf("encodeCommand returned error: %v", err)
	}
	got := decodeFrame(t, frame)
	item := got["item"].(map[string]any)
	if item["type"] != ItemTypeFunctionCallOutput || item["call_id"] != "call_1" || item["output"] != `"done"` {
		t.Fatalf("item=%v", item)
	}
	if _, ok := item["role"]; ok {
		t.Fatalf("item has role: %v", item)
	}
}
