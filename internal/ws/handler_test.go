package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	appconfig "github.com/saker-ai/realtime-assistant/internal/config"
	"github.com/saker-ai/realtime-assistant/internal/metrics"
	"github.com/saker-ai/realtime-assistant/pkg/audio"
	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

const waitTimeout = 2 * time.Second

type fakeRealtime struct {
	t        *testing.T
	srv      *httptest.Server
	frames   chan map[string]any
	closed   chan struct{}
	mu       sync.Mutex
	conn     *websocket.Conn
	upgrader websocket.Upgrader
}

func newFakeRealtime(t *testing.T) *fakeRealtime {
	t.Helper()
	f := &fakeRealtime{
		t:      t,
		frames: make(chan map[string]any, 64),
		closed: make(chan struct{}, 4),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRealtime) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	defer func() { f.closed <- struct{}{} }()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err == nil {
			f.frames <- frame
		}
	}
}

func (f *fakeRealtime) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/openai/realtime"
}

func (f *fakeRealtime) push(v any) {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.conn.WriteJSON(v); err != nil {
		f.t.Fatalf("push: %v", err)
	}
}

func (f *fakeRealtime) expectType(want string) map[string]any {
	f.t.Helper()
	select {
	case frame := <-f.frames:
		if frame["type"] != want {
			f.t.Fatalf("frame type=%v, want %s (frame %v)", frame["type"], want, frame)
		}
		return frame
	case <-time.After(waitTimeout):
		f.t.Fatalf("timed out waiting for %s", want)
		return nil
	}
}

func (f *fakeRealtime) expectClosed() {
	f.t.Helper()
	select {
	case <-f.closed:
	case <-time.After(waitTimeout):
		f.t.Fatal("realtime connection not closed")
	}
}

type browser struct {
	t    *testing.T
	conn *websocket.Conn
}

func newBrowser(t *testing.T, realtimeURL string, m *metrics.Metrics) (*browser, *Handler) {
	t.Helper()
	cfg := appconfig.Config{
		Realtime: appconfig.RealtimeConfig{
			URL:             realtimeURL,
			InputSampleRate: 24000,
			ConnectTimeout:  time.Second,
		},
		Persona: appconfig.Persona{Welcome: "Hi, Welcome!"},
	}
	h := NewHandler(nil, cfg, tools.NewRegistry(), WithMetrics(m))
	srv := httptest.NewServer(http.HandlerFunc(h.Handle))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial browser: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &browser{t: t, conn: conn}, h
}

func (b *browser) send(v any) {
	b.t.Helper()
	if err := b.conn.WriteJSON(v); err != nil {
		b.t.Fatalf("browser send: %v", err)
	}
}

// readUntil skips messages until one of type want arrives.
func (b *browser) readUntil(want string) map[string]any {
	b.t.Helper()
	deadline := time.Now().Add(waitTimeout)
	_ = b.conn.SetReadDeadline(deadline)
	for {
		var msg map[string]any
		if err := b.conn.ReadJSON(&msg); err != nil {
			b.t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg["type"] == want {
			return msg
		}
	}
}

func TestWelcomeAndNotConnectedNotice(t *testing.T) {
	m := metrics.New("test")
	b, h := newBrowser(t, "ws://127.0.0.1:1/unused", m)

	welcome := b.readUntil(msgAssistantText)
	if welcome["text"] != "Hi, Welcome!" {
		t.Fatalf("welcome=%v", welcome)
	}
	if h.Sessions() != 1 {
		t.Fatalf("Sessions=%d, want 1", h.Sessions())
	}

	b.send(map[string]any{"type": msgTextInput, "text": "hello"})
	notice := b.readUntil(msgError)
	if notice["message"] != notConnectedNotice {
		t.Fatalf("notice=%v, want %q", notice, notConnectedNotice)
	}
}

func TestConnectFailureReported(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	b, _ := newBrowser(t, url, nil)
	b.send(map[string]any{"type": msgMicAudioStart})
	msg := b.readUntil(msgError)
	if !strings.HasPrefix(msg["message"].(string), "Failed to connect to OpenAI realtime: ") {
		t.Fatalf("message=%v", msg["message"])
	}
}

func TestVoiceSessionRoundTrip(t *testing.T) {
	rt := newFakeRealtime(t)
	b, _ := newBrowser(t, rt.url(), metrics.New("test"))
	b.readUntil(msgAssistantText)

	b.send(map[string]any{"type": msgMicAudioStart, "sample_rate": 24000})
	rt.expectType("session.update")

	b.send(map[string]any{"type": msgMicAudioData, "audio": []float64{0.5, -0.5}})
	appended := rt.expectType("input_audio_buffer.append")
	want := audio.EncodeBase64(audio.PCM16FromSamples([]int16{16383, -16383}).Data)
	if appended["audio"] != want {
		t.Fatalf("audio=%v, want %s", appended["audio"], want)
	}

	b.send(map[string]any{"type": msgTextInput, "text": "what are my marks"})
	rt.expectType("conversation.item.create")
	rt.expectType("response.create")
	interrupt := b.readUntil(msgAudioInterrupt)
	if interrupt["reason"] != "user_message" {
		t.Fatalf("interrupt=%v", interrupt)
	}

	rt.push(map[string]any{"type": "response.audio_transcript.delta", "item_id": "it1", "delta": "Your"})
	placeholder := b.readUntil(msgUserTranscript)
	if placeholder["pending"] != true {
		t.Fatalf("placeholder=%v, want pending", placeholder)
	}
	text := b.readUntil(msgAssistantText)
	if text["text"] != "Your" || text["item_id"] != "it1" {
		t.Fatalf("assistant-text=%v", text)
	}

	pcm := audio.PCM16FromSamples([]int16{100, -100, 200, -200}).Data
	rt.push(map[string]any{"type": "response.audio.delta", "item_id": "it1", "delta": audio.EncodeBase64(pcm)})
	chunk := b.readUntil(msgAudio)
	if chunk["audio_pcm"] != audio.EncodeBase64(pcm) || chunk["track_id"] != interrupt["track_id"] {
		t.Fatalf("audio=%v, interrupt track %v", chunk, interrupt["track_id"])
	}

	rt.push(map[string]any{
		"type":       "conversation.item.input_audio_transcription.completed",
		"item_id":    "u1",
		"transcript": "what are my marks",
	})
	done := b.readUntil(msgUserTranscript)
	if done["text"] != "what are my marks" || done["pending"] != false || done["slot_id"] != placeholder["slot_id"] {
		t.Fatalf("transcript=%v, placeholder %v", done, placeholder)
	}

	b.send(map[string]any{"type": msgMicAudioEnd})
	rt.expectClosed()

	b.send(map[string]any{"type": msgTextInput, "text": "still there?"})
	if notice := b.readUntil(msgError); notice["message"] != notConnectedNotice {
		t.Fatalf("notice=%v", notice)
	}
}

func TestComputeVolumes(t *testing.T) {
	pcm := audio.PCM16FromSamples([]int16{100, 100, 50, 50}).Data
	got := computeVolumes(pcm, 1000, 2)
	if len(got) != 2 || got[0] != 1 || got[1] != 0.5 {
		t.Fatalf("volumes=%v, want [1 0.5]", got)
	}
	if computeVolumes(nil, 24000, 20) != nil {
		t.Fatal("volumes of empty pcm should be nil")
	}
	if got := sliceMillis(48000, 24000); got != 1000 {
		t.Fatalf("sliceMillis=%d, want 1000", got)
	}
}
