package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/pkg/audio"
	"github.com/saker-ai/realtime-assistant/pkg/eventbus"
	"github.com/saker-ai/realtime-assistant/pkg/realtime"
)

const (
	outputSampleRate     = 24000
	defaultMicSampleRate = 16000
	volumeFrameMillis    = 20

	notConnectedNotice = "Please activate voice mode before sending messages!"
)

type session struct {
	id     string
	conn   *websocket.Conn
	sendMu sync.Mutex
	logger *zap.Logger
	client *realtime.Client

	welcome     string
	modelRate   int
	outputRate  int
	frameMillis int

	// Read loop only.
	resampler *audio.StreamResampler

	slotMu       sync.Mutex
	pendingSlots map[string]bool
}

// bind forwards the client's semantic events to the browser.
func (s *session) bind() error {
	subs := map[string]func(eventbus.Event){
		realtime.ConversationUpdated:       s.onAudioChunk,
		realtime.ConversationInterrupted:   s.onInterrupted,
		realtime.ConversationTextDelta:     s.onTextDelta,
		realtime.ConversationInputTextDone: s.onInputTextDone,
	}
	for name, fn := range subs {
		if err := s.client.On(name, eventbus.Func(fn)); err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
	}
	return nil
}

func (s *session) sendWelcome() {
	if s.welcome == "" {
		return
	}
	s.sendJSON(assistantTextMessage{Type: msgAssistantText, ItemID: "welcome", Text: s.welcome})
}

func (s *session) connect(ctx context.Context, micRate int) error {
	if err := s.client.Connect(ctx); err != nil {
		return err
	}
	return s.resetResampler(micRate)
}

func (s *session) resetResampler(micRate int) error {
	if micRate <= 0 {
		micRate = defaultMicSampleRate
	}
	if s.resampler != nil {
		s.resampler.Close()
		s.resampler = nil
	}
	r, err := audio.NewStreamResampler(micRate, s.modelRate)
	if err != nil {
		return err
	}
	s.resampler = r
	return nil
}

func (s *session) appendMicSamples(ctx context.Context, samples []float64) error {
	if len(samples) == 0 {
		return nil
	}
	if s.resampler == nil {
		if err := s.resetResampler(0); err != nil {
			return err
		}
	}
	pcm, err := s.resampler.ConvertFloat64(samples)
	if err != nil {
		return err
	}
	return s.client.AppendInputAudio(ctx, pcm)
}

func (s *session) appendMicPCM(ctx context.Context, encoded string) error {
	pcm, err := audio.DecodeBase64(encoded)
	if err != nil {
		return err
	}
	return s.client.AppendInputSamples(ctx, audio.PCM16(pcm))
}

func (s *session) flushMic(ctx context.Context) error {
	if s.resampler == nil {
		return nil
	}
	pcm, err := s.resampler.Flush()
	if err != nil {
		return err
	}
	return s.client.AppendInputAudio(ctx, pcm)
}

func (s *session) close() {
	if s.resampler != nil {
		s.resampler.Close()
		s.resampler = nil
	}
	s.client.Close()
}

func (s *session) onAudioChunk(ev eventbus.Event) {
	chunk, ok := ev.Payload.(realtime.AudioChunk)
	if !ok {
		return
	}
	if chunk.Track != s.client.Track() {
		s.logger.Debug("dropping stale audio", zap.String("track_id", chunk.Track))
		return
	}
	msg := audioMessage{
		Type:        msgAudio,
		TrackID:     chunk.Track,
		ItemID:      chunk.ItemID,
		AudioFormat: "pcm16",
		SampleRate:  s.outputRate,
		Done:        chunk.Done,
	}
	if len(chunk.Audio) > 0 {
		msg.AudioPCM = audio.EncodeBase64(chunk.Audio)
		msg.SliceLength = sliceMillis(len(chunk.Audio), s.outputRate)
		msg.Volumes = computeVolumes(chunk.Audio, s.outputRate, s.frameMillis)
	}
	s.sendJSON(msg)
}

func (s *session) onInterrupted(ev eventbus.Event) {
	in, ok := ev.Payload.(realtime.Interrupted)
	if !ok {
		return
	}
	s.sendJSON(interruptMessage{Type: msgAudioInterrupt, TrackID: in.Track, Reason: in.Reason})
}

func (s *session) onTextDelta(ev eventbus.Event) {
	delta, ok := ev.Payload.(realtime.TextDelta)
	if !ok {
		return
	}
	if delta.Started && s.openSlot(delta.InputSlot) {
		s.sendJSON(userTranscriptMessage{Type: msgUserTranscript, SlotID: delta.InputSlot, Pending: true})
	}
	s.sendJSON(assistantTextMessage{
		Type:   msgAssistantText,
		ItemID: delta.ItemID,
		Delta:  delta.Delta,
		Text:   delta.Transcript,
	})
}

func (s *session) onInputTextDone(ev eventbus.Event) {
	done, ok := ev.Payload.(realtime.InputTextDone)
	if !ok {
		return
	}
	s.closeSlot(done.InputSlot)
	s.sendJSON(userTranscriptMessage{
		Type:   msgUserTranscript,
		SlotID: done.InputSlot,
		ItemID: done.ItemID,
		Text:   done.Transcript,
	})
}

// openSlot reports whether slot had no placeholder yet.
func (s *session) openSlot(slot string) bool {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	if s.pendingSlots[slot] {
		return false
	}
	s.pendingSlots[slot] = true
	return true
}

func (s *session) closeSlot(slot string) {
	s.slotMu.Lock()
	delete(s.pendingSlots, slot)
	s.slotMu.Unlock()
}

func (s *session) sendError(message string) {
	s.sendJSON(errorMessage{Type: msgError, Message: message})
}

func (s *session) sendJSON(payload any) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := s.conn.WriteJSON(payload); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("ws send failed", zap.Error(err))
	}
}
