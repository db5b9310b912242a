package ws

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type incomingHandler func(context.Context, incomingMessage)

func (s *session) dispatchIncoming(ctx context.Context, msg incomingMessage) {
	handlers := map[string]incomingHandler{
		msgTextInput:       s.onTextInput,
		msgMicAudioStart:   s.onMicAudioStart,
		msgMicAudioData:    s.onMicAudioData,
		msgMicAudioEnd:     s.onMicAudioEnd,
		msgInterruptSignal: s.onInterruptSignal,
		msgHeartbeat:       s.onNoop,
	}

	if handler, ok := handlers[msg.Type]; ok {
		handler(ctx, msg)
		return
	}
	s.logger.Debug("ws unknown message type", zap.String("type", msg.Type))
}

func (s *session) onTextInput(ctx context.Context, msg incomingMessage) {
	if msg.Text == "" {
		return
	}
	if !s.client.IsConnected() {
		s.sendError(notConnectedNotice)
		return
	}
	if err := s.client.SendUserText(ctx, msg.Text); err != nil {
		s.logger.Warn("send user text failed", zap.Error(err))
		s.sendError(err.Error())
	}
}

func (s *session) onMicAudioStart(ctx context.Context, msg incomingMessage) {
	if err := s.connect(ctx, msg.SampleRate); err != nil {
		s.logger.Warn("realtime connect failed", zap.Error(err))
		s.sendError(fmt.Sprintf("Failed to connect to OpenAI realtime: %v", err))
	}
}

func (s *session) onMicAudioData(ctx context.Context, msg incomingMessage) {
	if !s.client.IsConnected() {
		return
	}
	var err error
	if msg.AudioPCM != "" {
		err = s.appendMicPCM(ctx, msg.AudioPCM)
	} else {
		err = s.appendMicSamples(ctx, msg.Audio)
	}
	if err != nil {
		s.logger.Warn("send audio chunk failed", zap.Error(err))
		s.sendError(fmt.Sprintf("Failed to send audio chunk to OpenAI realtime: %v", err))
	}
}

func (s *session) onMicAudioEnd(ctx context.Context, _ incomingMessage) {
	if s.client.IsConnected() {
		if err := s.flushMic(ctx); err != nil {
			s.logger.Debug("mic flush failed", zap.Error(err))
		}
	}
	s.client.Disconnect()
}

func (s *session) onInterruptSignal(ctx context.Context, _ incomingMessage) {
	if !s.client.IsConnected() {
		return
	}
	if err := s.client.CancelResponse(ctx); err != nil {
		s.sendError(err.Error())
	}
}

func (s *session) onNoop(_ context.Context, _ incomingMessage) {}
