package realtime

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxLoggedFrame = 256

// receive is the single reader of conn. It runs until the transport closes.
func (c *Client) receive(ctx context.Context, conn *websocket.Conn, epoch uint64, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.detach(conn, epoch) {
				_ = conn.Close()
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Info("realtime connection closed by server", zap.Uint64("epoch", epoch), zap.Error(err))
				} else {
					c.logger.Warn("realtime connection lost", zap.Uint64("epoch", epoch), zap.Error(err))
				}
			}
			return
		}
		c.handleFrame(ctx, data)
	}
}

// handleFrame processes one inbound frame. Failures stay inside this frame.
func (c *Client) handleFrame(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("realtime event handling panic",
				zap.Any("panic", r),
				zap.String("frame", truncate(data)),
			)
		}
	}()

	ev, err := decodeEvent(data)
	if err != nil {
		c.logger.Warn("realtime decode event failed",
			zap.Error(err),
			zap.String("frame", truncate(data)),
		)
		return
	}
	c.observer.FrameReceived(ev.EventType())
	c.dispatch(ctx, ev)
}

func (c *Client) dispatch(ctx context.Context, ev ServerEvent) {
	switch ev := ev.(type) {
	case *ErrorEvent:
		c.logger.Warn("realtime server error",
			zap.String("type", ev.Error.Type),
			zap.String("code", ev.Error.Code),
			zap.String("message", ev.Error.Message),
			zap.String("param", ev.Error.Param),
			zap.String("event_id", ev.Error.EventID),
		)
	case *AudioDeltaEvent:
		c.bus.Publish(ConversationUpdated, AudioChunk{
			Track:  c.Track(),
			ItemID: ev.ItemID,
			Audio:  ev.Audio,
		})
	case *AudioDoneEvent:
		c.bus.Publish(ConversationUpdated, AudioChunk{
			Track:  c.Track(),
			ItemID: ev.ItemID,
			Done:   true,
		})
	case *InputCommittedEvent:
		if err := c.CreateResponse(ctx); err != nil {
			c.logSendFailure("response after input commit", err)
		}
	case *SpeechStartedEvent:
		c.interrupt(InterruptSpeechStarted)
	case *TextDeltaEvent:
		snap, started := c.response.Apply(ev.ItemID, ev.Delta)
		slot := c.currentInputSlot()
		if started {
			slot = c.rotateInputSlot()
		}
		c.bus.Publish(ConversationTextDelta, TextDelta{
			ItemID:     ev.ItemID,
			Delta:      ev.Delta,
			Transcript: snap.Text,
			Started:    started,
			InputSlot:  slot,
		})
	case *InputTranscriptDeltaEvent:
		c.input.Apply(ev.ItemID, ev.Delta)
	case *InputTranscriptDoneEvent:
		snap := c.input.Set(ev.ItemID, ev.Transcript)
		slot := c.currentInputSlot()
		c.rotateInputSlot()
		c.bus.Publish(ConversationInputTextDone, InputTextDone{
			ItemID:     snap.ItemID,
			Transcript: snap.Text,
			InputSlot:  slot,
		})
	case *ResponseDoneEvent:
		c.handleResponseDone(ctx, ev)
	default:
		c.logger.Debug("realtime event ignored", zap.String("type", ev.EventType()))
	}
}

func (c *Client) logSendFailure(what string, err error) {
	if errors.Is(err, ErrNotConnected) || errors.Is(err, context.Canceled) {
		c.logger.Warn("realtime send dropped", zap.String("command", what), zap.Error(err))
		return
	}
	c.logger.Warn("realtime send failed", zap.String("command", what), zap.Error(err))
}

func truncate(data []byte) string {
	if len(data) <= maxLoggedFrame {
		return string(data)
	}
	return string(data[:maxLoggedFrame]) + "..."
}
