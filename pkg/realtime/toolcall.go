package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/saker-ai/realtime-assistant/pkg/tools"
)

// handleResponseDone runs the tool-call cycle for a completed function call
// response. It blocks the receive loop, so no later inbound frame is handled
// until the follow-up commands are written.
func (c *Client) handleResponseDone(ctx context.Context, ev *ResponseDoneEvent) {
	call, ok := ev.Response.FunctionCall()
	if !ok {
		return
	}
	if len(ev.Response.Output) > 1 {
		c.logger.Warn("realtime response has several outputs, handling the first only",
			zap.String("response_id", ev.Response.ID),
			zap.Int("outputs", len(ev.Response.Output)),
		)
	}

	logger := c.logger.With(
		zap.String("tool", call.Name),
		zap.String("call_id", call.CallID),
	)
	logger.Info("realtime tool call", zap.String("arguments", call.Arguments))

	result, err := c.toolbox.Invoke(ctx, call.Name, json.RawMessage(call.Arguments))
	if err != nil {
		outcome := ToolOutcomeBadArguments
		var unknown *tools.UnknownToolError
		if errors.As(err, &unknown) {
			outcome = ToolOutcomeUnknown
		}
		logger.Warn("realtime tool call aborted", zap.String("outcome", outcome), zap.Error(err))
		c.observer.ToolCall(call.Name, outcome)
		return
	}

	outcome := ToolOutcomeOK
	if result.Degraded {
		outcome = ToolOutcomeDegraded
	}
	output, err := json.Marshal(result.Output)
	if err != nil {
		output = []byte(`""`)
	}

	itemErr := c.Send(ctx, ConversationItemCreate{Item: FunctionCallOutput(call.CallID, string(output))})
	if itemErr != nil {
		c.logSendFailure("function call output", itemErr)
		outcome = ToolOutcomeSendFailed
	}
	if err := c.CreateResponse(ctx); err != nil {
		c.logSendFailure("response after tool call", err)
		outcome = ToolOutcomeSendFailed
	}
	logger.Info("realtime tool call completed",
		zap.String("outcome", outcome),
		zap.Duration("elapsed", result.Elapsed),
	)
	c.observer.ToolCall(call.Name, outcome)
}
