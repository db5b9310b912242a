package realtime

// Tool call outcomes reported to Observer.ToolCall.
const (
	ToolOutcomeOK           = "ok"
	ToolOutcomeDegraded     = "degraded"
	ToolOutcomeUnknown      = "unknown_tool"
	ToolOutcomeBadArguments = "bad_arguments"
	ToolOutcomeSendFailed   = "send_failed"
)

// Observer receives client traffic and lifecycle notifications. Methods are
// called synchronously and must not block.
type Observer interface {
	FrameSent(commandType string)
	FrameReceived(eventType string)
	ToolCall(tool, outcome string)
	Connected()
	Disconnected()
	ConnectFailed()
}

type nopObserver struct{}

func (nopObserver) FrameSent(string)        {}
func (nopObserver) FrameReceived(string)    {}
func (nopObserver) ToolCall(string, string) {}
func (nopObserver) Connected()              {}
func (nopObserver) Disconnected()           {}
func (nopObserver) ConnectFailed()          {}
