// Package realtime is a client for the realtime speech and text model protocol.
//
// A Client owns one websocket connection at a time. Connect dials the
// endpoint with a bearer credential, starts a single receive goroutine and
// pushes the session configuration. Inbound server events are decoded into
// typed variants and re-published on an eventbus.Bus under the semantic
// names ConversationUpdated, ConversationInterrupted, ConversationTextDelta
// and ConversationInputTextDone.
//
// When a response completes with a function call as its first output item,
// the receive goroutine invokes the tool through the Toolbox, reports the
// result with a function_call_output item and asks for a new response. Only
// the first output item is inspected; responses carrying several parallel
// calls resolve the first call and drop the rest.
package realtime
