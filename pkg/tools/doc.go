// Package tools is the function-call registry exposed to the realtime model.
//
// A Tool pairs a name and description with a JSON schema derived from its
// argument struct. Registry.Invoke never surfaces backend failures: a tool
// that errors, panics or times out yields its degraded message instead.
package tools
