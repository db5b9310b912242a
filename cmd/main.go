// Command realtime-assistant runs the realtime voice assistant gateway.
//
// Usage:
//
//	realtime-assistant [--config conf.yaml] <command>
//
// Commands:
//
//	serve  - serve the browser bridge, health and metrics endpoints
//	tools  - list or invoke the assistant tools
//	chat   - text conversation with the realtime service from the terminal
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
