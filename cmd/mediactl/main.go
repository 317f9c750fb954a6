// Command mediactl is a command-line client for the media coordinator.
//
// Usage:
//
//	mediactl repl                      # type phrases, get commands executed
//	mediactl send '{"action":"LIST_TARGETS"}'
//	mediactl targets
//	mediactl sessions
//
// The coordinator address comes from --coordinator or MEDIACOORD_URL.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
