// Command devicesim runs a simulated TV player or audio zone.
//
// Usage:
//
//	devicesim tv --port 8090
//	devicesim zone --port 8091
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
