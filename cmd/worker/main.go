// Standalone poll worker binary for deployments that run the web
// frontend and the poller as separate processes.
package main

import (
	"os"

	"torweather/internal/interfaces/cli/poller"
)

func main() {
	cmd := poller.NewCommand()
	cmd.Use = "worker"
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
