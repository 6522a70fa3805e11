package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"torweather/internal/interfaces/cli/migrate"
	"torweather/internal/interfaces/cli/poller"
	"torweather/internal/interfaces/cli/server"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "torweather",
		Short: "Tor Weather - relay status notifications by email",
		Long:  `Tor Weather watches the Tor network and emails subscribers when a relay they care about goes down, runs an out-of-date version, drops below a bandwidth threshold, or earns a T-shirt.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		poller.NewCommand(),
		migrate.NewCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("torweather %s (%s, %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
