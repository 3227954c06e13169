package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Build information, injected through LDFLAGS.
var (
	Version   = "v0.1.0"
	BuildTime = ""
	GoVersion = ""
)

var configPath string

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "actionrunner",
		Short: "Run declarative browser actions against a real browser",
		Long: `actionrunner launches a browser session, executes an ordered list of
actions against one page and reports one result per action.

Example:
  actionrunner run actions.yaml
  actionrunner run --template google_search --param search_query="golang rod"
  actionrunner serve`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to config file")

	rootCmd.AddCommand(newRunCmd(), newServeCmd(), newTemplatesCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			goVersion := GoVersion
			if goVersion == "" {
				goVersion = runtime.Version()
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version: %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Go Version: %s\n", goVersion)
		},
	}
}
