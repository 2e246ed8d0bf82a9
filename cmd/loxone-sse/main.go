package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "loxone-sse",
	Short: "Authenticated event-stream gateway for the Loxone MCP server",
	Long: `loxone-sse serves the Loxone MCP event stream over HTTP and guards it
with a single shared API key, read from the environment or the configured
secret store and generated on first run.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
