package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/LexCal/LexCal/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _              ____      _\n" +
		" | |    _____  _/ ___|__ _| |\n" +
		" | |   / _ \\ \\/ / |   / _` | |\n" +
		" | |__|  __/>  <| |__| (_| | |\n" +
		" |_____\\___/_/\\_\\\\____\\__,_|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "lexcal",
	Short: "LexCal - Legal Calendar Agent",
	Long:  color.CyanString(logo) + "\nAn LLM-driven scheduling agent for legal calendars.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lexcal %s\n", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}
