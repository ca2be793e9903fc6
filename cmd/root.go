package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the parcelpal application
var rootCmd = &cobra.Command{
	Use:   "parcelpal",
	Short: "Voice skill backend that tracks packages found in your email",
	Long: `parcelpal answers voice questions about package deliveries. It mines a
linked Gmail inbox for shipment notifications, looks each tracking number up
with the carrier, and speaks back delivery dates, shipping summaries, and
last known package locations.

It runs as an HTTP server receiving webhook requests from the voice
platform, with a Google OAuth callback for account linking.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "parcelpal version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
