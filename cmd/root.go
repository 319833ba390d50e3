package cmd

import (
	"fmt"
	"log"
	"os"

	"GreetFM/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "greetfm",
	Short: "GreetFM orchestrates proactive greetings for a voice-assistant device fleet.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting GreetFM server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
