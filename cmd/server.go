package cmd

import (
	"GreetFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the GreetFM orchestration server",
	Long:  `Run the GreetFM server: MQTT command dispatch, event ingress, audio delivery and the HTTP control plane.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
