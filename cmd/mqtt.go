package cmd

import (
	"fmt"
	"os"

	"GreetFM/config"
	"GreetFM/mqtt"

	"github.com/spf13/cobra"
)

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Check MQTT broker connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		client, err := mqtt.Connect(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mqtt check failed: %v\n", err)
			os.Exit(1)
		}
		client.Close()
		fmt.Printf("mqtt ok, broker %s reachable\n", cfg.MQTTBroker)
	},
}

func init() {
	rootCmd.AddCommand(mqttCmd)
}
