package cmd

import (
	"fmt"
	"os"

	"GreetFM/config"
	"GreetFM/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check Redis connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if err := db.ConnectRedis(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "redis connect failed: %v\n", err)
			os.Exit(1)
		}
		defer db.CloseRedis()

		if err := db.TestRedis(); err != nil {
			fmt.Fprintf(os.Stderr, "redis check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("redis ok")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
