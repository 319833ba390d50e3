package cmd

import (
	"fmt"
	"os"

	"GreetFM/config"
	"GreetFM/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Check MinIO connectivity and the audio bucket",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if err := storage.InitMinio(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "minio check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("minio ok, bucket %s ready\n", cfg.MinioBucket)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
