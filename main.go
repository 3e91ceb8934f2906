package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const serviceName = "dtracker"

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Discharge ticket workflow and SLA engine",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd(envErr))
	rootCmd.AddCommand(migrateCmd(envErr))
	rootCmd.AddCommand(checkSLACmd(envErr))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
