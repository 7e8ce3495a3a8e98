package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskhive",
	Short: "Taskhive task management server",
	Long:  "Taskhive is a multi-tenant task management backend with personal and team-owned task lists, team membership roles, and list-derived access control.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/taskhive.yaml)")
}

func main() {
	// Local development convenience; a missing .env file is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
