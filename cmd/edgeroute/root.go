package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "edgeroute",
	Short:         "EdgeRoute easter-egg service",
	Long:          "EdgeRoute serves the site's hidden easter eggs: key and click sequences, achievements and the Konami mini-game.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("eggs", "", "Path to an easter-egg definitions file (overrides EGGS_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(konamiCmd)
}

// resolveEggsFile returns --eggs when set, otherwise the configured file.
func resolveEggsFile(cmd *cobra.Command, fallback string) string {
	if p, _ := cmd.Flags().GetString("eggs"); p != "" {
		return p
	}
	return fallback
}
