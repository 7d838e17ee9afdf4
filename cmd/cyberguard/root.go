package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "cyberguard",
	Short: "Scam triage and cybercrime incident resolution backend",
	Long: "CyberGuard classifies suspicious messages as scams and walks victims\n" +
		"through resolving cybercrime incidents step by step.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.Version = version
}
