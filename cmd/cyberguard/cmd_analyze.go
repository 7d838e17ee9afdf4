package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechNxt05/CyberGuard/internal/knowledge"
	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/triage"
)

var analyzeFlags struct {
	message string
	source  string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one scam triage analysis and print the result as JSON",
	Long: `Classify a single suspicious message without starting the server.

Usage:
  cyberguard analyze -m "Your parcel is held at customs, pay 50 INR" -s sms`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.message, "message", "m", "", "Suspicious message text")
	f.StringVarP(&analyzeFlags.source, "source", "s", "unknown", "Message source (whatsapp/sms/call/email)")
	analyzeCmd.MarkFlagRequired("message")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	deps := triage.Deps{
		Chain:    rt.chain,
		Research: rt.research,
		Patterns: knowledge.NewPatternIndex(),
		Store:    rt.store,
	}

	result, err := triage.Analyze(cmd.Context(), deps, models.AnalysisRequest{
		Message: analyzeFlags.message,
		Source:  analyzeFlags.source,
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return printJSON(result)
}
