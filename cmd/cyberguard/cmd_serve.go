package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/TechNxt05/CyberGuard/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the CyberGuard HTTP API with the scam triage endpoint,
case management and the websocket live feed.

Provider keys (GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY) are read
from the environment or a local .env file. Missing keys are fine: the
service starts and answers with documented fallback values.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := web.NewServer(rt.cfg, rt.chain, rt.research, rt.store)
	log.Printf("🚀 CyberGuard listening on %s", rt.cfg.Web.ListenAddr)
	return srv.Start()
}
