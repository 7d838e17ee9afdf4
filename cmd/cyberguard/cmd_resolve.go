package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TechNxt05/CyberGuard/internal/models"
	"github.com/TechNxt05/CyberGuard/internal/resolution"
)

var resolveFlags struct {
	description string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Run one incident resolution and print the plan as JSON",
	Long: `Build a resolution plan for a cybercrime incident without starting
the server. The case is created in the configured store.

Usage:
  cyberguard resolve -d "Someone hacked my Instagram and changed the password"`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveFlags.description, "description", "d", "", "Incident description")
	resolveCmd.MarkFlagRequired("description")
}

func runResolve(cmd *cobra.Command, _ []string) error {
	rt, err := buildRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	c := models.NewCase("cli", "", resolveFlags.description)
	if err := rt.store.CreateCase(cmd.Context(), c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}

	deps := resolution.Deps{
		Chain:    rt.chain,
		Research: rt.research,
		Store:    rt.store,
	}

	state, guide, err := resolution.Resolve(cmd.Context(), deps, "cli", c.ID, models.IncidentRequest{
		Description: resolveFlags.description,
	})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	return printJSON(map[string]interface{}{
		"case_id":       c.ID,
		"state":         state,
		"current_guide": guide,
	})
}
