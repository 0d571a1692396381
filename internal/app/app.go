package app

import (
	"fmt"
	"log"
	"os"

	"sprintreport/internal/config"
	"sprintreport/internal/httpx"

	"github.com/spf13/cobra"
)

func Main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "sprintreport",
		Short: "Story-point reports for Jira sprints",
		Long: `sprintreport reads a Jira Agile board, picks the current, next or previous
sprint and writes story-point totals per team and status to a CSV file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is ./config.yaml or $CONFIG_PATH)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// loadConfig loads the configuration and applies process-wide settings.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Team=%s Board=%d Teams=%v Unmapped=%s EpicRules=%d Timezone=%s History=%t Slack=%t LLM=%t ExternalHTTPTimeout=%s",
		cfg.TeamName,
		cfg.BoardID,
		cfg.Teams,
		cfg.UnmappedTeam,
		len(cfg.EpicMapping),
		cfg.Timezone,
		cfg.HistoryEnabled(),
		cfg.SlackConfigured(),
		cfg.LLMSummaryEnabled,
		appliedHTTPTimeout,
	)
	return cfg, nil
}
