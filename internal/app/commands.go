package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sprintreport/internal/aggregate"
	"sprintreport/internal/config"
	"sprintreport/internal/integrations/jira"
	"sprintreport/internal/integrations/llm"
	slackbot "sprintreport/internal/integrations/slack"
	"sprintreport/internal/report"
	"sprintreport/internal/schedule"
	"sprintreport/internal/sprint"
	"sprintreport/internal/sprintreport"
	"sprintreport/internal/storage/sqlite"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var sprintFlag string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate the report once",
		Long:  `Selects a sprint on the configured board, aggregates its story points and writes the CSV report.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var choice sprint.Choice
			if sprintFlag != "" {
				var err error
				if choice, err = sprint.ParseChoice(sprintFlag); err != nil {
					return err
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if sprintFlag == "" {
				if choice, err = sprint.ParseChoice(cfg.DefaultSprint); err != nil {
					return err
				}
			}

			runner, closeFn, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := runner.Run(cmd.Context(), choice)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), res.Table)
			if res.Narrative != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", res.Narrative)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", res.CSVPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sprintFlag, "sprint", "s", "", "sprint to report on: current, next or previous (default from config)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Generate the report on the configured cron schedule",
		Long:  `Runs until interrupted, generating the default sprint report at every activation of report_schedule.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.ReportSchedule == "" {
				return fmt.Errorf("report_schedule is not set")
			}
			choice, err := sprint.ParseChoice(cfg.DefaultSprint)
			if err != nil {
				return err
			}

			runner, closeFn, err := buildRunner(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Println("Starting sprint report scheduler...")
			return schedule.Run(ctx, cfg.ReportSchedule, cfg.Location, func(ctx context.Context) {
				res, err := runner.Run(ctx, choice)
				if err != nil {
					log.Printf("Scheduled report failed: %v", err)
					return
				}
				log.Printf("Scheduled report complete: sprint=%q path=%s", res.Sprint.Name, res.CSVPath)
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var showRows bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent report runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.HistoryEnabled() {
				return fmt.Errorf("run history is disabled: set db_path")
			}
			db, err := sqlite.InitDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening history database: %w", err)
			}
			defer db.Close()

			return printHistory(cmd, db, limit, showRows, cfg)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().BoolVar(&showRows, "rows", false, "print the stored rows of each run")
	return cmd
}

func printHistory(cmd *cobra.Command, db *sql.DB, limit int, showRows bool, cfg config.Config) error {
	runs, err := sqlite.GetRecentRuns(db, limit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No report runs recorded yet.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "#%d  %s  sprint %d %q (%s)  %s\n",
			run.ID, run.GeneratedAt.In(cfg.Location).Format("2006-01-02 15:04"),
			run.SprintID, run.SprintName, run.Choice, run.CSVPath)
		if !showRows {
			continue
		}
		rows, err := sqlite.GetRunRows(db, run.ID)
		if err != nil {
			return fmt.Errorf("loading rows for run %d: %w", run.ID, err)
		}
		fmt.Fprintln(out, report.RenderText("", rows))
	}
	return nil
}

// buildRunner wires the Jira client and the optional side channels. The
// returned func releases the history database.
func buildRunner(cfg config.Config) (*sprintreport.Runner, func(), error) {
	mapping, err := aggregate.NewEpicMapping(cfg.Teams, cfg.UnmappedTeam, cfg.EpicMapping)
	if err != nil {
		return nil, nil, err
	}
	rules := aggregate.StatusRules{NotStarted: cfg.NotStartedStatuses, Done: cfg.DoneStatuses}

	runner := &sprintreport.Runner{
		Board:           jira.NewClient(cfg),
		Aggregator:      aggregate.New(mapping, rules),
		IncludeEpicRows: cfg.IncludeEpicRows,
		OutputDir:       cfg.ReportOutputDir,
		TeamName:        cfg.TeamName,
		Location:        cfg.Location,
	}
	closeFn := func() {}

	if cfg.HistoryEnabled() {
		db, err := sqlite.InitDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening history database: %w", err)
		}
		log.Printf("Database initialized at %s", cfg.DBPath)
		runner.DB = db
		closeFn = func() { db.Close() }
	}
	if cfg.SlackConfigured() {
		runner.Notifier = slackbot.NewPoster(cfg.SlackBotToken, cfg.SlackChannelID)
	}
	if cfg.LLMSummaryEnabled {
		runner.Summarizer = llm.NewSummarizer(cfg.AnthropicAPIKey, cfg.LLMModel)
	}
	return runner, closeFn, nil
}
