package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/search/opensearch"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	var (
		rollback int
		status   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the enabled backends",
		Long: "Applies the database schema, creates the results index, the event topic and\n" +
			"the raw-file bucket.  Backends disabled in the configuration are skipped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rollback, status)
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "roll the database schema back by N steps and exit")
	cmd.Flags().BoolVar(&status, "status", false, "print the database schema version and exit")
	return cmd
}

// MigrateStep is one backend action.
type MigrateStep struct {
	Backend string `json:"backend"`
	Action  string `json:"action"`
}

// MigrateReport lists the actions taken.
type MigrateReport struct {
	Steps []MigrateStep `json:"steps"`
}

func (r *MigrateReport) add(backend, action string) {
	r.Steps = append(r.Steps, MigrateStep{Backend: backend, Action: action})
}

func (r *MigrateReport) String() string {
	if len(r.Steps) == 0 {
		return "no backends enabled"
	}
	lines := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		lines[i] = s.Backend + ": " + s.Action
	}
	return strings.Join(lines, "\n")
}

func (r *MigrateReport) TableHeaders() []string { return []string{"BACKEND", "ACTION"} }

func (r *MigrateReport) TableRows() [][]string {
	rows := make([][]string, len(r.Steps))
	for i, s := range r.Steps {
		rows[i] = []string{s.Backend, s.Action}
	}
	return rows
}

func runMigrate(cmd *cobra.Command, rollback int, status bool) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	cfg.Ingest.ResolveNames = false

	rt, err := Bootstrap(&cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	defer cancel()

	report := &MigrateReport{}

	if rt.Database != nil {
		switch {
		case status:
			version, dirty, err := rt.Database.MigrationStatus()
			if err != nil {
				return err
			}
			report.add("postgres", fmt.Sprintf("schema version %d (dirty: %t)", version, dirty))
		case rollback > 0:
			if err := rt.Database.RollbackMigration(rollback); err != nil {
				return err
			}
			report.add("postgres", fmt.Sprintf("rolled back %d step(s)", rollback))
		default:
			if err := rt.Database.RunMigrations(); err != nil {
				return err
			}
			report.add("postgres", "schema up to date")
		}
	}
	if status || rollback > 0 {
		return PrintResult(cmd, report)
	}

	if rt.Indexer != nil {
		if err := rt.Indexer.EnsureIndex(ctx, cfg.OpenSearch.ResultsIndex, opensearch.ResultsIndexMapping()); err != nil {
			return err
		}
		report.add("opensearch", "index "+cfg.OpenSearch.ResultsIndex+" ready")
	}

	if cfg.Kafka.Enabled {
		tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, cliCtx.Logger.Named("kafka"))
		if err != nil {
			return err
		}
		defer tm.Close()
		if err := tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.Kafka.Topic)); err != nil {
			return err
		}
		report.add("kafka", "topic "+cfg.Kafka.Topic+" ready")
	}

	if rt.Storage != nil {
		if err := rt.Storage.EnsureBucket(ctx); err != nil {
			return err
		}
		report.add("minio", "bucket "+rt.Storage.Bucket()+" ready")
	}

	return PrintResult(cmd, report)
}

//Personal.AI order the ending
