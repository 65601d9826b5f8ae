package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finsheet/internal/amqp"
	"finsheet/internal/storage"
	"finsheet/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	var report time.Duration
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume ledger events from AMQP into the SQLite journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), report)
		},
	}
	cmd.Flags().DurationVar(&report, "report-interval", 5*time.Minute, "How often to log the journal size (0 disables)")
	return cmd
}

func runWorker(ctx context.Context, report time.Duration) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if !cfg.EventsEnabled() {
		return errors.New("AMQP_URL is required for the worker")
	}

	journal, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	defer client.Close()

	logger.Info("Starting journal worker", "db_path", cfg.SQLiteDBPath, "queue", cfg.AMQPQueue)
	return worker.NewJournalWorker(journal, client, report, logger).Run(ctx)
}
