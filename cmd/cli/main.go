package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	postgresRepo "github.com/finbooks/journal/internal/adapter/repository/postgres"
	"github.com/finbooks/journal/internal/infrastructure/config"
	"github.com/finbooks/journal/internal/infrastructure/dispatcher"
	"github.com/finbooks/journal/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "journal-cli",
		Short: "Journal service CLI tool",
		Long:  `A command line interface for interacting with the journal posting API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the journal API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(entriesCmd(), sagasCmd(), outboxCmd(), migrateCmd(), dispatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Journal entry operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Get a journal entry with its lines",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/entries/" + args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/entries")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "events <id>",
		Short: "List outbox events recorded for an entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/entries/" + args[0] + "/events")
		},
	})

	return cmd
}

func sagasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sagas",
		Short: "Saga execution records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saga executions",
		Run: func(cmd *cobra.Command, args []string) {
			listSagas()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Get a saga execution with its steps",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/sagas/" + args[0])
		},
	})

	return cmd
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox dead-letter operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "dead-letters",
		Short: "List events that exhausted their retry budget",
		Run: func(cmd *cobra.Command, args []string) {
			listDeadLetters()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "requeue <event-id>",
		Short: "Requeue a dead-lettered event for dispatch",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			requeueEvent(args[0])
		},
	})

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete dispatched events older than the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			cleanupDispatched(olderThan)
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Retention window for dispatched events")
	cmd.AddCommand(cleanup)

	return cmd
}

func cleanupDispatched(olderThan time.Duration) {
	cfg := mustLoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		fmt.Printf("Failed to connect to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	outboxRepo := postgresRepo.NewOutboxRepository(pool, cfg.DispatchStagedGrace)
	if err := outboxRepo.DeleteDispatched(ctx, time.Now().UTC().Add(-olderThan)); err != nil {
		fmt.Printf("Cleanup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Dispatched events cleaned up")
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migration operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				fmt.Printf("Migration failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations applied")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := mustLoadConfig()
			if err := postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				fmt.Printf("Rollback failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Migration rolled back")
		},
	})

	return cmd
}

func dispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Outbox dispatch operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Run a single outbox dispatch cycle against the log transport",
		Run: func(cmd *cobra.Command, args []string) {
			dispatchOnce()
		},
	})

	return cmd
}

func dispatchOnce() {
	cfg := mustLoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		fmt.Printf("Failed to connect to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	d := dispatcher.New(dispatcher.Config{
		OutboxRepo:  postgresRepo.NewOutboxRepository(pool, cfg.DispatchStagedGrace),
		JournalRepo: postgresRepo.NewJournalRepository(pool),
		Transport:   dispatcher.NewLogTransport(logger),
		Logger:      logger,
		BatchSize:   cfg.DispatchBatchSize,
		MaxAttempts: cfg.DispatchMaxAttempts,
	})

	if err := d.ProcessOnce(ctx); err != nil {
		fmt.Printf("Dispatch cycle failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Dispatch cycle completed")
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func listSagas() {
	body := fetch("/api/v1/sagas")

	var sagas []map[string]any
	if err := json.Unmarshal(body, &sagas); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-28s %-20s %-20s\n", "ID", "TYPE", "STATUS")
	for _, saga := range sagas {
		fmt.Printf("%-28s %-20s %-20s\n",
			truncate(stringField(saga, "id"), 28),
			stringField(saga, "type"),
			stringField(saga, "status"),
		)
	}
}

func listDeadLetters() {
	body := fetch("/api/v1/outbox/dead-letters")

	var events []map[string]any
	if err := json.Unmarshal(body, &events); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No dead-lettered events")
		return
	}

	fmt.Printf("%-28s %-10s %-8s %s\n", "ID", "ACTION", "ATTEMPTS", "LAST ERROR")
	for _, event := range events {
		attempts, _ := event["attempts"].(float64)
		fmt.Printf("%-28s %-10s %-8d %s\n",
			truncate(stringField(event, "id"), 28),
			stringField(event, "action"),
			int(attempts),
			truncate(stringField(event, "last_error"), 50),
		)
	}
}

func requeueEvent(id string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+"/api/v1/outbox/dead-letters/"+id+"/requeue", "application/json", nil)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Requeue FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	fmt.Printf("Event %s requeued\n", id)
}

func getJSON(path string) {
	body := fetch(path)

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	printJSON(result)
}

func fetch(path string) []byte {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	return body
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
