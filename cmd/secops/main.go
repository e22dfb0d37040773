package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/djvirus9/secops-dashboard/internal/api"
	"github.com/djvirus9/secops-dashboard/internal/config"
	"github.com/djvirus9/secops-dashboard/internal/ingest"
	"github.com/djvirus9/secops-dashboard/internal/logging"
	"github.com/djvirus9/secops-dashboard/internal/notifications"
	"github.com/djvirus9/secops-dashboard/internal/parsers"
	"github.com/djvirus9/secops-dashboard/internal/store"
	"github.com/djvirus9/secops-dashboard/internal/triage"
	"github.com/djvirus9/secops-dashboard/internal/websocket"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "secops",
	Short:   "SecOps Dashboard - security finding ingestion and correlation",
	Long:    `SecOps Dashboard ingests security scanner output, deduplicates findings by fingerprint, scores risk and drives triage.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SecOps Dashboard %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

var parsersCmd = &cobra.Command{
	Use:   "parsers",
	Short: "List the supported scanner formats",
	Run: func(cmd *cobra.Command, args []string) {
		for _, info := range parsers.Default().List() {
			fmt.Printf("%-22s %-15s %s\n", info.Name, info.Category, info.DisplayName)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(parsersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "secops",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "secops",
	})

	db, err := store.New(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer db.Close()
	log.Info().Str("path", db.Path()).Msg("Store opened")

	overrides, err := config.LoadSeverityOverrides(cfg.SeverityOverridesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load severity overrides")
	}

	registry := parsers.Default()
	service := ingest.NewService(db, registry, ingest.NewNormalizer(overrides))
	triageService := triage.NewService(db)

	var (
		slack      *notifications.SlackNotifier
		ticketing  notifications.Ticketing
		notifier   notifications.Notifier
		dispatcher *notifications.Dispatcher
	)
	if cfg.SlackWebhookURL != "" {
		slack = notifications.NewSlackNotifier(cfg.SlackWebhookURL)
		notifier = slack
		log.Info().Msg("Slack notifications enabled")
	}
	if cfg.JiraConfigured() {
		ticketing = notifications.NewJiraTicketing(cfg.JiraBaseURL, cfg.JiraEmail, cfg.JiraAPIToken, cfg.JiraProjectKey)
		log.Info().Str("project", cfg.JiraProjectKey).Msg("Jira ticketing enabled")
	}
	dispatcher = notifications.NewDispatcher(notifier, ticketing)
	service.SetDispatcher(dispatcher)

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()
	service.SetEventSink(hub)

	router := api.NewRouter(api.Deps{
		Store:      db,
		Registry:   registry,
		Ingest:     service,
		Triage:     triageService,
		Dispatcher: dispatcher,
		Slack:      slack,
		Hub:        hub,
		Version:    Version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("version", Version).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
