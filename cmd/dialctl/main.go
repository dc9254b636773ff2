package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/emeghara/dialctl/internal/call"
	"github.com/emeghara/dialctl/internal/callapi"
	"github.com/emeghara/dialctl/internal/config"
	"github.com/emeghara/dialctl/internal/httpapi"
	"github.com/emeghara/dialctl/internal/leads"
	"github.com/emeghara/dialctl/internal/observability"
)

func main() {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	leadStore, err := leads.NewStore(runCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("lead store init failed: %v", err)
	}
	defer leadStore.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("lead store: in-memory (DATABASE_URL not set)")
	} else {
		log.Printf("lead store: postgres")
	}

	client := callapi.NewClient(cfg.CallServiceURL, cfg.CallServiceAPIKey, cfg.RequestTimeout)
	hub := httpapi.NewEventHub()
	controller := call.NewController(runCtx, client, hub, metrics, cfg.FromNumber, cfg.PollInterval)

	api := httpapi.New(cfg, controller, client, leadStore, hub)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("dialctl listening on %s (call service %s)", cfg.BindAddr, cfg.CallServiceURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	// Best effort: hang up an active call before exiting so the remote leg
	// does not stay connected unattended.
	if controller.Status().State == call.StateActive {
		if err := controller.StopCall(runCtx); err != nil {
			log.Printf("hangup on shutdown: %v", err)
		}
	}

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
