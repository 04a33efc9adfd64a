package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roister/agent/internal/api"
	"roister/agent/internal/callws"
	"roister/agent/internal/config"
	"roister/agent/internal/engine"
	"roister/agent/internal/provider"
	"roister/agent/internal/store"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	st := store.New()

	eng := &engine.Engine{
		Store:          st,
		MinConfidence:  cfg.Call.MinConfidence,
		ForceRuleBased: cfg.Provider.ForceRuleBased,
	}
	if cfg.Provider.APIKey != "" {
		client := provider.NewClient(
			cfg.Provider.BaseURL,
			cfg.Provider.APIKey,
			cfg.Provider.Model,
			time.Duration(cfg.Provider.TimeoutSeconds)*time.Second,
			cfg.Provider.MaxRetries,
		)
		eng.Extract = client
		eng.Wording = client
		eng.Prospect = client
	}

	h := api.NewHandlers(cfg, st, eng)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.Handle("/metrics", promhttp.Handler())
	// WS call route. Watchdog-ended calls are pushed to any live connection.
	reg := callws.NewRegistry()
	wss := callws.NewServer(cfg, st, eng, reg)
	eng.OnSilence = wss.NotifySilence
	mux.HandleFunc("/ws/call", wss.HandleCallWS)

	// Silence watchdog
	wdCtx, wdCancel := context.WithCancel(context.Background())
	go eng.RunWatchdog(
		wdCtx,
		time.Duration(cfg.Call.SilenceTimeoutSeconds)*time.Second,
		5*time.Second,
	)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		wdCancel()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
