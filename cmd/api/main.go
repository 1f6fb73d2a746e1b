package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrcore.io/internal/audit"
	"hrcore.io/internal/auth"
	"hrcore.io/internal/httpapi"
	"hrcore.io/internal/obs"
	"hrcore.io/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("HRCORE_AUTH_SECRET")
	if secret == "" {
		log.Fatal("HRCORE_AUTH_SECRET is required")
	}

	dsn := os.Getenv("HRCORE_PG_DSN")
	if dsn == "" {
		log.Fatal("HRCORE_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	tokenOpts := []auth.TokenOption{}
	if raw := os.Getenv("HRCORE_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse HRCORE_TOKEN_TTL: %v", err)
		}
		tokenOpts = append(tokenOpts, auth.WithTokenTTL(ttl))
	}
	// Short keys are a configuration error; refuse to start.
	tokens, err := auth.NewTokenService([]byte(secret), tokenOpts...)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	svc, err := auth.NewService(store, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	ctx := context.Background()
	if err := svc.EnsureBuiltins(ctx); err != nil {
		log.Fatalf("ensure builtin roles: %v", err)
	}

	recorder, err := audit.NewRecorder(store.Audit(ctx))
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		Ready:    httpapi.ReadyProbe{DB: store.DB()},
		Version:  version,
		Auth:     svc,
		Engine:   auth.NewEngine(),
		Recorder: recorder,
	})

	addr := os.Getenv("HRCORE_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting hrcore-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	// Drain queued audit events before closing the DB.
	_ = recorder.Close(shutdownCtx)
	log.Println("Stopped")
}
