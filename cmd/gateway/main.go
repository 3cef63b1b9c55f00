package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briarcliff/relaygate/internal/adminapi"
	"github.com/briarcliff/relaygate/internal/configstore"
	"github.com/briarcliff/relaygate/internal/listener"
	"github.com/briarcliff/relaygate/internal/manager"
	"github.com/briarcliff/relaygate/internal/reconciler"
	"github.com/briarcliff/relaygate/internal/telemetry"
	"github.com/briarcliff/relaygate/internal/version"
)

func main() {
	store := configstore.New()
	store.LoadEnv()
	if err := store.LoadConfigFile(); err != nil {
		log.Fatalf("config: %v", err)
	}

	static := store.Static()
	var accessLog *os.File
	if static.AccessLogPath != "" {
		f, err := os.OpenFile(static.AccessLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("access log: %v", err)
		}
		defer func() { _ = f.Close() }()
		accessLog = f
	}

	metrics := telemetry.NewMetrics()
	var accessLogWriter = io.Writer(os.Stdout)
	if accessLog != nil {
		accessLogWriter = accessLog
	}

	table := manager.New()
	deps := listener.NewDeps(metrics, accessLogWriter)
	recon := reconciler.New(store, table, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchDone := make(chan struct{})
	go func() {
		if err := configstore.WatchConfigFile(store, watchDone); err != nil {
			log.Printf("config watch: %v", err)
		}
	}()

	go recon.Run(ctx)

	adminSrv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%s", static.AdminPort),
		Handler: adminapi.NewHandler(store, metrics),
	}
	log.Printf("relaygate %s admin api listening on %s", version.Value, adminSrv.Addr)
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("admin api: %v", err)
		}
	}()

	<-ctx.Done()
	close(watchDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = adminSrv.Shutdown(shutdownCtx)
}
