package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carpsolver/internal/api"
	"carpsolver/internal/buildinfo"
	"carpsolver/internal/config"
	"carpsolver/internal/logging"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	boot := logging.Default()
	cfg, err := config.Load(os.Getenv("CARP_CONFIG"))
	if err != nil {
		boot.Errorf("config: %v", err)
		os.Exit(1)
	}
	lvl, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		boot.Errorf("config: %v", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, lvl)

	srvDeps, err := api.NewServer(cfg, log)
	if err != nil {
		log.Errorf("failed to init server: %v", err)
		os.Exit(1)
	}

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(log, srvDeps.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start webhook worker
	worker := srvDeps.NewWebhookWorker()
	worker.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() {
		log.Infof("API %s listening on %s", buildinfo.Version, addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
		}
	case <-ctx.Done():
		log.Infof("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	worker.Shutdown()
	if err := srvDeps.Close(); err != nil {
		log.Errorf("close: %v", err)
	}
}

func logMiddleware(log *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Infof("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}
