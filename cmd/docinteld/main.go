package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/docintel/internal/app"
	"github.com/joseph-ayodele/docintel/internal/common"
	"github.com/joseph-ayodele/docintel/internal/ingest"
	"github.com/joseph-ayodele/docintel/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	useCatalog := cfg.Database.DSN != ""
	if err := cfg.Validate(false); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	logger.Info("starting docinteld", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.Options{
		UseCatalog: useCatalog,
		Migrate:    getenvBool("AUTO_MIGRATE", true),
		Publish:    true,
	}, logger)
	if err != nil {
		logger.Error("failed to wire application", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	if !useCatalog {
		logger.Warn("DB_URL not set; running without a document catalog")
	}

	var store ingest.DocumentStore
	if a.Docs != nil {
		store = a.Docs
	}
	svc := server.NewIntelligenceService(a.Processor, store, logger)

	// gRPC
	grpcAddr := normalizeAddr(cfg.Server.GRPCAddr)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", grpcAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(svc, int(cfg.Server.MaxUploadBytes)*2, logger)
	reflection.Register(grpcServer)

	// HTTP
	httpServer := &http.Server{
		Addr: normalizeAddr(cfg.Server.HTTPAddr),
		Handler: server.NewRouter(server.RouterConfig{
			Service:        svc,
			Metrics:        a.MetricsHandler(),
			Health:         a.Health,
			Exporter:       a.Exporter,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("grpc listening", "addr", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("http listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	done := make(chan struct{})
	go func() { grpcServer.GracefulStop(); close(done) }()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		grpcServer.Stop()
	}
	logger.Info("stopped")
}

func normalizeAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func getenvBool(k string, def bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}
