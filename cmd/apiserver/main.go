package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"fieldaudit/internal/app"
	"fieldaudit/internal/server/handlers/scan"
	"fieldaudit/internal/server/middlewares"
	"fieldaudit/internal/server/routers"
	"fieldaudit/pkg/config"
	"fieldaudit/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/apiserver.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 2. 初始化依赖
	ctx := context.Background()
	infra, cleanup, err := app.NewInfra(ctx, cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to init infra: %v", err)
	}
	defer cleanup()

	svc, err := app.NewDetectionService(cfg, infra, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create detection service: %v", err)
	}

	// 3. 创建 HTTP Server
	gin.SetMode(cfg.Server.Mode)
	engine := routers.SetupRoutes(
		scan.NewScanHandler(svc, cfg.Detection.Thresholds.Location, zapLogger),
		middlewares.AuthConfig{
			SchedulerSecret: cfg.Auth.SchedulerSecret,
			AdminTokens:     cfg.Auth.AdminTokens,
		},
		zapLogger,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 4. 优雅停机
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal, gracefully shutting down...")
	case err := <-serverErrChan:
		log.Printf("HTTP server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}
}
