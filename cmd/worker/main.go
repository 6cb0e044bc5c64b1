package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fieldaudit/internal/app"
	"fieldaudit/internal/domains/common"
	"fieldaudit/internal/worker"
	"fieldaudit/pkg/config"
	"fieldaudit/pkg/lmstfy"
	"fieldaudit/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  FieldAudit Worker Starting...")
	log.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	// 3. 初始化依赖
	infra, cleanup, err := app.NewInfra(ctx, cfg, zapLogger)
	if err != nil {
		log.Fatalf("Failed to init infra: %v", err)
	}
	defer cleanup()

	svc, err := app.NewDetectionService(cfg, infra, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create detection service: %v", err)
	}

	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		log.Fatalf("Failed to create lmstfy client: %v", err)
	}

	// 4. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, lmstfyClient, &common.Deps{
		Scanner:  svc,
		Callback: lmstfyClient,
		Location: cfg.Detection.Thresholds.Location,
		Logger:   zapLogger,
	}, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 5. 启动 Manager
	startErr := make(chan error, 1)
	go func() {
		startErr <- mgr.Start()
	}()

	log.Println("Worker started. Press Ctrl+C to shutdown.")

	// 6. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v, shutting down worker...", sig)
	case err := <-startErr:
		if err != nil {
			log.Printf("Manager start failed: %v", err)
		}
	}

	// 7. 优雅关闭 Manager
	mgr.Shutdown()

	log.Println("Worker exited gracefully")
}
