package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"fieldaudit/internal/domains"
	"fieldaudit/internal/domains/common"
	"fieldaudit/internal/framework"
	"fieldaudit/pkg/config"
	"fieldaudit/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx        context.Context
	cfg        *config.Config
	source     framework.MessageSource
	deps       *common.Deps
	workers    []Worker
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager
// source 为消息源（lmstfy 客户端）；deps.Callback 为空时不发送回调
func NewManagerInstance(cfg *config.Config, source framework.MessageSource, deps *common.Deps, log logger.Logger) (*ManagerInstance, error) {
	if source == nil {
		return nil, fmt.Errorf("message source is required")
	}
	if deps == nil || deps.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}

	ctx := context.Background()
	log.Infof(ctx, "[Manager] Initialized with %d worker configs, callback_queue: %q", len(cfg.Workers), deps.CallbackQueue)

	return &ManagerInstance{
		ctx:        ctx,
		cfg:        cfg,
		source:     source,
		deps:       deps,
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		workers:    make([]Worker, 0, len(cfg.Workers)),
		logger:     log,
	}, nil
}

// Start 启动 Manager（阻塞直到 Shutdown）
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	m.mu.Lock()
	if m.closing.Load() {
		m.mu.Unlock()
		return nil
	}

	// 1. 加载所有 Worker
	if err := m.loadWorkers(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to load workers: %w", err)
	}

	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	m.mu.Unlock()
	m.logger.Infof(m.ctx, "[Manager] Start success")

	// 3. 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	if m.closing.CAS(false, true) {
		m.mu.Lock()
		defer m.mu.Unlock()

		// 1. 所有 Worker 安全退出
		for _, worker := range m.workers {
			m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
			worker.Shutdown()
			m.logger.Infof(m.ctx, "[Manager] Worker %s stats: %+v", worker.GetName(), worker.Stats())
		}

		// 2. 等待所有 Worker 退出
		m.wg.Wait()

		// 3. 关闭信号通道
		close(m.shutdownCh)

		m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
	}
}

// loadWorkers 按配置创建 Worker
func (m *ManagerInstance) loadWorkers() error {
	for _, workerCfg := range m.cfg.Workers {
		subCfg := &framework.SubscriberConfig{
			QueueName:    workerCfg.QueueName,
			Concurrency:  workerCfg.Subscriber.Threads,
			Rate:         workerCfg.Subscriber.Rate,
			Timeout:      workerCfg.Subscriber.Timeout,
			TTR:          workerCfg.Subscriber.TTR,
			ErrorBackoff: workerCfg.Subscriber.ErrorBackoff,
		}

		procCfg := &framework.ProcessorConfig{
			Concurrency: workerCfg.Processor.Threads,
			BufferSize:  workerCfg.Processor.BufferSize,
			Timeout:     workerCfg.Processor.Timeout,
		}

		// 每个 Worker 可以配置自己的回调队列
		deps := *m.deps
		if workerCfg.CallbackQueue != "" {
			deps.CallbackQueue = workerCfg.CallbackQueue
		}

		worker, err := NewWorkerInstance(
			m.ctx,
			workerCfg.Name,
			subCfg,
			procCfg,
			m.source,
			domains.GetProcess(m.logger, &deps),
			m.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", workerCfg.Name, err)
		}

		m.workers = append(m.workers, worker)
	}

	return nil
}
