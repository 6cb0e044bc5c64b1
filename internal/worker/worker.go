package worker

import (
	"context"
	"fmt"
	"time"

	"fieldaudit/internal/framework"
	"fieldaudit/pkg/lmstfyx"
	"fieldaudit/pkg/logger"
)

// Worker 单个队列的消费单元
type Worker interface {
	Start()
	Shutdown()
	GetName() string
	Stats() framework.ProcessorStats
}

// WorkerInstance Subscriber -> inputChan -> Processor
type WorkerInstance struct {
	ctx    context.Context
	name   string
	logger logger.Logger

	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message

	started chan struct{}
	stopped chan struct{}
}

// NewWorkerInstance 创建 Worker，proc 为 domains.GetProcess 返回的处理函数
func NewWorkerInstance(
	ctx context.Context,
	name string,
	subscriberCfg *framework.SubscriberConfig,
	processorCfg *framework.ProcessorConfig,
	source framework.MessageSource,
	proc lmstfyx.Proc,
	log logger.Logger,
) (Worker, error) {
	if subscriberCfg.Concurrency <= 0 || processorCfg.Concurrency <= 0 {
		return nil, fmt.Errorf("worker %s: subscriber and processor threads must be positive", name)
	}

	return &WorkerInstance{
		ctx:        ctx,
		name:       name,
		logger:     log,
		subscriber: framework.NewSubscriber(subscriberCfg, source, log),
		processor:  framework.NewProcessor(processorCfg, proc, source, log),
		inputChan:  make(chan *framework.Message, processorCfg.BufferSize),
		started:    make(chan struct{}),
		stopped:    make(chan struct{}),
	}, nil
}

// Start 先启动 Processor 再启动 Subscriber，阻塞到 Shutdown 完成
func (w *WorkerInstance) Start() {
	_ = w.processor.Start(w.ctx, w.inputChan)
	_ = w.subscriber.Start(w.ctx, w.inputChan)
	close(w.started)
	w.logger.Infof(w.ctx, "[Worker] %s started", w.name)

	<-w.stopped
}

// Shutdown 停止拉取后排空 inputChan，已拉取的消息都会被处理并回报
func (w *WorkerInstance) Shutdown() {
	<-w.started
	begin := time.Now()
	w.logger.Infof(w.ctx, "[Worker] %s draining", w.name)

	stages := []struct {
		name string
		fn   func()
	}{
		{"stop subscriber", w.subscriber.Stop},
		{"wait subscriber", w.subscriber.Wait},
		{"signal processor", w.processor.SignalShutdown},
		{"wait processor", w.processor.Wait},
	}
	for _, stage := range stages {
		stage.fn()
		w.logger.Debugf(w.ctx, "[Worker] %s %s done (%v)", w.name, stage.name, time.Since(begin))
	}

	close(w.stopped)
	stats := w.Stats()
	w.logger.Infof(w.ctx, "[Worker] %s stopped: processed=%d acked=%d released=%d buried=%d",
		w.name, stats.Processed, stats.Acked, stats.Released, stats.Buried)
}

// Stats 处理计数
func (w *WorkerInstance) Stats() framework.ProcessorStats {
	return w.processor.Stats()
}

// GetName Worker 名称（配置中的 name）
func (w *WorkerInstance) GetName() string {
	return w.name
}
