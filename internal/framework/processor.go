package framework

import (
	"context"
	"sync"
	"time"

	"github.com/bitleak/lmstfy/client"
	"go.uber.org/atomic"

	"fieldaudit/pkg/lmstfyx"
	"fieldaudit/pkg/logger"
)

// ProcessorStats 处理计数
type ProcessorStats struct {
	Processed int64
	Acked     int64
	Buried    int64
	Released  int64
	AckErrors int64
}

// Processor 处理器：接收消息，调用业务处理函数，按结果 ACK / Bury / Release
type Processor struct {
	cfg        *ProcessorConfig
	proc       lmstfyx.Proc // 业务处理函数（注入的 GetProcess）
	source     MessageSource
	logger     Logger
	shutdownCh chan struct{} // 专门的退出信号通道
	wg         sync.WaitGroup

	processed *atomic.Int64
	acked     *atomic.Int64
	buried    *atomic.Int64
	released  *atomic.Int64
	ackErrors *atomic.Int64
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc lmstfyx.Proc, source MessageSource, logger Logger) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		logger:     logger,
		shutdownCh: make(chan struct{}),
		processed:  atomic.NewInt64(0),
		acked:      atomic.NewInt64(0),
		buried:     atomic.NewInt64(0),
		released:   atomic.NewInt64(0),
		ackErrors:  atomic.NewInt64(0),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) error {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		workerID := i
		p.wg.Add(1)
		go p.loop(ctx, workerID, inputChan)
	}

	return nil
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	p.logger.Infof(context.Background(), "[Processor] All workers exited")
}

// Stats 当前计数快照
func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Processed: p.processed.Load(),
		Acked:     p.acked.Load(),
		Buried:    p.buried.Load(),
		Released:  p.released.Load(),
		AckErrors: p.ackErrors.Load(),
	}
}

// loop 处理循环（单个 Worker）
func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()
	ctx = logger.WithWorkerID(ctx, workerID)
	p.logger.Infof(ctx, "[Processor-%d] Started", workerID)

	for {
		select {
		// A. 正常业务处理
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)

		// B. Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			p.logger.Infof(ctx, "[Processor-%d] Entering DRAIN mode", workerID)
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg, workerID)
					count++
				default:
					p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}

	startTime := time.Now()

	// 1. 创建超时控制的 Context
	procCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	p.logger.Infof(procCtx, "[Processor-%d] Processing message: %s", workerID, msg.ID)

	// 2. 调用业务处理函数
	job := &client.Job{
		ID:    msg.ID,
		Queue: msg.Queue,
		Data:  msg.Data,
	}
	resp := p.proc(procCtx, job)
	p.processed.Inc()
	if resp == nil {
		resp = &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
	}

	// 3. 根据处理结果操作消息
	p.report(procCtx, msg, resp, workerID)

	p.logger.Infof(procCtx, "[Processor-%d] Message processed: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, time.Since(startTime))
}

// report Success → ACK；Bury → ACK 并记录错误（lmstfy 无 bury 接口，删除即丢弃）；
// Release → 不 ACK，TTR 到期后由 lmstfy 重新投递
func (p *Processor) report(ctx context.Context, msg *Message, resp *lmstfyx.JobResp, workerID int) {
	switch resp.Action {
	case lmstfyx.JobRespStatusSuccess:
		if p.ack(ctx, msg, workerID) {
			p.acked.Inc()
		}
	case lmstfyx.JobRespStatusBury:
		p.logger.Errorf(ctx, "[Processor-%d] Burying message %s: %s", workerID, msg.ID, string(resp.Data))
		if p.ack(ctx, msg, workerID) {
			p.buried.Inc()
		}
	case lmstfyx.JobRespStatusRelease:
		p.logger.Warnf(ctx, "[Processor-%d] Releasing message %s for redelivery", workerID, msg.ID)
		p.released.Inc()
	}
}

func (p *Processor) ack(ctx context.Context, msg *Message, workerID int) bool {
	if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
		p.ackErrors.Inc()
		p.logger.Errorf(ctx, "[Processor-%d] Ack message %s failed: %v", workerID, msg.ID, err)
		return false
	}
	return true
}
