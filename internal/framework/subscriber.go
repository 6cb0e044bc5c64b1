package framework

import (
	"context"
	"sync"
	"time"

	"fieldaudit/pkg/logger"
)

// Subscriber 订阅者：从消息队列拉取消息，转发给 Processor
type Subscriber struct {
	cfg        *SubscriberConfig
	source     MessageSource // 消息源（lmstfy 适配器）
	logger     Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSubscriber 创建订阅者
func NewSubscriber(cfg *SubscriberConfig, source MessageSource, logger Logger) *Subscriber {
	return &Subscriber{
		cfg:    cfg.withDefaults(),
		source: source,
		logger: logger,
	}
}

// Start 启动订阅循环
func (s *Subscriber) Start(parentCtx context.Context, inputChan chan<- *Message) error {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	s.logger.Infof(ctx, "[Subscriber] Starting with %d workers for queue: %s",
		s.cfg.Concurrency, s.cfg.QueueName)

	for i := 0; i < s.cfg.Concurrency; i++ {
		workerID := i
		s.wg.Add(1)
		go s.loop(logger.WithWorkerID(ctx, workerID), workerID, inputChan)
	}

	return nil
}

// Stop 停止订阅（不再拉取新消息）
func (s *Subscriber) Stop() {
	s.logger.Infof(context.Background(), "[Subscriber] Stopping...")
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Wait 等待所有订阅协程退出
func (s *Subscriber) Wait() {
	s.wg.Wait()
	s.logger.Infof(context.Background(), "[Subscriber] All workers exited")
}

// loop 单个订阅协程：pull -> inputChan -> 限速，ctx 取消后退出
func (s *Subscriber) loop(ctx context.Context, workerID int, inputChan chan<- *Message) {
	defer s.wg.Done()
	defer s.logger.Infof(ctx, "[Subscriber-%d] exited", workerID)

	for ctx.Err() == nil {
		msg, wait := s.pull(ctx, workerID)
		if msg != nil && !s.forward(ctx, workerID, msg, inputChan) {
			return
		}
		if !s.sleep(ctx, wait) {
			return
		}
	}
}

// pull 拉取一条消息；出错时返回退避时长，网络抖动不退出
func (s *Subscriber) pull(ctx context.Context, workerID int) (*Message, time.Duration) {
	msg, err := s.source.Consume(s.cfg.QueueName, s.cfg.Timeout, s.cfg.TTR)
	if err != nil {
		s.logger.Warnf(ctx, "[Subscriber-%d] consume %s failed: %v, backoff %v",
			workerID, s.cfg.QueueName, err, s.cfg.ErrorBackoff)
		return nil, s.cfg.ErrorBackoff
	}
	if msg == nil {
		return nil, 0
	}
	return msg, s.cfg.Rate
}

// forward 交给 Processor；关闭期间放弃的消息在 TTR 后由 lmstfy 重新投递
func (s *Subscriber) forward(ctx context.Context, workerID int, msg *Message, inputChan chan<- *Message) bool {
	select {
	case inputChan <- msg:
		s.logger.Debugf(ctx, "[Subscriber-%d] message %s queued", workerID, msg.ID)
		return true
	case <-ctx.Done():
		s.logger.Warnf(ctx, "[Subscriber-%d] shutdown, message %s left for redelivery", workerID, msg.ID)
		return false
	}
}

// sleep 可被取消的等待；返回 false 表示 ctx 已取消
func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
