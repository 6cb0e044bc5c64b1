package framework

import (
	"time"

	"fieldaudit/pkg/logger"
)

// MessageSource 消息源（lmstfy 适配器实现）
// Consume 为长轮询：timeout 内没有消息时返回 nil, nil
// 拉取到的消息在 ttr 内未 Ack 会被重新投递
type MessageSource interface {
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)
	Ack(queue string, jobID string) error
}

// Logger 框架使用的日志接口
type Logger = logger.Logger

// Message Subscriber 与 Processor 之间流转的消息
type Message struct {
	ID    string
	Queue string
	Data  []byte // lmstfy 原始 Job 数据
}
