package framework

import "time"

const (
	defaultErrorBackoff = 5 * time.Second
	defaultTTR          = 10 * time.Minute
)

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	QueueName    string        // 队列名称
	Concurrency  int           // 并发拉取数
	Timeout      time.Duration // 拉取超时（长轮询）
	TTR          time.Duration // Time-To-Run，超时未 ACK 的消息会被重新投递
	Rate         time.Duration // 拉取间隔
	ErrorBackoff time.Duration // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Concurrency int           // 并发处理数
	BufferSize  int           // inputChan 缓冲区大小
	Timeout     time.Duration // 单个消息处理超时，应小于 TTR
}

// withDefaults 仅在未配置时填充；Rate 为 0 表示不限速，保持原值
func (c SubscriberConfig) withDefaults() *SubscriberConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = defaultErrorBackoff
	}
	if c.TTR <= 0 {
		c.TTR = defaultTTR
	}
	return &c
}
