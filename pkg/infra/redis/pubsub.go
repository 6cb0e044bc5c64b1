package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldaudit/internal/model"
)

// DefaultScanChannel 默认通知频道
const DefaultScanChannel = "anomaly_scan_complete"

// PubSub Redis 发布/订阅客户端
type PubSub struct {
	client  *redis.Client
	channel string
}

// NewPubSub 创建 PubSub 实例
func NewPubSub(client *redis.Client, channel string) *PubSub {
	if channel == "" {
		channel = DefaultScanChannel
	}
	return &PubSub{
		client:  client,
		channel: channel,
	}
}

// AnomalyScanNotification 检测完成通知消息（告警系统订阅）
type AnomalyScanNotification struct {
	RunID             string         `json:"run_id"`
	WindowStart       string         `json:"window_start"`
	AnomaliesDetected int            `json:"anomalies_detected"`
	NewFlagsStored    int            `json:"new_flags_stored"`
	Skipped           int            `json:"skipped"`
	Failed            int            `json:"failed"`
	HighSeverity      int            `json:"high_severity"`
	DetectorCounts    map[string]int `json:"detector_counts"`
	Timestamp         int64          `json:"timestamp"`
}

// NewAnomalyScanNotification 由运行汇总构造通知
func NewAnomalyScanNotification(summary *model.RunSummary) *AnomalyScanNotification {
	n := &AnomalyScanNotification{
		RunID:             summary.RunID,
		WindowStart:       summary.WindowStart,
		AnomaliesDetected: summary.AnomaliesDetected,
		NewFlagsStored:    summary.NewFlagsStored,
		Skipped:           summary.Skipped,
		Failed:            len(summary.Failures),
		DetectorCounts:    make(map[string]int, len(summary.DetectorCounts)),
		Timestamp:         summary.FinishedAt.Unix(),
	}
	if summary.FinishedAt.IsZero() {
		n.Timestamp = time.Now().Unix()
	}
	for k, v := range summary.DetectorCounts {
		n.DetectorCounts[string(k)] = v
	}
	for _, f := range summary.Flags {
		if f.Severity == model.SeverityHigh || f.Severity == model.SeverityCritical {
			n.HighSeverity++
		}
	}
	return n
}

// PublishScanComplete 发布检测完成通知
func (p *PubSub) PublishScanComplete(ctx context.Context, summary *model.RunSummary) error {
	msgJSON, err := json.Marshal(NewAnomalyScanNotification(summary))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Subscribe 订阅通知频道
func (p *PubSub) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}
