package model

// AnomalyScanCallback 检测任务回调消息（worker → callback 队列）
type AnomalyScanCallback struct {
	RequestID   string      `json:"request_id"`        // 对应请求的 request_id（链路追踪）
	Status      string      `json:"status"`            // 回调状态: SUCCESS / FAILED
	Summary     *RunSummary `json:"summary,omitempty"` // 运行汇总（成功时返回）
	Error       string      `json:"error,omitempty"`   // 错误信息（失败时返回）
	ProcessedAt int64       `json:"processed_at"`      // 处理时间戳（Unix timestamp）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)
