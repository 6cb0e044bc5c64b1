package model

// ActionTypeAnomalyScan 检测任务的 action_type
const ActionTypeAnomalyScan = "anomaly_scan"

// AnomalyScanJob 检测任务消息（调度器 → worker）
type AnomalyScanJob struct {
	Payload AnomalyScanPayload `json:"payload"`
}

// AnomalyScanPayload Job 负载
type AnomalyScanPayload struct {
	Data AnomalyScanData `json:"data"`
}

// AnomalyScanData Job 数据层
type AnomalyScanData struct {
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	ActionType string `json:"action_type"` // 固定值 "anomaly_scan"
	ID         string `json:"id"`          // 调度批次 ID

	Data AnomalyScanBusinessData `json:"data"`
}

// AnomalyScanBusinessData 检测任务业务数据
type AnomalyScanBusinessData struct {
	WindowStart string `json:"window_start,omitempty"` // YYYY-MM-DD，为空则使用默认窗口
}
