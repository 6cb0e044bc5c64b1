package job

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrMissingPayload 消息缺少 payload.data
var ErrMissingPayload = errors.New("invalid job structure: payload.data is nil")

// Job 调度方投递的消息外壳：{"payload":{"data":{...}}}
type Job struct {
	Payload *JobPayload `json:"payload"`
}

// JobPayload 消息负载
type JobPayload struct {
	Data *JobPayloadData `json:"data"`
}

// JobPayloadData 路由信息 + 业务数据
type JobPayloadData struct {
	RequestID  string `json:"request_id"`  // TraceID，为空时由 Worker 生成
	ActionType string `json:"action_type"` // 路由到 HandlerMap 的 key
	ID         string `json:"id"`          // 调度批次 ID

	// 各 Handler 自行解析
	Data json.RawMessage `json:"data,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Meta 一次处理的元数据，随 Response 回写
type Meta struct {
	RequestID  string `json:"request_id"`
	ActionType string `json:"action_type"`
	ID         string `json:"id,omitempty"`
}

// Decode 解析原始消息，返回业务数据与元数据
func Decode(raw []byte) (json.RawMessage, *Meta, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if j.Payload == nil || j.Payload.Data == nil {
		return nil, nil, ErrMissingPayload
	}

	d := j.Payload.Data
	meta := &Meta{RequestID: d.RequestID, ActionType: d.ActionType, ID: d.ID}
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}
	return d.Data, meta, nil
}
