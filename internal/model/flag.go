package model

import (
	"errors"
	"time"
)

// FlagType 异常类型
type FlagType string

const (
	FlagTypeGPSSpoofing      FlagType = "gps_spoofing"
	FlagTypeImpossibleTravel FlagType = "impossible_travel"
	FlagTypeTimeAnomaly      FlagType = "time_anomaly"
	FlagTypeNoWorkEvidence   FlagType = "no_work_evidence"
)

// Severity 严重级别
// low / critical 为预留级别，当前检测器不会产出
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// MaxConfidence 置信度上限
const MaxConfidence = 0.95

// Evidence 支撑标记的具体数值
type Evidence map[string]interface{}

// AnomalyFlag 异常标记（检测核心的输出）
// JSON 字段与 RunSummary 一致使用 camelCase；Evidence 内的键为数据本身，保持 snake_case
type AnomalyFlag struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subjectId"`
	JobID       *string   `json:"jobId,omitempty"`
	FlagType    FlagType  `json:"flagType"`
	Severity    Severity  `json:"severity"`
	Evidence    Evidence  `json:"evidence"`
	Confidence  float64   `json:"confidence"`
	Resolved    bool      `json:"resolved"`
	WindowStart time.Time `json:"windowStart"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FlagKey 去重键：(subject, job, flagType)
type FlagKey struct {
	SubjectID string
	JobID     string // 空字符串表示与工单无关的标记
	FlagType  FlagType
}

// Key 计算去重键
func (f *AnomalyFlag) Key() FlagKey {
	k := FlagKey{SubjectID: f.SubjectID, FlagType: f.FlagType}
	if f.JobID != nil {
		k.JobID = *f.JobID
	}
	return k
}

// ClampConfidence 将置信度限制在 [0, MaxConfidence]
func ClampConfidence(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// ErrFlagExists 存储层唯一键冲突：同一窗口内已存在相同标记
var ErrFlagExists = errors.New("anomaly flag already exists")
