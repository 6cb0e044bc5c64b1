package detect

import (
	"context"

	"fieldaudit/internal/model"
)

// Detector 纯函数检测器：证据快照 → 候选标记
// 实现不得修改快照，也不得依赖其它检测器的输出
type Detector interface {
	Name() model.FlagType
	Detect(ctx context.Context, snapshot *model.EvidenceSnapshot) []model.AnomalyFlag
}

// newFlag 构造候选标记，WindowStart/ID/CreatedAt 由编排层补齐
func newFlag(job *model.JobRecord, flagType model.FlagType, severity model.Severity, confidence float64, evidence model.Evidence) model.AnomalyFlag {
	jobID := job.ID
	return model.AnomalyFlag{
		SubjectID:  job.SubjectID,
		JobID:      &jobID,
		FlagType:   flagType,
		Severity:   severity,
		Evidence:   evidence,
		Confidence: model.ClampConfidence(confidence),
	}
}

// round2 保留两位小数，证据中的数值便于阅读
func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
