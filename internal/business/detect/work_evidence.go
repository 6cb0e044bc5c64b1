package detect

import (
	"context"

	"fieldaudit/internal/model"
)

// WorkEvidenceDetector 已签到完成，但没有照片且检查项大多未完成
type WorkEvidenceDetector struct {
	cfg WorkEvidenceThresholds
}

// NewWorkEvidenceDetector 创建检测器
func NewWorkEvidenceDetector(cfg WorkEvidenceThresholds) *WorkEvidenceDetector {
	return &WorkEvidenceDetector{cfg: cfg}
}

// Name 检测器名称
func (d *WorkEvidenceDetector) Name() model.FlagType {
	return model.FlagTypeNoWorkEvidence
}

// Detect 没有检查项的工单无法通过此信号评估，直接排除
func (d *WorkEvidenceDetector) Detect(ctx context.Context, snapshot *model.EvidenceSnapshot) []model.AnomalyFlag {
	flags := make([]model.AnomalyFlag, 0)

	for i := range snapshot.Jobs {
		job := &snapshot.Jobs[i]
		if !job.IsCompleted() {
			continue
		}

		items := snapshot.Checklists[job.ID]
		total := len(items)
		if total == 0 {
			continue
		}

		photos := snapshot.PhotoCounts[job.ID]
		if photos > 0 {
			continue
		}

		// 只有 done 计入完成；issue / not_applicable 不算
		completed := 0
		for _, item := range items {
			if item.Status == model.ChecklistStatusDone {
				completed++
			}
		}

		if float64(completed) >= float64(total)*d.cfg.CompletionRatio {
			continue
		}

		severity := model.SeverityMedium
		if completed == 0 {
			severity = model.SeverityHigh
		}

		flags = append(flags, newFlag(job, model.FlagTypeNoWorkEvidence, severity, d.cfg.Confidence, model.Evidence{
			"photo_count":         photos,
			"checklist_total":     total,
			"checklist_completed": completed,
			"completion_percent":  round2(float64(completed) / float64(total) * 100),
			"location":            job.Location,
		}))
	}

	return flags
}
