package detect

import (
	"context"

	"fieldaudit/internal/model"
)

// TimeAnomalyDetector 工单完成时间远低于预期
type TimeAnomalyDetector struct {
	cfg TimeAnomalyThresholds
}

// NewTimeAnomalyDetector 创建检测器
func NewTimeAnomalyDetector(cfg TimeAnomalyThresholds) *TimeAnomalyDetector {
	return &TimeAnomalyDetector{cfg: cfg}
}

// Name 检测器名称
func (d *TimeAnomalyDetector) Name() model.FlagType {
	return model.FlagTypeTimeAnomaly
}

// Detect 两个条件同时满足才标记：低于预期比例，且绝对时长很短
func (d *TimeAnomalyDetector) Detect(ctx context.Context, snapshot *model.EvidenceSnapshot) []model.AnomalyFlag {
	flags := make([]model.AnomalyFlag, 0)

	for i := range snapshot.Jobs {
		job := &snapshot.Jobs[i]
		if !job.IsCompleted() {
			continue
		}

		actual, ok := job.DurationMinutes()
		if !ok {
			continue
		}

		profile, hasProfile := snapshot.PropertyFor(job)
		expected := d.ExpectedMinutes(profile, hasProfile)
		if expected <= 0 {
			continue
		}

		if actual >= expected*d.cfg.FlagRatio || actual >= d.cfg.MaxActualMinutes {
			continue
		}

		severity := model.SeverityMedium
		if actual < expected*d.cfg.HighRatio {
			severity = model.SeverityHigh
		}

		flags = append(flags, newFlag(job, model.FlagTypeTimeAnomaly, severity, d.cfg.Confidence, model.Evidence{
			"actual_minutes":      round2(actual),
			"expected_minutes":    round2(expected),
			"percent_of_expected": round2(actual / expected * 100),
			"location":            job.Location,
		}))
	}

	return flags
}

// ExpectedMinutes 预期时长：估算工时优先，其次按房间数，最后使用默认值
func (d *TimeAnomalyDetector) ExpectedMinutes(profile model.PropertyProfile, hasProfile bool) float64 {
	if !hasProfile {
		return d.cfg.DefaultMinutes
	}
	if profile.EstimatedHours != nil && *profile.EstimatedHours > 0 {
		return *profile.EstimatedHours * 60
	}

	bedrooms := d.cfg.DefaultBedrooms
	if profile.Bedrooms != nil {
		bedrooms = *profile.Bedrooms
	}
	bathrooms := d.cfg.DefaultBathrooms
	if profile.Bathrooms != nil {
		bathrooms = *profile.Bathrooms
	}

	return float64(bedrooms)*d.cfg.MinutesPerBedroom + float64(bathrooms)*d.cfg.MinutesPerBathroom
}
