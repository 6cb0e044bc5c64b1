package detect

import (
	"context"
	"math"

	"fieldaudit/internal/model"
)

// GPSSpoofDetector 签到坐标远离预期站点
type GPSSpoofDetector struct {
	cfg GPSSpoofThresholds
}

// NewGPSSpoofDetector 创建检测器
func NewGPSSpoofDetector(cfg GPSSpoofThresholds) *GPSSpoofDetector {
	return &GPSSpoofDetector{cfg: cfg}
}

// Name 检测器名称
func (d *GPSSpoofDetector) Name() model.FlagType {
	return model.FlagTypeGPSSpoofing
}

// Detect 签到距离超过阈值即标记；没有签到坐标的工单不参与判断
func (d *GPSSpoofDetector) Detect(ctx context.Context, snapshot *model.EvidenceSnapshot) []model.AnomalyFlag {
	flags := make([]model.AnomalyFlag, 0)

	for i := range snapshot.Jobs {
		job := &snapshot.Jobs[i]
		if !job.IsCompleted() || job.CheckIn == nil || job.CheckInDistance == nil {
			continue
		}

		distance := *job.CheckInDistance
		if math.IsNaN(distance) || distance <= d.cfg.DistanceMeters {
			continue
		}

		severity := model.SeverityMedium
		if distance > d.cfg.HighDistanceMeters {
			severity = model.SeverityHigh
		}
		confidence := math.Min(d.cfg.ConfidenceCap, d.cfg.ConfidenceBase+distance/d.cfg.ConfidenceDivisor)

		flags = append(flags, newFlag(job, model.FlagTypeGPSSpoofing, severity, confidence, model.Evidence{
			"check_in_distance_m": round2(distance),
			"check_in_lat":        job.CheckIn.Lat,
			"check_in_lng":        job.CheckIn.Lng,
			"location":            job.Location,
			"threshold_m":         d.cfg.DistanceMeters,
		}))
	}

	return flags
}
