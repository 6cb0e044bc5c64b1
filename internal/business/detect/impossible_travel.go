package detect

import (
	"context"
	"sort"

	"fieldaudit/internal/model"
)

// ImpossibleTravelDetector 同一人员同一天内，两个站点之间的移动快于物理可能
type ImpossibleTravelDetector struct {
	cfg ImpossibleTravelThresholds
	loc *timeLocation
}

// NewImpossibleTravelDetector 创建检测器，thresholds.Location 决定"同一天"的边界
func NewImpossibleTravelDetector(thresholds Thresholds) *ImpossibleTravelDetector {
	return &ImpossibleTravelDetector{
		cfg: thresholds.ImpossibleTravel,
		loc: &timeLocation{thresholds.location()},
	}
}

// Name 检测器名称
func (d *ImpossibleTravelDetector) Name() model.FlagType {
	return model.FlagTypeImpossibleTravel
}

type dayKey struct {
	subjectID string
	day       string
}

// Detect 按 (人员, 日期) 分组并按开始时间排序，逐对比较相邻工单
func (d *ImpossibleTravelDetector) Detect(ctx context.Context, snapshot *model.EvidenceSnapshot) []model.AnomalyFlag {
	groups := make(map[dayKey][]*model.JobRecord)
	keys := make([]dayKey, 0)

	for i := range snapshot.Jobs {
		job := &snapshot.Jobs[i]
		if !job.IsCompleted() || job.StartedAt == nil || job.EndedAt == nil {
			continue
		}
		k := dayKey{subjectID: job.SubjectID, day: d.loc.day(job.ScheduledDate)}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], job)
	}

	// 固定遍历顺序，保证输出确定
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subjectID != keys[j].subjectID {
			return keys[i].subjectID < keys[j].subjectID
		}
		return keys[i].day < keys[j].day
	})

	flags := make([]model.AnomalyFlag, 0)
	for _, k := range keys {
		jobs := groups[k]
		sort.SliceStable(jobs, func(i, j int) bool {
			return jobs[i].StartedAt.Before(*jobs[j].StartedAt)
		})

		for i := 1; i < len(jobs); i++ {
			if flag, ok := d.evaluate(jobs[i-1], jobs[i]); ok {
				flags = append(flags, flag)
			}
		}
	}

	return flags
}

// evaluate 比较 prev 签退与 next 签到；任一侧缺坐标则跳过
func (d *ImpossibleTravelDetector) evaluate(prev, next *model.JobRecord) (model.AnomalyFlag, bool) {
	if prev.CheckOut == nil || next.CheckIn == nil {
		return model.AnomalyFlag{}, false
	}
	if !prev.CheckOut.Valid() || !next.CheckIn.Valid() {
		return model.AnomalyFlag{}, false
	}
	// 签退/签到时间戳必须落在同一天
	if d.loc.day(*prev.EndedAt) != d.loc.day(*next.StartedAt) {
		return model.AnomalyFlag{}, false
	}

	elapsedMinutes := next.StartedAt.Sub(*prev.EndedAt).Minutes()
	distanceMeters := prev.CheckOut.DistanceTo(*next.CheckIn)
	// 60 km/h 时 1 km 恰好需要 1 分钟
	requiredMinutes := distanceMeters / 1000 * (60 / d.cfg.MaxSpeedKmh)

	if distanceMeters <= d.cfg.MinDistanceMeters || elapsedMinutes >= requiredMinutes*d.cfg.FlagRatio {
		return model.AnomalyFlag{}, false
	}

	severity := model.SeverityMedium
	if elapsedMinutes < requiredMinutes*d.cfg.HighRatio {
		severity = model.SeverityHigh
	}

	return newFlag(next, model.FlagTypeImpossibleTravel, severity, d.cfg.Confidence, model.Evidence{
		"previous_job_id":  prev.ID,
		"job_id":           next.ID,
		"from_location":    prev.Location,
		"to_location":      next.Location,
		"distance_m":       round2(distanceMeters),
		"elapsed_minutes":  round2(elapsedMinutes),
		"required_minutes": round2(requiredMinutes),
	}), true
}
