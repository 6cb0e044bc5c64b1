package model

import "time"

// EvidenceSnapshot 一次检测运行的不可变证据快照
// 所有检测器共享同一份快照，禁止修改
type EvidenceSnapshot struct {
	WindowStart   time.Time
	Jobs          []JobRecord
	Properties    map[string]PropertyProfile // key: property id
	Checklists    map[string][]ChecklistItem // key: job id
	PhotoCounts   map[string]int             // key: job id
	ExistingFlags []AnomalyFlag
}

// PropertyFor 返回工单关联的站点信息
func (s *EvidenceSnapshot) PropertyFor(job *JobRecord) (PropertyProfile, bool) {
	if job.PropertyID == nil || s.Properties == nil {
		return PropertyProfile{}, false
	}
	p, ok := s.Properties[*job.PropertyID]
	return p, ok
}
