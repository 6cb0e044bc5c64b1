package model

import (
	"time"

	"fieldaudit/pkg/geo"
)

// JobStatus 工单状态
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Coordinate 经纬度（角度制）
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceTo 到另一坐标的大圆距离（米）
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return geo.Haversine(c.Lat, c.Lng, other.Lat, other.Lng)
}

// Valid 坐标是否可用于计算
func (c Coordinate) Valid() bool {
	return geo.ValidCoordinate(c.Lat, c.Lng)
}

// JobRecord 外勤工单（检测器只读）
// 可选字段一律使用指针，nil 表示无数据
type JobRecord struct {
	ID            string    `json:"id"`
	SubjectID     string    `json:"subject_id"` // 执行工单的外勤人员
	ScheduledDate time.Time `json:"scheduled_date"`
	Location      string    `json:"location"`
	PropertyID    *string   `json:"property_id,omitempty"`
	Status        JobStatus `json:"status"`

	// 仅在 completed 状态下有意义
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// 距离由上游地理围栏服务预先计算
	CheckIn          *Coordinate `json:"check_in,omitempty"`
	CheckInDistance  *float64    `json:"check_in_distance_m,omitempty"`
	CheckOut         *Coordinate `json:"check_out,omitempty"`
	CheckOutDistance *float64    `json:"check_out_distance_m,omitempty"`
}

// IsCompleted 是否已完成
func (j *JobRecord) IsCompleted() bool {
	return j.Status == JobStatusCompleted
}

// DurationMinutes 实际工作时长（分钟），时间戳缺失或倒置时返回 false
func (j *JobRecord) DurationMinutes() (float64, bool) {
	if j.StartedAt == nil || j.EndedAt == nil {
		return 0, false
	}
	d := j.EndedAt.Sub(*j.StartedAt)
	if d < 0 {
		return 0, false
	}
	return d.Minutes(), true
}

// PropertyProfile 站点规模信息，仅用于估算预期时长
type PropertyProfile struct {
	ID             string   `json:"id"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *int     `json:"bathrooms,omitempty"`
}

// ChecklistStatus 检查项状态
type ChecklistStatus string

const (
	ChecklistStatusDone          ChecklistStatus = "done"
	ChecklistStatusPending       ChecklistStatus = "pending"
	ChecklistStatusIssue         ChecklistStatus = "issue"
	ChecklistStatusNotApplicable ChecklistStatus = "not_applicable"
)

// ChecklistItem 工单检查项
type ChecklistItem struct {
	ID     string          `json:"id"`
	JobID  string          `json:"job_id"`
	Status ChecklistStatus `json:"status"`
}
