package entity

import (
	"time"
)

// Job 外勤工单实体
type Job struct {
	ID            string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	SubjectID     string    `gorm:"column:subject_id;type:varchar(64);not null;index:idx_subject_date"`
	ScheduledDate time.Time `gorm:"column:scheduled_date;not null;index:idx_subject_date;index:idx_scheduled_date"`
	Location      string    `gorm:"column:location;type:varchar(255)"`
	PropertyID    *string   `gorm:"column:property_id;type:varchar(64)"`
	Status        string    `gorm:"column:status;type:varchar(16);not null;default:'pending'"`

	StartedAt *time.Time `gorm:"column:started_at"`
	EndedAt   *time.Time `gorm:"column:ended_at"`

	// 签到 / 签退
	CheckInLat       *float64 `gorm:"column:check_in_lat"`
	CheckInLng       *float64 `gorm:"column:check_in_lng"`
	CheckInDistance  *float64 `gorm:"column:check_in_distance_m"`
	CheckOutLat      *float64 `gorm:"column:check_out_lat"`
	CheckOutLng      *float64 `gorm:"column:check_out_lng"`
	CheckOutDistance *float64 `gorm:"column:check_out_distance_m"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Job) TableName() string {
	return "jobs"
}

// Property 站点
type Property struct {
	ID             string   `gorm:"column:id;primaryKey;type:varchar(64)"`
	EstimatedHours *float64 `gorm:"column:estimated_hours"`
	Bedrooms       *int     `gorm:"column:bedrooms"`
	Bathrooms      *int     `gorm:"column:bathrooms"`
}

// TableName 指定表名
func (Property) TableName() string {
	return "properties"
}

// JobChecklistItem 工单检查项
type JobChecklistItem struct {
	ID     string `gorm:"column:id;primaryKey;type:varchar(64)"`
	JobID  string `gorm:"column:job_id;type:varchar(64);not null;index:idx_job"`
	Status string `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
}

// TableName 指定表名
func (JobChecklistItem) TableName() string {
	return "job_checklist_items"
}

// JobPhoto 工单照片（检测只关心数量）
type JobPhoto struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	JobID     string    `gorm:"column:job_id;type:varchar(64);not null;index:idx_job"`
	URL       string    `gorm:"column:url;type:varchar(512)"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (JobPhoto) TableName() string {
	return "job_photos"
}
