package entity

import (
	"time"

	"gorm.io/datatypes"
)

// AnomalyFlag 异常标记实体
// 唯一键 (subject_id, job_key, flag_type, window_date) 保证同一窗口内不会重复写入
// job_key 为空字符串表示与工单无关的标记（MySQL 唯一索引中 NULL 不参与比较）
type AnomalyFlag struct {
	ID         string         `gorm:"column:id;primaryKey;type:varchar(64)"`
	SubjectID  string         `gorm:"column:subject_id;type:varchar(64);not null;uniqueIndex:uk_flag_window,priority:1"`
	JobKey     string         `gorm:"column:job_key;type:varchar(64);not null;default:'';uniqueIndex:uk_flag_window,priority:2"`
	FlagType   string         `gorm:"column:flag_type;type:varchar(32);not null;uniqueIndex:uk_flag_window,priority:3"`
	WindowDate string         `gorm:"column:window_date;type:char(10);not null;uniqueIndex:uk_flag_window,priority:4"`
	Severity   string         `gorm:"column:severity;type:varchar(16);not null"`
	Evidence   datatypes.JSON `gorm:"column:evidence;type:json"`
	Confidence float64        `gorm:"column:confidence;not null"`
	Resolved   bool           `gorm:"column:resolved;not null;default:false;index:idx_resolved_created"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index:idx_resolved_created"`
}

// TableName 指定表名
func (AnomalyFlag) TableName() string {
	return "anomaly_flags"
}
