package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldaudit/internal/entity"
	"fieldaudit/internal/model"
)

// queryChunkSize IN 查询单批最大参数个数
const queryChunkSize = 500

// EvidenceDAO 证据读取与异常标记写入
type EvidenceDAO struct {
	db *gorm.DB
}

// NewEvidenceDAO 创建 EvidenceDAO 实例
func NewEvidenceDAO(db *gorm.DB) *EvidenceDAO {
	return &EvidenceDAO{db: db}
}

// dateLayout scheduled_date 为 DATE 列，按日历日比较
const dateLayout = "2006-01-02"

// LoadJobs 加载 scheduled_date >= windowStart 的全部工单
// windowStart 是所配置时区的零点，按其自身时区取日期，不受 DSN loc 影响
func (dao *EvidenceDAO) LoadJobs(ctx context.Context, windowStart time.Time) ([]model.JobRecord, error) {
	var rows []entity.Job
	result := dao.db.WithContext(ctx).
		Where("scheduled_date >= ?", windowStart.Format(dateLayout)).
		Order("subject_id, scheduled_date, started_at").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", result.Error)
	}

	jobs := make([]model.JobRecord, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, toJobRecord(&rows[i]))
	}
	return jobs, nil
}

// LoadPropertyProfiles 按 id 批量加载站点
func (dao *EvidenceDAO) LoadPropertyProfiles(ctx context.Context, ids []string) ([]model.PropertyProfile, error) {
	profiles := make([]model.PropertyProfile, 0, len(ids))
	for _, chunk := range chunks(ids) {
		var rows []entity.Property
		if err := dao.db.WithContext(ctx).Where("id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query properties: %w", err)
		}
		for _, r := range rows {
			profiles = append(profiles, model.PropertyProfile{
				ID:             r.ID,
				EstimatedHours: r.EstimatedHours,
				Bedrooms:       r.Bedrooms,
				Bathrooms:      r.Bathrooms,
			})
		}
	}
	return profiles, nil
}

// LoadChecklistStatuses 加载单个工单的检查项
func (dao *EvidenceDAO) LoadChecklistStatuses(ctx context.Context, jobID string) ([]model.ChecklistItem, error) {
	byJob, err := dao.LoadChecklistsForJobs(ctx, []string{jobID})
	if err != nil {
		return nil, err
	}
	return byJob[jobID], nil
}

// LoadChecklistsForJobs 批量加载检查项
func (dao *EvidenceDAO) LoadChecklistsForJobs(ctx context.Context, jobIDs []string) (map[string][]model.ChecklistItem, error) {
	byJob := make(map[string][]model.ChecklistItem, len(jobIDs))
	for _, chunk := range chunks(jobIDs) {
		var rows []entity.JobChecklistItem
		if err := dao.db.WithContext(ctx).Where("job_id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query checklist items: %w", err)
		}
		for _, r := range rows {
			byJob[r.JobID] = append(byJob[r.JobID], model.ChecklistItem{
				ID:     r.ID,
				JobID:  r.JobID,
				Status: model.ChecklistStatus(r.Status),
			})
		}
	}
	return byJob, nil
}

// LoadPhotoCount 单个工单的照片数
func (dao *EvidenceDAO) LoadPhotoCount(ctx context.Context, jobID string) (int, error) {
	var count int64
	if err := dao.db.WithContext(ctx).Model(&entity.JobPhoto{}).Where("job_id = ?", jobID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return int(count), nil
}

// LoadPhotoCounts 批量统计照片数（没有照片的工单不出现在结果中）
func (dao *EvidenceDAO) LoadPhotoCounts(ctx context.Context, jobIDs []string) (map[string]int, error) {
	type photoCount struct {
		JobID string
		Total int
	}

	counts := make(map[string]int, len(jobIDs))
	for _, chunk := range chunks(jobIDs) {
		var rows []photoCount
		err := dao.db.WithContext(ctx).
			Model(&entity.JobPhoto{}).
			Select("job_id, COUNT(*) AS total").
			Where("job_id IN ?", chunk).
			Group("job_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count photos: %w", err)
		}
		for _, r := range rows {
			counts[r.JobID] = r.Total
		}
	}
	return counts, nil
}

// LoadExistingFlags 加载窗口内创建的标记（含已解决，由调用方过滤）
func (dao *EvidenceDAO) LoadExistingFlags(ctx context.Context, windowStart time.Time) ([]model.AnomalyFlag, error) {
	var rows []entity.AnomalyFlag
	result := dao.db.WithContext(ctx).
		Where("created_at >= ?", windowStart).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query anomaly flags: %w", result.Error)
	}

	flags := make([]model.AnomalyFlag, 0, len(rows))
	for i := range rows {
		f, err := toAnomalyFlag(&rows[i])
		if err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, nil
}

// SaveFlag 写入一条标记；唯一键冲突返回 model.ErrFlagExists
func (dao *EvidenceDAO) SaveFlag(ctx context.Context, flag *model.AnomalyFlag) error {
	row, err := fromAnomalyFlag(flag)
	if err != nil {
		return err
	}

	result := dao.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to insert anomaly flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrFlagExists
	}
	return nil
}

func toJobRecord(r *entity.Job) model.JobRecord {
	job := model.JobRecord{
		ID:               r.ID,
		SubjectID:        r.SubjectID,
		ScheduledDate:    r.ScheduledDate,
		Location:         r.Location,
		PropertyID:       r.PropertyID,
		Status:           model.JobStatus(r.Status),
		StartedAt:        r.StartedAt,
		EndedAt:          r.EndedAt,
		CheckInDistance:  r.CheckInDistance,
		CheckOutDistance: r.CheckOutDistance,
	}
	if r.CheckInLat != nil && r.CheckInLng != nil {
		job.CheckIn = &model.Coordinate{Lat: *r.CheckInLat, Lng: *r.CheckInLng}
	}
	if r.CheckOutLat != nil && r.CheckOutLng != nil {
		job.CheckOut = &model.Coordinate{Lat: *r.CheckOutLat, Lng: *r.CheckOutLng}
	}
	return job
}

func fromAnomalyFlag(f *model.AnomalyFlag) (*entity.AnomalyFlag, error) {
	evidence, err := json.Marshal(f.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	row := &entity.AnomalyFlag{
		ID:         f.ID,
		SubjectID:  f.SubjectID,
		FlagType:   string(f.FlagType),
		WindowDate: f.WindowStart.Format(time.DateOnly),
		Severity:   string(f.Severity),
		Evidence:   evidence,
		Confidence: f.Confidence,
		Resolved:   f.Resolved,
		CreatedAt:  f.CreatedAt,
	}
	if f.JobID != nil {
		row.JobKey = *f.JobID
	}
	return row, nil
}

func toAnomalyFlag(r *entity.AnomalyFlag) (model.AnomalyFlag, error) {
	f := model.AnomalyFlag{
		ID:         r.ID,
		SubjectID:  r.SubjectID,
		FlagType:   model.FlagType(r.FlagType),
		Severity:   model.Severity(r.Severity),
		Confidence: r.Confidence,
		Resolved:   r.Resolved,
		CreatedAt:  r.CreatedAt,
	}
	if r.JobKey != "" {
		jobID := r.JobKey
		f.JobID = &jobID
	}
	if ws, err := time.Parse(time.DateOnly, r.WindowDate); err == nil {
		f.WindowStart = ws
	}
	if len(r.Evidence) > 0 {
		if err := json.Unmarshal(r.Evidence, &f.Evidence); err != nil {
			return model.AnomalyFlag{}, fmt.Errorf("failed to unmarshal evidence of flag %s: %w", r.ID, err)
		}
	}
	return f, nil
}

func chunks(ids []string) [][]string {
	out := make([][]string, 0, len(ids)/queryChunkSize+1)
	for start := 0; start < len(ids); start += queryChunkSize {
		end := start + queryChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
