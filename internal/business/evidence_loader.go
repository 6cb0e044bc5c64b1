package business

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fieldaudit/internal/model"
	"fieldaudit/pkg/logger"
)

// EvidenceLoader 组装一次运行所需的证据快照
type EvidenceLoader struct {
	store  EvidenceStore
	logger logger.Logger
}

// NewEvidenceLoader 创建证据加载器
func NewEvidenceLoader(store EvidenceStore, log logger.Logger) *EvidenceLoader {
	return &EvidenceLoader{store: store, logger: log}
}

// Load 加载窗口内的全部证据；任一步失败都视为整次运行失败
func (l *EvidenceLoader) Load(ctx context.Context, windowStart time.Time) (*model.EvidenceSnapshot, error) {
	// 1. 工单
	jobs, err := l.store.LoadJobs(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	// 2. 站点信息
	properties, err := l.loadProperties(ctx, jobs)
	if err != nil {
		return nil, err
	}

	// 3. 已完成工单的检查项与照片数
	completedIDs := make([]string, 0, len(jobs))
	for i := range jobs {
		if jobs[i].IsCompleted() {
			completedIDs = append(completedIDs, jobs[i].ID)
		}
	}

	checklists, photoCounts, err := l.loadWorkEvidence(ctx, completedIDs)
	if err != nil {
		return nil, err
	}

	// 4. 窗口内已有标记（用于去重）
	existing, err := l.store.LoadExistingFlags(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("load existing flags: %w", err)
	}

	l.logger.Infof(ctx, "[EvidenceLoader] Loaded window=%s jobs=%d completed=%d properties=%d existing_flags=%d",
		windowStart.Format(time.DateOnly), len(jobs), len(completedIDs), len(properties), len(existing))

	return &model.EvidenceSnapshot{
		WindowStart:   windowStart,
		Jobs:          jobs,
		Properties:    properties,
		Checklists:    checklists,
		PhotoCounts:   photoCounts,
		ExistingFlags: existing,
	}, nil
}

func (l *EvidenceLoader) loadProperties(ctx context.Context, jobs []model.JobRecord) (map[string]model.PropertyProfile, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for i := range jobs {
		if jobs[i].PropertyID == nil || *jobs[i].PropertyID == "" {
			continue
		}
		id := *jobs[i].PropertyID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	properties := make(map[string]model.PropertyProfile, len(ids))
	if len(ids) == 0 {
		return properties, nil
	}

	profiles, err := l.store.LoadPropertyProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load property profiles: %w", err)
	}
	for _, p := range profiles {
		properties[p.ID] = p
	}
	return properties, nil
}

func (l *EvidenceLoader) loadWorkEvidence(ctx context.Context, jobIDs []string) (map[string][]model.ChecklistItem, map[string]int, error) {
	if batch, ok := l.store.(BatchEvidenceStore); ok {
		checklists, err := batch.LoadChecklistsForJobs(ctx, jobIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("load checklists: %w", err)
		}
		photoCounts, err := batch.LoadPhotoCounts(ctx, jobIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("load photo counts: %w", err)
		}
		return checklists, photoCounts, nil
	}

	checklists := make(map[string][]model.ChecklistItem, len(jobIDs))
	photoCounts := make(map[string]int, len(jobIDs))
	for _, id := range jobIDs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		items, err := l.store.LoadChecklistStatuses(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load checklist for job %s: %w", id, err)
		}
		checklists[id] = items

		count, err := l.store.LoadPhotoCount(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load photo count for job %s: %w", id, err)
		}
		photoCounts[id] = count
	}
	return checklists, photoCounts, nil
}
