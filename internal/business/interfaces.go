package business

import (
	"context"
	"time"

	"fieldaudit/internal/model"
)

// EvidenceStore 外部数据存储的只读边界
type EvidenceStore interface {
	LoadJobs(ctx context.Context, windowStart time.Time) ([]model.JobRecord, error)
	LoadPropertyProfiles(ctx context.Context, ids []string) ([]model.PropertyProfile, error)
	LoadChecklistStatuses(ctx context.Context, jobID string) ([]model.ChecklistItem, error)
	LoadPhotoCount(ctx context.Context, jobID string) (int, error)
	LoadExistingFlags(ctx context.Context, windowStart time.Time) ([]model.AnomalyFlag, error)
}

// BatchEvidenceStore 可选：一次性批量加载检查项与照片数
type BatchEvidenceStore interface {
	LoadChecklistsForJobs(ctx context.Context, jobIDs []string) (map[string][]model.ChecklistItem, error)
	LoadPhotoCounts(ctx context.Context, jobIDs []string) (map[string]int, error)
}

// FlagStore 标记持久化
// 唯一键冲突时返回 model.ErrFlagExists
type FlagStore interface {
	SaveFlag(ctx context.Context, flag *model.AnomalyFlag) error
}

// RunLocker 串行化并发运行
type RunLocker interface {
	TryLock(ctx context.Context) (release func(context.Context) error, obtained bool, err error)
}

// ScanNotifier 运行结束通知（告警投递由外部完成）
type ScanNotifier interface {
	PublishScanComplete(ctx context.Context, summary *model.RunSummary) error
}
