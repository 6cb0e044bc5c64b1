package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldaudit/internal/business/detect"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/errorutil"
	"fieldaudit/pkg/logger"
)

// DefaultWindowDays 默认回溯窗口（天）
const DefaultWindowDays = 7

// RunRequest 一次检测运行的参数
type RunRequest struct {
	RequestID   string
	WindowStart *time.Time // 为空则使用默认窗口
}

// DetectionServiceDeps 检测服务依赖
type DetectionServiceDeps struct {
	Store     EvidenceStore
	Flags     FlagStore
	Composite *detect.CompositeHandler
	Locker    RunLocker    // 可选
	Notifier  ScanNotifier // 可选
	Logger    logger.Logger

	WindowDays int
	Location   *time.Location
	Now        func() time.Time
}

// DetectionService 检测编排：加载证据 → 运行检测器 → 去重 → 持久化 → 汇总
// 无状态，每次运行相互独立
type DetectionService struct {
	loader     *EvidenceLoader
	flags      FlagStore
	composite  *detect.CompositeHandler
	locker     RunLocker
	notifier   ScanNotifier
	logger     logger.Logger
	windowDays int
	location   *time.Location
	now        func() time.Time
}

// NewDetectionService 创建检测服务
func NewDetectionService(deps DetectionServiceDeps) (*DetectionService, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("evidence store is required")
	}
	if deps.Flags == nil {
		return nil, fmt.Errorf("flag store is required")
	}
	if deps.Composite == nil {
		return nil, fmt.Errorf("composite detector is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.WindowDays <= 0 {
		deps.WindowDays = DefaultWindowDays
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &DetectionService{
		loader:     NewEvidenceLoader(deps.Store, deps.Logger),
		flags:      deps.Flags,
		composite:  deps.Composite,
		locker:     deps.Locker,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		windowDays: deps.WindowDays,
		location:   deps.Location,
		now:        deps.Now,
	}, nil
}

// WindowStart 计算窗口起点：覆盖值优先，否则为今天零点往前 windowDays 天
func (s *DetectionService) WindowStart(override *time.Time) time.Time {
	if override != nil {
		o := override.In(s.location)
		return time.Date(o.Year(), o.Month(), o.Day(), 0, 0, 0, 0, s.location)
	}
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	return today.AddDate(0, 0, -s.windowDays)
}

// ParseWindowStart 解析 YYYY-MM-DD，空串返回 nil
func ParseWindowStart(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return nil, errorutil.NonRetriableWithDetails("window_start must be YYYY-MM-DD", err.Error())
	}
	return &t, nil
}

// Run 执行一次检测
// 证据加载失败：整次运行失败，不产生任何标记
// 单个标记写入失败：记录到 Failures，继续处理其余标记
func (s *DetectionService) Run(ctx context.Context, req RunRequest) (*model.RunSummary, error) {
	runID := uuid.New().String()
	ctx = logger.WithRunID(ctx, runID)
	if req.RequestID != "" {
		ctx = logger.WithTraceID(ctx, req.RequestID)
	}

	startedAt := s.now()
	windowStart := s.WindowStart(req.WindowStart)

	s.logger.Infof(ctx, "[DetectionService] Run started, window_start=%s", windowStart.Format(time.DateOnly))

	if err := ctx.Err(); err != nil {
		return nil, errorutil.RetriableWithDetails("anomaly scan cancelled", err.Error())
	}

	// 1. 运行锁，避免重叠运行重复写入
	if s.locker != nil {
		release, obtained, err := s.locker.TryLock(ctx)
		if err != nil {
			return nil, errorutil.RetriableWithDetails("acquire run lock failed", err.Error())
		}
		if !obtained {
			return nil, errorutil.Conflict("anomaly scan already running")
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warnf(ctx, "[DetectionService] Release run lock failed: %v", err)
			}
		}()
	}

	// 2. 加载证据快照
	snapshot, err := s.loader.Load(ctx, windowStart)
	if err != nil {
		s.logger.Errorf(ctx, "[DetectionService] Load evidence failed: %v", err)
		return nil, errorutil.EvidenceLoad(err)
	}

	// 3. 运行检测器
	results, err := s.composite.Detect(ctx, snapshot)
	if err != nil {
		s.logger.Warnf(ctx, "[DetectionService] Detection aborted: %v", err)
		return nil, errorutil.RetriableWithDetails("anomaly scan cancelled", err.Error())
	}

	summary := &model.RunSummary{
		RunID:          runID,
		WindowStart:    windowStart.Format(time.DateOnly),
		DetectorCounts: make(map[model.FlagType]int, len(results)),
		StartedAt:      startedAt,
	}
	for _, r := range results {
		summary.DetectorCounts[r.Detector] = len(r.Flags)
		if r.Err != nil {
			s.logger.Errorf(ctx, "[DetectionService] Detector %s failed: %v", r.Detector, r.Err)
		}
	}

	candidates := detect.Merge(results)
	summary.AnomaliesDetected = len(candidates)

	// 4. 去重
	fresh, skipped := Dedup(candidates, snapshot.ExistingFlags, windowStart)
	summary.Skipped = skipped

	// 5. 逐个持久化
	createdAt := s.now()
	stored := make(map[int]model.AnomalyFlag, len(fresh))
	for _, idx := range fresh {
		flag := candidates[idx]
		flag.ID = uuid.New().String()
		flag.WindowStart = windowStart
		flag.CreatedAt = createdAt
		flag.Confidence = model.ClampConfidence(flag.Confidence)

		err := s.flags.SaveFlag(ctx, &flag)
		switch {
		case err == nil:
			summary.NewFlagsStored++
			stored[idx] = flag
		case errors.Is(err, model.ErrFlagExists):
			summary.Skipped++
		default:
			s.logger.Warnf(ctx, "[DetectionService] Save flag failed: subject=%s type=%s err=%v",
				flag.SubjectID, flag.FlagType, err)
			summary.Failures = append(summary.Failures, model.FlagFailure{Flag: flag, Error: err.Error()})
		}
	}

	// 汇总中保留全部候选，已写入的带上 ID
	summary.Flags = make([]model.AnomalyFlag, 0, len(candidates))
	for i, c := range candidates {
		if f, ok := stored[i]; ok {
			summary.Flags = append(summary.Flags, f)
			continue
		}
		c.WindowStart = windowStart
		summary.Flags = append(summary.Flags, c)
	}
	summary.FinishedAt = s.now()

	s.logger.Infof(ctx, "[DetectionService] Run complete, detected=%d stored=%d skipped=%d failed=%d duration=%v",
		summary.AnomaliesDetected, summary.NewFlagsStored, summary.Skipped, len(summary.Failures),
		summary.FinishedAt.Sub(startedAt))

	// 6. 通知（失败不影响结果）
	if s.notifier != nil {
		if err := s.notifier.PublishScanComplete(ctx, summary); err != nil {
			s.logger.Warnf(ctx, "[DetectionService] Publish scan complete failed: %v", err)
		}
	}

	return summary, nil
}
