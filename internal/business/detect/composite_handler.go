package detect

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fieldaudit/internal/model"
	"fieldaudit/pkg/logger"
)

// DetectorResult 单个检测器的输出
type DetectorResult struct {
	Detector model.FlagType
	Flags    []model.AnomalyFlag
	Err      error
}

// CompositeHandler 复合检测处理器：在同一快照上运行全部检测器
type CompositeHandler struct {
	detectors []Detector
	parallel  bool
	logger    logger.Logger
}

// NewCompositeHandler 按默认顺序装配四个检测器
func NewCompositeHandler(thresholds Thresholds, parallel bool, log logger.Logger) *CompositeHandler {
	return NewCompositeHandlerWith(parallel, log,
		NewGPSSpoofDetector(thresholds.GPSSpoof),
		NewImpossibleTravelDetector(thresholds),
		NewTimeAnomalyDetector(thresholds.TimeAnomaly),
		NewWorkEvidenceDetector(thresholds.WorkEvidence),
	)
}

// NewCompositeHandlerWith 使用自定义检测器列表
func NewCompositeHandlerWith(parallel bool, log logger.Logger, detectors ...Detector) *CompositeHandler {
	return &CompositeHandler{
		detectors: detectors,
		parallel:  parallel,
		logger:    log,
	}
}

// Detect 运行所有检测器，按检测器注册顺序合并结果
// 检测器之间无依赖，并行与串行的输出完全一致
func (h *CompositeHandler) Detect(ctx context.Context, snapshot *model.EvidenceSnapshot) ([]DetectorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]DetectorResult, len(h.detectors))

	if !h.parallel {
		for i, d := range h.detectors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = h.runOne(ctx, d, snapshot)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return results, nil
	}

	// 检测器 panic 记录在各自的 DetectorResult 中，不中断其它检测器；
	// 只有 ctx 取消会让 Wait 返回错误
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range h.detectors {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// 每个 goroutine 只写自己的槽位
			results[i] = h.runOne(gctx, d, snapshot)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// runOne 运行单个检测器（捕获 panic，避免一个检测器拖垮整次运行）
func (h *CompositeHandler) runOne(ctx context.Context, d Detector, snapshot *model.EvidenceSnapshot) (result DetectorResult) {
	result.Detector = d.Name()
	dctx := logger.WithDetector(ctx, string(d.Name()))

	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf(dctx, "[CompositeHandler] detector panic: %v", r)
			result.Flags = nil
			result.Err = fmt.Errorf("detector %s panic: %v", d.Name(), r)
		}
	}()

	result.Flags = d.Detect(dctx, snapshot)
	h.logger.Debugf(dctx, "[CompositeHandler] detector produced %d candidates", len(result.Flags))

	return result
}

// Merge 拼接所有检测器的候选标记
func Merge(results []DetectorResult) []model.AnomalyFlag {
	total := 0
	for _, r := range results {
		total += len(r.Flags)
	}

	merged := make([]model.AnomalyFlag, 0, total)
	for _, r := range results {
		merged = append(merged, r.Flags...)
	}
	return merged
}
