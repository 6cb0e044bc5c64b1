package scan

import (
	"context"
	"encoding/json"
	"time"

	"fieldaudit/internal/business"
	"fieldaudit/internal/domains/common"
	"fieldaudit/internal/domains/common/job"
	"fieldaudit/internal/domains/common/response"
	"fieldaudit/internal/framework"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/errorutil"
	"fieldaudit/pkg/logger"
)

// ScanHandler 异常检测 Handler
type ScanHandler struct {
	ctx     context.Context
	deps    *common.Deps
	logger  logger.Logger
	meta    *job.Meta
	bizData model.AnomalyScanBusinessData

	// 处理过程中的中间状态
	request business.RunRequest
	summary *model.RunSummary
}

// NewScanHandler 创建检测 Handler
func NewScanHandler(ctx context.Context, deps *common.Deps, meta *job.Meta, payload []byte) (common.HandlerServ, error) {
	if deps == nil || deps.Scanner == nil {
		return nil, errorutil.NonRetriable("scanner is not configured")
	}

	var bizData model.AnomalyScanBusinessData
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &bizData); err != nil {
			return nil, errorutil.NonRetriableWithDetails("unmarshal business data failed", err.Error())
		}
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &ScanHandler{
		ctx:     ctx,
		deps:    deps,
		logger:  log,
		meta:    meta,
		bizData: bizData,
	}, nil
}

// GetProcess 处理检测请求
func (h *ScanHandler) GetProcess() *response.Response {
	result := response.NewScanResult()

	chain := framework.NewPreProcessor(
		framework.Step{Name: "prepare", Fn: h.prepare},
		framework.Step{Name: "run", Fn: h.run},
	)
	err := chain.Run(h.ctx)
	result.Summary = h.summary

	resp := response.NewResponse(result, h.meta, err)

	h.sendCallback(err)

	return resp
}

// prepare 解析窗口参数
func (h *ScanHandler) prepare(ctx context.Context) error {
	windowStart, err := business.ParseWindowStart(h.bizData.WindowStart, h.deps.Location)
	if err != nil {
		return err
	}
	h.request = business.RunRequest{
		RequestID:   h.meta.RequestID,
		WindowStart: windowStart,
	}
	return nil
}

// run 执行检测
func (h *ScanHandler) run(ctx context.Context) error {
	summary, err := h.deps.Scanner.Run(ctx, h.request)
	if err != nil {
		return err
	}
	h.summary = summary
	return nil
}

// sendCallback 发送回调（失败只记录日志，检测结果已落库）
// 可重试的错误不发送回调，等待重新投递后的结果
func (h *ScanHandler) sendCallback(runErr error) {
	if h.deps.Callback == nil || h.deps.CallbackQueue == "" {
		return
	}
	if runErr != nil && errorutil.IsRetryable(runErr) {
		return
	}

	callback := &model.AnomalyScanCallback{
		RequestID:   h.meta.RequestID,
		Status:      model.CallbackStatusSuccess,
		Summary:     h.summary,
		ProcessedAt: time.Now().Unix(),
	}
	if runErr != nil {
		callback.Status = model.CallbackStatusFailed
		callback.Error = runErr.Error()
	}

	jobID, err := h.deps.Callback.PublishJSON(h.deps.CallbackQueue, callback)
	if err != nil {
		h.logger.Warnf(h.ctx, "[ScanHandler] Send callback failed: %v", err)
		return
	}
	h.logger.Infof(h.ctx, "[ScanHandler] Callback sent: queue=%s job_id=%s status=%s",
		h.deps.CallbackQueue, jobID, callback.Status)
}
