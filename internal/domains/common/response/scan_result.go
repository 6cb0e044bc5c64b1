package response

import (
	"fieldaudit/internal/domains/common/job"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/errorutil"
)

// ScanResult 检测任务结果
type ScanResult struct {
	ID      string            `json:"id"`
	Status  string            `json:"status"`
	Summary *model.RunSummary `json:"summary,omitempty"`
	Error   *errorutil.Error  `json:"error,omitempty"`
}

// NewScanResult 创建检测结果
func NewScanResult() *ScanResult {
	return &ScanResult{}
}

// Set 实现 ResultI 接口
func (r *ScanResult) Set(meta *job.Meta, err error) {
	r.ID = meta.ID
	if err != nil {
		r.Status = model.CallbackStatusFailed
		r.Error = errorutil.Wrap(err)
	} else {
		r.Status = model.CallbackStatusSuccess
	}
}

// GetStatus 实现 ResultI 接口
func (r *ScanResult) GetStatus() string {
	return r.Status
}
