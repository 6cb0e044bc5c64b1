package response

import (
	"fieldaudit/internal/domains/common/job"
	"fieldaudit/pkg/errorutil"
)

// ResultI 业务结果
type ResultI interface {
	Set(meta *job.Meta, err error)
	GetStatus() string
}

// Response Handler 统一输出，序列化后作为 JobResp.Data
type Response struct {
	Error     *errorutil.Error `json:"error"`
	Result    ResultI          `json:"result"`
	Processed bool             `json:"processed"`
	Meta      *job.Meta        `json:"meta"`
}

// NewResponse 由处理结果构造响应
func NewResponse(result ResultI, meta *job.Meta, err error) *Response {
	result.Set(meta, err)
	return &Response{
		Error:     errorutil.UnWrapResponse(err),
		Result:    result,
		Processed: err == nil,
		Meta:      meta,
	}
}

// Retryable 失败且可以通过重新投递恢复
func (r *Response) Retryable() bool {
	return r.Error != nil && r.Error.Retryable
}
