package common

import (
	"context"
	"time"

	"fieldaudit/internal/business"
	"fieldaudit/internal/domains/common/job"
	"fieldaudit/internal/domains/common/response"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/logger"
)

// Scanner 检测服务
type Scanner interface {
	Run(ctx context.Context, req business.RunRequest) (*model.RunSummary, error)
}

// CallbackPublisher 回调队列发布
type CallbackPublisher interface {
	PublishJSON(queue string, v interface{}) (string, error)
}

// Deps Handler 依赖
type Deps struct {
	Scanner       Scanner
	Callback      CallbackPublisher // 可选
	CallbackQueue string
	Location      *time.Location // 解析 window_start 的时区
	Logger        logger.Logger
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(ctx context.Context, deps *Deps, meta *job.Meta, payload []byte) (HandlerServ, error)

// HandlerServ Handler 接口
type HandlerServ interface {
	GetProcess() *response.Response
}
