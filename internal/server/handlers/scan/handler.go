package scan

import (
	"context"
	"time"

	"fieldaudit/internal/business"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/logger"
)

// Scanner 检测服务
type Scanner interface {
	Run(ctx context.Context, req business.RunRequest) (*model.RunSummary, error)
}

// ScanHandler 检测触发 HTTP 处理器
type ScanHandler struct {
	scanner  Scanner
	location *time.Location
	logger   logger.Logger
}

// NewScanHandler 创建检测触发处理器
func NewScanHandler(scanner Scanner, location *time.Location, log logger.Logger) *ScanHandler {
	if location == nil {
		location = time.UTC
	}
	return &ScanHandler{
		scanner:  scanner,
		location: location,
		logger:   log,
	}
}
