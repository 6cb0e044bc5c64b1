package scan

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"fieldaudit/internal/business"
	"fieldaudit/internal/server/middlewares"
	"fieldaudit/pkg/ginx"
)

// TriggerScanRequest 触发检测请求（请求体可省略）
type TriggerScanRequest struct {
	WindowStart string `json:"window_start" binding:"omitempty,datetime=2006-01-02"`
}

// Trigger 触发一次检测
// POST /api/v1/anomaly-scans
func (h *ScanHandler) Trigger(c *gin.Context) {
	var req TriggerScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	windowStart, err := business.ParseWindowStart(req.WindowStart, h.location)
	if err != nil {
		ginx.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	h.logger.Infof(ctx, "[ScanHandler] Scan triggered by %s, window_start=%q",
		middlewares.Caller(c), req.WindowStart)

	summary, err := h.scanner.Run(ctx, business.RunRequest{
		RequestID:   c.Writer.Header().Get(middlewares.HeaderRequestID),
		WindowStart: windowStart,
	})
	if err != nil {
		h.logger.Errorf(ctx, "[ScanHandler] Scan failed: %v", err)
		ginx.FromError(c, err)
		return
	}

	ginx.Success(c, summary)
}
