package domains

import (
	"fieldaudit/internal/domains/common"
	"fieldaudit/internal/domains/handlers/anomaly/scan"
	"fieldaudit/internal/model"
)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionTypeAnomalyScan: scan.NewScanHandler,
}
