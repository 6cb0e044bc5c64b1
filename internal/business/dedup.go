package business

import (
	"time"

	"fieldaudit/internal/model"
)

// Dedup 返回需要写入的候选下标，以及被跳过的数量
// 跳过条件：窗口内已存在未解决的同键标记，或同一批次中重复出现
func Dedup(candidates []model.AnomalyFlag, existing []model.AnomalyFlag, windowStart time.Time) ([]int, int) {
	seen := make(map[model.FlagKey]struct{}, len(existing)+len(candidates))
	for i := range existing {
		f := &existing[i]
		if f.Resolved || f.CreatedAt.Before(windowStart) {
			continue
		}
		seen[f.Key()] = struct{}{}
	}

	fresh := make([]int, 0, len(candidates))
	skipped := 0
	for i := range candidates {
		key := candidates[i].Key()
		if _, ok := seen[key]; ok {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, i)
	}

	return fresh, skipped
}
