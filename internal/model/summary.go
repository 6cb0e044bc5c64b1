package model

import "time"

// FlagFailure 单个标记持久化失败
type FlagFailure struct {
	Flag  AnomalyFlag `json:"flag"`
	Error string      `json:"error"`
}

// RunSummary 一次检测运行的汇总
type RunSummary struct {
	RunID             string           `json:"runId"`
	WindowStart       string           `json:"windowStart"`
	AnomaliesDetected int              `json:"anomaliesDetected"`
	NewFlagsStored    int              `json:"newFlagsStored"`
	Skipped           int              `json:"skipped"`
	Flags             []AnomalyFlag    `json:"flags"`
	Failures          []FlagFailure    `json:"failures,omitempty"`
	DetectorCounts    map[FlagType]int `json:"detectorCounts"`
	StartedAt         time.Time        `json:"startedAt"`
	FinishedAt        time.Time        `json:"finishedAt"`
}
