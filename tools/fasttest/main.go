package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fieldaudit/internal/app"
	"fieldaudit/internal/business"
	"fieldaudit/internal/business/detect"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/config"
	"fieldaudit/pkg/logger"
)

var (
	configPath   = flag.String("config", "./config/worker.yaml", "配置文件路径")
	testcasePath = flag.String("testcase", "./tools/fasttest/testdata/scan.json", "测试用例路径")
	skipDB       = flag.Bool("skip-db", false, "跳过数据库（直接对用例快照运行检测器）")
	windowStart  = flag.String("window-start", "", "完整模式下的窗口起点 YYYY-MM-DD")
)

// TestCase 离线用例：证据快照 + 各检测器期望的标记数
type TestCase struct {
	Name        string                           `json:"name"`
	Jobs        []model.JobRecord                `json:"jobs"`
	Properties  []model.PropertyProfile          `json:"properties"`
	Checklists  map[string][]model.ChecklistItem `json:"checklists"`
	PhotoCounts map[string]int                   `json:"photo_counts"`
	Expect      map[model.FlagType]int           `json:"expect"`
}

func main() {
	flag.Parse()
	os.Exit(run())
}

// run 返回进程退出码；log.Sync 在返回前执行
func run() int {
	fmt.Println("========================================")
	fmt.Println("  FastTest - FieldAudit 检测快速验证")
	fmt.Println("========================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return 1
	}
	fmt.Printf("Config loaded: %s\n", cfg.App.Name)

	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	if *skipDB {
		return runOffline(cfg, log)
	}
	return runFull(cfg, log)
}

// runOffline 对用例快照运行检测器，比较各检测器的标记数
func runOffline(cfg *config.Config, log logger.Logger) int {
	testCases, err := loadTestCases(*testcasePath)
	if err != nil {
		fmt.Printf("Failed to load test cases: %v\n", err)
		return 1
	}
	fmt.Printf("Loaded %d test cases from %s\n", len(testCases), *testcasePath)

	composite := detect.NewCompositeHandler(cfg.Detection.Thresholds, cfg.Detection.Parallel, log)
	failures := 0

	for i, tc := range testCases {
		fmt.Printf("\n[Test %d/%d] %s\n", i+1, len(testCases), tc.Name)
		fmt.Println("----------------------------------------")

		startTime := time.Now()
		results, err := composite.Detect(context.Background(), tc.snapshot())
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			failures++
			continue
		}

		ok := true
		for _, r := range results {
			for _, f := range r.Flags {
				fmt.Printf("    - %s subject=%s severity=%s confidence=%.2f\n", f.FlagType, f.SubjectID, f.Severity, f.Confidence)
			}
			if want, has := tc.Expect[r.Detector]; has && want != len(r.Flags) {
				fmt.Printf("  %s: got %d flags, want %d\n", r.Detector, len(r.Flags), want)
				ok = false
			}
		}

		if ok {
			fmt.Printf("PASSED (%v)\n", time.Since(startTime))
		} else {
			fmt.Printf("FAILED (%v)\n", time.Since(startTime))
			failures++
		}
	}

	fmt.Println("\n========================================")
	fmt.Printf("Total: %d  Passed: %d  Failed: %d\n", len(testCases), len(testCases)-failures, failures)
	if failures > 0 {
		return 1
	}
	return 0
}

// runFull 连接数据库执行一次完整检测
func runFull(cfg *config.Config, log logger.Logger) int {
	ctx := context.Background()

	infra, cleanup, err := app.NewInfra(ctx, cfg, log)
	if err != nil {
		fmt.Printf("Failed to init infra: %v\n", err)
		return 1
	}
	defer cleanup()

	svc, err := app.NewDetectionService(cfg, infra, log)
	if err != nil {
		fmt.Printf("Failed to create detection service: %v\n", err)
		return 1
	}

	override, err := business.ParseWindowStart(*windowStart, cfg.Detection.Thresholds.Location)
	if err != nil {
		fmt.Printf("Invalid window start: %v\n", err)
		return 1
	}

	summary, err := svc.Run(ctx, business.RunRequest{RequestID: "fasttest", WindowStart: override})
	if err != nil {
		fmt.Printf("Run failed: %v\n", err)
		return 1
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	if len(summary.Failures) > 0 {
		return 1
	}
	return 0
}

func (tc *TestCase) snapshot() *model.EvidenceSnapshot {
	props := make(map[string]model.PropertyProfile, len(tc.Properties))
	for _, p := range tc.Properties {
		props[p.ID] = p
	}
	return &model.EvidenceSnapshot{
		Jobs:        tc.Jobs,
		Properties:  props,
		Checklists:  tc.Checklists,
		PhotoCounts: tc.PhotoCounts,
	}
}

// loadTestCases 从 JSON 文件加载测试用例
func loadTestCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read testcase file: %w", err)
	}

	var testCases []TestCase
	if err := json.Unmarshal(data, &testCases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal testcase: %w", err)
	}

	return testCases, nil
}
