package business

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"fieldaudit/internal/business/detect"
	"fieldaudit/internal/model"
	"fieldaudit/pkg/errorutil"
	"fieldaudit/pkg/logger"
)

// seedStore 三个外勤人员各触发一种异常
func seedStore() *memoryStore {
	store := newMemoryStore()

	spoof := model.JobRecord{
		ID: "j1", SubjectID: "s1", ScheduledDate: baseDay, Location: "north",
		Status: model.JobStatusCompleted, StartedAt: at(9, 0), EndedAt: at(12, 0),
		CheckIn: &model.Coordinate{Lat: 51.5, Lng: -0.12}, CheckInDistance: func() *float64 { v := 1500.0; return &v }(),
	}
	short := model.JobRecord{
		ID: "j2", SubjectID: "s2", ScheduledDate: baseDay, Location: "east",
		Status: model.JobStatusCompleted, StartedAt: at(10, 0), EndedAt: at(10, 5),
	}
	noWork := model.JobRecord{
		ID: "j3", SubjectID: "s3", ScheduledDate: baseDay, Location: "west",
		Status: model.JobStatusCompleted, StartedAt: at(9, 0), EndedAt: at(12, 0),
	}
	pending := model.JobRecord{
		ID: "j4", SubjectID: "s3", ScheduledDate: baseDay, Location: "south",
		Status: model.JobStatusPending,
	}
	store.jobs = []model.JobRecord{spoof, short, noWork, pending}
	store.checklists["j3"] = []model.ChecklistItem{
		{ID: "c1", JobID: "j3", Status: model.ChecklistStatusPending},
		{ID: "c2", JobID: "j3", Status: model.ChecklistStatusPending},
		{ID: "c3", JobID: "j3", Status: model.ChecklistStatusIssue},
		{ID: "c4", JobID: "j3", Status: model.ChecklistStatusPending},
	}
	return store
}

func newTestService(t *testing.T, store *memoryStore, locker RunLocker, notifier ScanNotifier) *DetectionService {
	t.Helper()
	now := baseDay.Add(3*24*time.Hour + 8*time.Hour)
	svc, err := NewDetectionService(DetectionServiceDeps{
		Store:      store,
		Flags:      store,
		Composite:  detect.NewCompositeHandler(detect.DefaultThresholds(), true, logger.NewNopLogger()),
		Locker:     locker,
		Notifier:   notifier,
		Logger:     logger.NewNopLogger(),
		WindowDays: 7,
		Location:   time.UTC,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewDetectionService() error = %v", err)
	}
	return svc
}

func TestDetectionServiceRunStoresFlags(t *testing.T) {
	store := seedStore()
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, nil, notifier)

	summary, err := svc.Run(context.Background(), RunRequest{RequestID: "req-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.AnomaliesDetected != 3 {
		t.Fatalf("AnomaliesDetected = %d, want 3 (flags=%+v)", summary.AnomaliesDetected, summary.Flags)
	}
	if summary.NewFlagsStored != 3 || summary.Skipped != 0 {
		t.Errorf("stored=%d skipped=%d, want 3/0", summary.NewFlagsStored, summary.Skipped)
	}
	if summary.WindowStart != "2026-10-08" {
		t.Errorf("WindowStart = %s, want 2026-10-08", summary.WindowStart)
	}

	want := map[model.FlagType]int{
		model.FlagTypeGPSSpoofing:      1,
		model.FlagTypeImpossibleTravel: 0,
		model.FlagTypeTimeAnomaly:      1,
		model.FlagTypeNoWorkEvidence:   1,
	}
	for k, v := range want {
		if summary.DetectorCounts[k] != v {
			t.Errorf("DetectorCounts[%s] = %d, want %d", k, summary.DetectorCounts[k], v)
		}
	}

	for _, f := range store.flags {
		if f.ID == "" {
			t.Errorf("stored flag without id: %+v", f)
		}
		if f.Confidence < 0 || f.Confidence > model.MaxConfidence {
			t.Errorf("confidence out of range: %v", f.Confidence)
		}
		if f.Resolved {
			t.Errorf("new flag must be unresolved")
		}
	}

	if len(notifier.summaries) != 1 {
		t.Errorf("notifier called %d times, want 1", len(notifier.summaries))
	}
}

func TestDetectionServiceRunIsIdempotent(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, nil, nil)

	first, err := svc.Run(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	second, err := svc.Run(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if second.AnomaliesDetected != first.AnomaliesDetected {
		t.Errorf("second detected = %d, want %d", second.AnomaliesDetected, first.AnomaliesDetected)
	}
	if second.NewFlagsStored != 0 {
		t.Errorf("second stored = %d, want 0", second.NewFlagsStored)
	}
	if second.Skipped != first.NewFlagsStored {
		t.Errorf("second skipped = %d, want %d", second.Skipped, first.NewFlagsStored)
	}
	if len(store.flags) != first.NewFlagsStored {
		t.Errorf("store holds %d flags, want %d", len(store.flags), first.NewFlagsStored)
	}
}

func TestDetectionServiceResolvedFlagsDoNotSuppress(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, nil, nil)

	if _, err := svc.Run(context.Background(), RunRequest{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i := range store.flags {
		store.flags[i].Resolved = true
		// 模拟上一窗口写入，避免唯一键冲突
		store.flags[i].WindowStart = store.flags[i].WindowStart.AddDate(0, 0, -1)
	}

	summary, err := svc.Run(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.NewFlagsStored != 3 {
		t.Errorf("stored = %d, want 3", summary.NewFlagsStored)
	}
}

func TestDetectionServiceLoadFailureIsFatal(t *testing.T) {
	store := seedStore()
	store.loadJobsErr = errStorage
	notifier := &fakeNotifier{}
	svc := newTestService(t, store, nil, notifier)

	summary, err := svc.Run(context.Background(), RunRequest{})
	if err == nil {
		t.Fatalf("Run() error = nil, summary=%+v", summary)
	}
	if !errors.Is(err, errStorage) {
		t.Errorf("error should wrap storage error, got %v", err)
	}
	if errorutil.StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", errorutil.StatusCode(err))
	}
	if store.saveCalls != 0 || len(store.flags) != 0 {
		t.Errorf("no flags may be written on load failure, saves=%d", store.saveCalls)
	}
	if len(notifier.summaries) != 0 {
		t.Errorf("notifier must not be called on failure")
	}
}

func TestDetectionServicePartialPersistence(t *testing.T) {
	store := seedStore()
	store.saveErrFor[model.FlagTypeTimeAnomaly] = errStorage
	svc := newTestService(t, store, nil, nil)

	summary, err := svc.Run(context.Background(), RunRequest{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.NewFlagsStored != 2 {
		t.Errorf("stored = %d, want 2", summary.NewFlagsStored)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(summary.Failures))
	}
	if summary.Failures[0].Flag.FlagType != model.FlagTypeTimeAnomaly {
		t.Errorf("failed flag type = %s", summary.Failures[0].Flag.FlagType)
	}
	if store.saveCalls != 3 {
		t.Errorf("save attempts = %d, want 3", store.saveCalls)
	}
}

func TestDetectionServiceRunLock(t *testing.T) {
	store := seedStore()
	locker := &fakeLocker{held: true}
	svc := newTestService(t, store, locker, nil)

	_, err := svc.Run(context.Background(), RunRequest{})
	if errorutil.StatusCode(err) != http.StatusConflict {
		t.Fatalf("StatusCode = %d, want 409 (err=%v)", errorutil.StatusCode(err), err)
	}
	if store.saveCalls != 0 {
		t.Errorf("saves = %d, want 0", store.saveCalls)
	}

	locker.held = false
	if _, err := svc.Run(context.Background(), RunRequest{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if locker.released != 1 || locker.held {
		t.Errorf("lock not released: released=%d held=%v", locker.released, locker.held)
	}
}

func TestDetectionServiceCancelledContext(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Run(ctx, RunRequest{}); err == nil {
		t.Fatal("Run() with cancelled context should fail")
	}
	if store.saveCalls != 0 {
		t.Errorf("saves = %d, want 0", store.saveCalls)
	}
}

// cancelAfterLoadStore 加载完证据后取消 ctx，模拟检测阶段被取消
type cancelAfterLoadStore struct {
	*memoryStore
	cancel context.CancelFunc
}

func (c *cancelAfterLoadStore) LoadExistingFlags(ctx context.Context, windowStart time.Time) ([]model.AnomalyFlag, error) {
	flags, err := c.memoryStore.LoadExistingFlags(ctx, windowStart)
	c.cancel()
	return flags, err
}

func TestDetectionServiceCancelledDuringDetection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := seedStore()
	svc, err := NewDetectionService(DetectionServiceDeps{
		Store:     &cancelAfterLoadStore{memoryStore: store, cancel: cancel},
		Flags:     store,
		Composite: detect.NewCompositeHandler(detect.DefaultThresholds(), true, logger.NewNopLogger()),
		Logger:    logger.NewNopLogger(),
		Location:  time.UTC,
		Now:       func() time.Time { return baseDay.Add(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewDetectionService() error = %v", err)
	}

	_, err = svc.Run(ctx, RunRequest{})
	var e *errorutil.Error
	if !errors.As(err, &e) {
		t.Fatalf("Run() error = %v, want *errorutil.Error", err)
	}
	if e.Message != "anomaly scan cancelled" || !e.Retryable {
		t.Errorf("error = %+v, want retryable cancellation", e)
	}
	if store.saveCalls != 0 {
		t.Errorf("saves = %d, want 0", store.saveCalls)
	}
}

func TestDetectionServiceWindowOverride(t *testing.T) {
	store := seedStore()
	svc := newTestService(t, store, nil, nil)

	override, err := ParseWindowStart("2026-10-13", time.UTC)
	if err != nil {
		t.Fatalf("ParseWindowStart() error = %v", err)
	}
	summary, err := svc.Run(context.Background(), RunRequest{WindowStart: override})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.WindowStart != "2026-10-13" || summary.AnomaliesDetected != 0 {
		t.Errorf("window=%s detected=%d, want 2026-10-13/0", summary.WindowStart, summary.AnomaliesDetected)
	}
}

func TestParseWindowStart(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", value: "", wantNil: true},
		{name: "valid", value: "2026-10-01"},
		{name: "bad format", value: "10/01/2026", wantErr: true},
		{name: "bad date", value: "2026-13-40", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowStart(tt.value, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if errorutil.StatusCode(err) != http.StatusBadRequest {
					t.Errorf("StatusCode = %d, want 400", errorutil.StatusCode(err))
				}
				return
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("got = %v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}

func TestDedup(t *testing.T) {
	window := baseDay.AddDate(0, 0, -7)
	flag := func(subject, job string, ft model.FlagType) model.AnomalyFlag {
		f := model.AnomalyFlag{SubjectID: subject, FlagType: ft, CreatedAt: baseDay}
		if job != "" {
			f.JobID = str(job)
		}
		return f
	}

	existing := []model.AnomalyFlag{
		flag("s1", "j1", model.FlagTypeGPSSpoofing),
		func() model.AnomalyFlag {
			f := flag("s2", "j2", model.FlagTypeTimeAnomaly)
			f.Resolved = true
			return f
		}(),
		func() model.AnomalyFlag {
			f := flag("s3", "j3", model.FlagTypeNoWorkEvidence)
			f.CreatedAt = window.Add(-time.Hour)
			return f
		}(),
	}
	candidates := []model.AnomalyFlag{
		flag("s1", "j1", model.FlagTypeGPSSpoofing),    // 已存在
		flag("s2", "j2", model.FlagTypeTimeAnomaly),    // 已解决，不抑制
		flag("s3", "j3", model.FlagTypeNoWorkEvidence), // 窗口外，不抑制
		flag("s4", "", model.FlagTypeImpossibleTravel), // 无工单
		flag("s4", "", model.FlagTypeImpossibleTravel), // 批内重复
		flag("s1", "j1", model.FlagTypeTimeAnomaly),    // 类型不同
	}

	fresh, skipped := Dedup(candidates, existing, window)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	want := []int{1, 2, 3, 5}
	if len(fresh) != len(want) {
		t.Fatalf("fresh = %v, want %v", fresh, want)
	}
	for i := range want {
		if fresh[i] != want[i] {
			t.Errorf("fresh[%d] = %d, want %d", i, fresh[i], want[i])
		}
	}
}
