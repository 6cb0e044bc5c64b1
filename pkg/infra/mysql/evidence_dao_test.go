package mysql

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"fieldaudit/internal/entity"
	"fieldaudit/internal/model"
)

// dryRunDAO 不连接数据库，只记录查询 SQL 与绑定参数
func dryRunDAO(t *testing.T) (*EvidenceDAO, *[]interface{}, *string) {
	t.Helper()
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/fieldaudit?parseTime=true&loc=UTC",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	var vars []interface{}
	var sql string
	err = db.Callback().Query().After("gorm:query").Register("test:capture", func(tx *gorm.DB) {
		vars = append([]interface{}(nil), tx.Statement.Vars...)
		sql = tx.Statement.SQL.String()
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return NewEvidenceDAO(db), &vars, &sql
}

func TestLoadJobsBindsCalendarDate(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name        string
		windowStart time.Time
		want        string
	}{
		{name: "utc", windowStart: time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC), want: "2026-10-08"},
		{name: "west of utc", windowStart: time.Date(2026, 10, 8, 0, 0, 0, 0, newYork), want: "2026-10-08"},
		{name: "east of utc", windowStart: time.Date(2026, 10, 8, 0, 0, 0, 0, tokyo), want: "2026-10-08"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dao, vars, sql := dryRunDAO(t)
			if _, err := dao.LoadJobs(context.Background(), tt.windowStart); err != nil {
				t.Fatalf("LoadJobs() error = %v", err)
			}
			if !strings.Contains(*sql, "scheduled_date >= ?") {
				t.Errorf("sql = %s", *sql)
			}
			if len(*vars) != 1 || (*vars)[0] != tt.want {
				t.Errorf("bound vars = %v, want [%s]", *vars, tt.want)
			}
		})
	}
}

func TestChunks(t *testing.T) {
	ids := make([]string, queryChunkSize*2+3)
	for i := range ids {
		ids[i] = "id"
	}

	tests := []struct {
		name string
		in   []string
		want []int
	}{
		{name: "empty", in: nil, want: []int{}},
		{name: "single", in: ids[:1], want: []int{1}},
		{name: "exact", in: ids[:queryChunkSize], want: []int{queryChunkSize}},
		{name: "overflow", in: ids, want: []int{queryChunkSize, queryChunkSize, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunks(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if len(got[i]) != tt.want[i] {
					t.Errorf("chunk %d len = %d, want %d", i, len(got[i]), tt.want[i])
				}
			}
		})
	}
}

func TestToJobRecordCoordinates(t *testing.T) {
	lat, lng, dist := 51.5, -0.12, 42.0
	row := &entity.Job{
		ID:              "j1",
		SubjectID:       "s1",
		Status:          "completed",
		CheckInLat:      &lat,
		CheckInLng:      &lng,
		CheckInDistance: &dist,
		CheckOutLat:     &lat, // 缺少经度，视为无签退坐标
	}

	job := toJobRecord(row)
	if job.CheckIn == nil || job.CheckIn.Lat != lat || job.CheckIn.Lng != lng {
		t.Errorf("CheckIn = %+v", job.CheckIn)
	}
	if job.CheckOut != nil {
		t.Errorf("CheckOut = %+v, want nil", job.CheckOut)
	}
	if !job.IsCompleted() {
		t.Errorf("status not mapped: %s", job.Status)
	}
}

func TestAnomalyFlagRowMapping(t *testing.T) {
	jobID := "j1"
	window := time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC)
	flag := &model.AnomalyFlag{
		ID:          "f1",
		SubjectID:   "s1",
		JobID:       &jobID,
		FlagType:    model.FlagTypeGPSSpoofing,
		Severity:    model.SeverityHigh,
		Evidence:    model.Evidence{"check_in_distance_m": 1500.0},
		Confidence:  0.9,
		WindowStart: window,
		CreatedAt:   window.Add(time.Hour),
	}

	row, err := fromAnomalyFlag(flag)
	if err != nil {
		t.Fatalf("fromAnomalyFlag() error = %v", err)
	}
	if row.JobKey != "j1" || row.WindowDate != "2026-10-08" {
		t.Errorf("row key = (%s, %s)", row.JobKey, row.WindowDate)
	}

	back, err := toAnomalyFlag(row)
	if err != nil {
		t.Fatalf("toAnomalyFlag() error = %v", err)
	}
	if back.Key() != flag.Key() || !back.WindowStart.Equal(window) {
		t.Errorf("key = %+v window = %v", back.Key(), back.WindowStart)
	}
	if back.Evidence["check_in_distance_m"] != 1500.0 {
		t.Errorf("evidence = %v", back.Evidence)
	}

	// 与工单无关的标记
	flag.JobID = nil
	row, _ = fromAnomalyFlag(flag)
	back, _ = toAnomalyFlag(row)
	if row.JobKey != "" || back.JobID != nil {
		t.Errorf("job-less flag mapped to job %q", row.JobKey)
	}
}

// 需要真实 MySQL：INTEGRATION_TESTS=1 MYSQL_DSN=...
func TestEvidenceDAOIntegration(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if os.Getenv("INTEGRATION_TESTS") == "" || dsn == "" {
		t.Skip("set INTEGRATION_TESTS=1 and MYSQL_DSN to run")
	}

	db, err := Open(Options{DSN: dsn, AutoMigrate: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer Close(db)

	ctx := context.Background()
	dao := NewEvidenceDAO(db)
	window := time.Now().UTC().Truncate(24 * time.Hour)
	subject := "it-" + time.Now().Format("150405.000000")

	flag := &model.AnomalyFlag{
		ID:          subject + "-1",
		SubjectID:   subject,
		FlagType:    model.FlagTypeImpossibleTravel,
		Severity:    model.SeverityMedium,
		Evidence:    model.Evidence{"distance_m": 10000},
		Confidence:  0.75,
		WindowStart: window,
		CreatedAt:   time.Now().UTC(),
	}
	if err := dao.SaveFlag(ctx, flag); err != nil {
		t.Fatalf("SaveFlag() error = %v", err)
	}

	dup := *flag
	dup.ID = subject + "-2"
	if err := dao.SaveFlag(ctx, &dup); !errors.Is(err, model.ErrFlagExists) {
		t.Errorf("duplicate SaveFlag() error = %v, want ErrFlagExists", err)
	}

	flags, err := dao.LoadExistingFlags(ctx, window)
	if err != nil {
		t.Fatalf("LoadExistingFlags() error = %v", err)
	}
	found := 0
	for _, f := range flags {
		if f.SubjectID == subject {
			found++
		}
	}
	if found != 1 {
		t.Errorf("found %d flags for %s, want 1", found, subject)
	}

	db.WithContext(ctx).Where("subject_id = ?", subject).Delete(&entity.AnomalyFlag{})
}
