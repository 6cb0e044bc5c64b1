package detect

import (
	"context"
	"math"
	"testing"

	"fieldaudit/internal/model"
)

func TestGPSSpoofDetector(t *testing.T) {
	tests := []struct {
		name           string
		checkIn        *model.Coordinate
		distance       *float64
		status         model.JobStatus
		wantFlag       bool
		wantSeverity   model.Severity
		wantConfidence float64
	}{
		{
			name:           "1200m is high and confidence capped",
			checkIn:        coord(40.0, -74.0),
			distance:       float(1200),
			status:         model.JobStatusCompleted,
			wantFlag:       true,
			wantSeverity:   model.SeverityHigh,
			wantConfidence: 0.9,
		},
		{
			name:           "600m is medium",
			checkIn:        coord(40.0, -74.0),
			distance:       float(600),
			status:         model.JobStatusCompleted,
			wantFlag:       true,
			wantSeverity:   model.SeverityMedium,
			wantConfidence: 0.8,
		},
		{
			name:           "exactly 1000m stays medium",
			checkIn:        coord(40.0, -74.0),
			distance:       float(1000),
			status:         model.JobStatusCompleted,
			wantFlag:       true,
			wantSeverity:   model.SeverityMedium,
			wantConfidence: 0.9,
		},
		{
			name:     "exactly 500m is not flagged",
			checkIn:  coord(40.0, -74.0),
			distance: float(500),
			status:   model.JobStatusCompleted,
		},
		{
			name:     "no check-in coordinate never flagged",
			checkIn:  nil,
			distance: float(5000),
			status:   model.JobStatusCompleted,
		},
		{
			name:     "no precomputed distance",
			checkIn:  coord(40.0, -74.0),
			distance: nil,
			status:   model.JobStatusCompleted,
		},
		{
			name:     "pending job ignored",
			checkIn:  coord(40.0, -74.0),
			distance: float(5000),
			status:   model.JobStatusPending,
		},
	}

	d := NewGPSSpoofDetector(DefaultThresholds().GPSSpoof)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := completedJob("j1", "s1", at(9, 0), at(10, 0))
			job.Status = tt.status
			job.CheckIn = tt.checkIn
			job.CheckInDistance = tt.distance

			flags := d.Detect(context.Background(), &model.EvidenceSnapshot{Jobs: []model.JobRecord{job}})

			if !tt.wantFlag {
				if len(flags) != 0 {
					t.Fatalf("expected no flag, got %+v", flags)
				}
				return
			}
			if len(flags) != 1 {
				t.Fatalf("expected 1 flag, got %d", len(flags))
			}
			f := flags[0]
			if f.FlagType != model.FlagTypeGPSSpoofing {
				t.Errorf("FlagType = %s", f.FlagType)
			}
			if f.Severity != tt.wantSeverity {
				t.Errorf("Severity = %s, want %s", f.Severity, tt.wantSeverity)
			}
			if math.Abs(f.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", f.Confidence, tt.wantConfidence)
			}
			if f.Evidence["threshold_m"] != 500.0 {
				t.Errorf("threshold_m = %v", f.Evidence["threshold_m"])
			}
			if f.Evidence["location"] != "site j1" {
				t.Errorf("location = %v", f.Evidence["location"])
			}
			if f.SubjectID != "s1" || f.JobID == nil || *f.JobID != "j1" {
				t.Errorf("subject/job not carried: %+v", f)
			}
		})
	}
}
