package detect

import (
	"time"

	"fieldaudit/internal/model"
)

var baseDay = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) *time.Time {
	t := baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &t
}

func coord(lat, lng float64) *model.Coordinate {
	return &model.Coordinate{Lat: lat, Lng: lng}
}

func float(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func str(v string) *string { return &v }

func completedJob(id, subject string, start, end *time.Time) model.JobRecord {
	return model.JobRecord{
		ID:            id,
		SubjectID:     subject,
		ScheduledDate: baseDay,
		Location:      "site " + id,
		Status:        model.JobStatusCompleted,
		StartedAt:     start,
		EndedAt:       end,
	}
}

func flagsFor(flags []model.AnomalyFlag, jobID string) []model.AnomalyFlag {
	out := make([]model.AnomalyFlag, 0)
	for _, f := range flags {
		if f.JobID != nil && *f.JobID == jobID {
			out = append(out, f)
		}
	}
	return out
}
