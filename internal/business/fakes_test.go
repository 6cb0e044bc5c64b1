package business

import (
	"context"
	"errors"
	"sync"
	"time"

	"fieldaudit/internal/model"
)

var baseDay = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) *time.Time {
	t := baseDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return &t
}

func str(v string) *string { return &v }

// memoryStore 内存版证据存储 + 标记存储
type memoryStore struct {
	mu sync.Mutex

	jobs       []model.JobRecord
	properties map[string]model.PropertyProfile
	checklists map[string][]model.ChecklistItem
	photos     map[string]int
	flags      []model.AnomalyFlag

	loadJobsErr error
	saveErrFor  map[model.FlagType]error
	saveCalls   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		properties: map[string]model.PropertyProfile{},
		checklists: map[string][]model.ChecklistItem{},
		photos:     map[string]int{},
		saveErrFor: map[model.FlagType]error{},
	}
}

func (m *memoryStore) LoadJobs(ctx context.Context, windowStart time.Time) ([]model.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.loadJobsErr != nil {
		return nil, m.loadJobsErr
	}
	out := make([]model.JobRecord, 0, len(m.jobs))
	for _, j := range m.jobs {
		if !j.ScheduledDate.Before(windowStart) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memoryStore) LoadPropertyProfiles(ctx context.Context, ids []string) ([]model.PropertyProfile, error) {
	out := make([]model.PropertyProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.properties[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) LoadChecklistStatuses(ctx context.Context, jobID string) ([]model.ChecklistItem, error) {
	return m.checklists[jobID], nil
}

func (m *memoryStore) LoadPhotoCount(ctx context.Context, jobID string) (int, error) {
	return m.photos[jobID], nil
}

func (m *memoryStore) LoadExistingFlags(ctx context.Context, windowStart time.Time) ([]model.AnomalyFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AnomalyFlag, 0, len(m.flags))
	for _, f := range m.flags {
		if !f.CreatedAt.Before(windowStart) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memoryStore) SaveFlag(ctx context.Context, flag *model.AnomalyFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if err, ok := m.saveErrFor[flag.FlagType]; ok {
		return err
	}
	for _, f := range m.flags {
		if f.Key() == flag.Key() && f.WindowStart.Equal(flag.WindowStart) {
			return model.ErrFlagExists
		}
	}
	m.flags = append(m.flags, *flag)
	return nil
}

// fakeLocker 单进程运行锁
type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.released++
		return nil
	}, true, nil
}

// fakeNotifier 记录通知
type fakeNotifier struct {
	summaries []*model.RunSummary
	err       error
}

func (n *fakeNotifier) PublishScanComplete(ctx context.Context, summary *model.RunSummary) error {
	n.summaries = append(n.summaries, summary)
	return n.err
}

var errStorage = errors.New("storage unavailable")
