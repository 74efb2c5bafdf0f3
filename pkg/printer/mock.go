package printer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MockDispatcher accepts every job without touching a spooler. Used on
// development machines without a printer and in tests.
type MockDispatcher struct {
	mu          sync.Mutex
	next        int
	Jobs        []Job
	Submissions []Options
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Submit(ctx context.Context, imagePath string, opts Options) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	job := Job{ID: fmt.Sprintf("MOCK-%d", m.next), Target: "mock"}
	m.Jobs = append(m.Jobs, job)
	m.Submissions = append(m.Submissions, opts)
	slog.Info("mock print accepted", "job", job.ID, "path", imagePath, "copies", opts.Copies)
	return job, nil
}

func (m *MockDispatcher) Available(ctx context.Context) (string, error) {
	return "mock", nil
}
