package server

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/opportunity-research/internal/model"
)

type mockResearcher struct {
	mock.Mock
}

func (m *mockResearcher) Run(ctx context.Context, subject model.Subject) (*model.ResearchPayload, error) {
	args := m.Called(ctx, subject)
	payload, _ := args.Get(0).(*model.ResearchPayload)
	return payload, args.Error(1)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	entries []model.LogEntry
}

func (d *recordingDispatcher) Dispatch(entry model.LogEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, entry)
}

func (d *recordingDispatcher) Entries() []model.LogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.LogEntry(nil), d.entries...)
}
