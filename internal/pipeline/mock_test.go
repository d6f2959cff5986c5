package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/pjm-brief/internal/model"
)

type mockReader struct{ mock.Mock }

func (m *mockReader) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*model.Snapshot)
	return snap, args.Error(1)
}

type mockNarrator struct{ mock.Mock }

func (m *mockNarrator) Generate(ctx context.Context, digest string) (string, error) {
	args := m.Called(ctx, digest)
	return args.String(0), args.Error(1)
}

type mockWriter struct{ mock.Mock }

func (m *mockWriter) Write(narrative string, date time.Time) (string, error) {
	args := m.Called(narrative, date)
	return args.String(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, reportPath, narrative string, date time.Time) error {
	args := m.Called(ctx, reportPath, narrative, date)
	return args.Error(0)
}
