package games

import (
	"context"
	"github.com/stretchr/testify/mock"
)

// ScoreStoreMock mocks ScoreStore.
type ScoreStoreMock struct {
	mock.Mock
}

// SubmitScore calls mock.Mock.
func (m *ScoreStoreMock) SubmitScore(ctx context.Context, submission ScoreSubmission) (string, error) {
	args := m.Called(ctx, submission)
	return args.String(0), args.Error(1)
}

// RankingForEvent calls mock.Mock.
func (m *ScoreStoreMock) RankingForEvent(ctx context.Context, eventID string) ([]PlayerScore, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]PlayerScore), args.Error(1)
}

// EventStoreMock mocks EventStore.
type EventStoreMock struct {
	mock.Mock
}

// EventByID calls mock.Mock.
func (m *EventStoreMock) EventByID(ctx context.Context, eventID string) (Event, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(Event), args.Error(1)
}

// ActiveEvents calls mock.Mock.
func (m *EventStoreMock) ActiveEvents(ctx context.Context) ([]Event, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Event), args.Error(1)
}

// SubmissionListenerMock mocks SubmissionListener.
type SubmissionListenerMock struct {
	mock.Mock
}

// ScoreSubmitted calls mock.Mock.
func (m *SubmissionListenerMock) ScoreSubmitted(ctx context.Context, submission ScoreSubmission, scoreID string) {
	m.Called(ctx, submission, scoreID)
}
