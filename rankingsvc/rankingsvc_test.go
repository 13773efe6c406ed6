package rankingsvc

import (
	"context"
	nativeerrors "errors"
	"github.com/lefinal/memorama/event"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
	"time"
)

const timeout = 3 * time.Second

// storeStub mocks Store.
type storeStub struct {
	mock.Mock
}

func (stub *storeStub) EventByID(ctx context.Context, eventID string) (games.Event, error) {
	args := stub.Called(ctx, eventID)
	return args.Get(0).(games.Event), args.Error(1)
}

func (stub *storeStub) RankingForEvent(ctx context.Context, eventID string) ([]games.PlayerScore, error) {
	args := stub.Called(ctx, eventID)
	scores, _ := args.Get(0).([]games.PlayerScore)
	return scores, args.Error(1)
}

func TestTopicRanking(t *testing.T) {
	assert.Equal(t, portal.Topic("memorama/events/e1/ranking"), TopicRanking("e1"))
}

func TestNewService(t *testing.T) {
	logger := zap.New(zapcore.NewNopCore())
	portalStub := &portal.Stub{}
	storeStub := &storeStub{}
	s := NewService(logger, portalStub, storeStub)
	require.NotNil(t, s, "should not be nil")
	assert.Equal(t, logger, s.logger, "should set correct logger")
	assert.Equal(t, portalStub, s.portal, "should set correct portal")
	assert.Equal(t, storeStub, s.store, "should set correct store")
}

func TestBuildRanking(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ranking := BuildRanking(games.Event{ID: "e1", Name: "FESTIVALAZO"}, []games.PlayerScore{
		{ID: "s1", PlayerID: "p1", PlayerName: "Ana", Score: 900, ElapsedSeconds: 65, Moves: 8, MatchedPairs: 8, TotalPairs: 8, CreatedAt: created},
		{ID: "s2", PlayerID: "p2", PlayerName: "Luis", Score: 860, ElapsedSeconds: 40, Moves: 10, MatchedPairs: 8, TotalPairs: 8, CreatedAt: created},
	})
	assert.Equal(t, "e1", ranking.EventID)
	assert.Equal(t, "FESTIVALAZO", ranking.EventName)
	require.Len(t, ranking.Entries, 2)
	assert.Equal(t, 1, ranking.Entries[0].Rank, "should rank in given order")
	assert.Equal(t, "1:05", ranking.Entries[0].ElapsedFormatted, "should format elapsed time")
	assert.Equal(t, 2, ranking.Entries[1].Rank)
	assert.Equal(t, "s2", ranking.Entries[1].ScoreID)
	assert.Equal(t, created, ranking.Entries[1].CreatedAt)
}

func TestBuildRankingEmpty(t *testing.T) {
	ranking := BuildRanking(games.Event{ID: "e1"}, nil)
	assert.NotNil(t, ranking.Entries, "should not be nil for encoding as empty list")
	assert.Empty(t, ranking.Entries)
}

// serviceRunSuite tests Service.Run.
type serviceRunSuite struct {
	suite.Suite
	ctx        context.Context
	cancel     context.CancelFunc
	portalStub *portal.Stub
	storeStub  *storeStub
	requests   chan event.Event[any]
	service    *Service
	done       chan struct{}
}

func (suite *serviceRunSuite) SetupTest() {
	suite.ctx, suite.cancel = context.WithTimeout(context.Background(), timeout)
	suite.portalStub = &portal.Stub{}
	suite.storeStub = &storeStub{}
	suite.requests = make(chan event.Event[any])
	suite.portalStub.On("Subscribe", mock.Anything, TopicRankingRequest).
		Return(portal.NewSelfClosingReceivingMockNewsletter(suite.ctx, suite.requests)).Once()
	suite.service = NewService(zap.New(zapcore.NewNopCore()), suite.portalStub, suite.storeStub)
	suite.done = make(chan struct{})
	go func() {
		defer close(suite.done)
		err := suite.service.Run(suite.ctx)
		suite.NoError(err, "should not fail")
	}()
}

func (suite *serviceRunSuite) TearDownTest() {
	suite.cancel()
	<-suite.done
}

func (suite *serviceRunSuite) TestPublishOnRequest() {
	published := make(chan event.RankingEvent)
	suite.storeStub.On("EventByID", mock.Anything, "e1").Return(games.Event{ID: "e1", Name: "FESTIVALAZO"}, nil)
	suite.storeStub.On("RankingForEvent", mock.Anything, "e1").Return([]games.PlayerScore{{ID: "s1"}}, nil)
	suite.portalStub.On("Publish", mock.Anything, TopicRanking("e1"), mock.Anything).
		Run(func(args mock.Arguments) {
			published <- args.Get(2).(event.RankingEvent)
		})
	select {
	case <-suite.ctx.Done():
		suite.Fail("timeout", "timeout while sending request")
		return
	case suite.requests <- event.Event[any]{Payload: event.RankingRequestEvent{EventID: "e1"}}:
	}
	select {
	case <-suite.ctx.Done():
		suite.Fail("timeout", "timeout while waiting for ranking")
	case ranking := <-published:
		suite.Equal("FESTIVALAZO", ranking.EventName)
		suite.Len(ranking.Entries, 1)
	}
}

func (suite *serviceRunSuite) TestPublishAfterSubmission() {
	announced := make(chan event.ScoreSubmittedEvent, 1)
	published := make(chan struct{})
	suite.storeStub.On("EventByID", mock.Anything, "e1").Return(games.Event{ID: "e1"}, nil)
	suite.storeStub.On("RankingForEvent", mock.Anything, "e1").Return([]games.PlayerScore{}, nil)
	suite.portalStub.On("Publish", mock.Anything, TopicScoreSubmitted, mock.Anything).
		Run(func(args mock.Arguments) {
			announced <- args.Get(2).(event.ScoreSubmittedEvent)
		}).Once()
	suite.portalStub.On("Publish", mock.Anything, TopicRanking("e1"), mock.Anything).
		Run(func(_ mock.Arguments) {
			close(published)
		}).Once()
	suite.service.ScoreSubmitted(context.Background(), games.ScoreSubmission{
		PlayerID: "p1",
		EventID:  "e1",
		Score:    900,
	}, "s1")
	select {
	case <-suite.ctx.Done():
		suite.Fail("timeout", "timeout while waiting for ranking")
	case <-published:
	}
	e := <-announced
	suite.Equal("s1", e.ScoreID)
	suite.Equal(900, e.Score)
}

func (suite *serviceRunSuite) TestStoreFailure() {
	suite.storeStub.On("EventByID", mock.Anything, "e1").Return(games.Event{}, nativeerrors.New("sad life"))
	queried := make(chan struct{})
	suite.storeStub.On("EventByID", mock.Anything, "e2").Return(games.Event{}, nativeerrors.New("sad life")).
		Run(func(_ mock.Arguments) { close(queried) })
	for _, eventID := range []string{"e1", "e2"} {
		select {
		case <-suite.ctx.Done():
			suite.Fail("timeout", "timeout while sending request")
			return
		case suite.requests <- event.Event[any]{Payload: event.RankingRequestEvent{EventID: eventID}}:
		}
	}
	<-queried
	suite.portalStub.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *serviceRunSuite) TestIgnoreRequestWithoutEventID() {
	suite.storeStub.On("EventByID", mock.Anything, "e1").Return(games.Event{}, nativeerrors.New("sad life"))
	queried := make(chan struct{})
	suite.storeStub.On("EventByID", mock.Anything, "e2").Return(games.Event{}, nativeerrors.New("sad life")).
		Run(func(_ mock.Arguments) { close(queried) })
	for _, eventID := range []string{"", "e2"} {
		select {
		case <-suite.ctx.Done():
			suite.Fail("timeout", "timeout while sending request")
			return
		case suite.requests <- event.Event[any]{Payload: event.RankingRequestEvent{EventID: eventID}}:
		}
	}
	<-queried
	suite.storeStub.AssertNotCalled(suite.T(), "EventByID", mock.Anything, "")
}

func TestService_Run(t *testing.T) {
	suite.Run(t, new(serviceRunSuite))
}

func TestService_ScoreSubmittedDropsWhenFull(t *testing.T) {
	s := NewService(zap.New(zapcore.NewNopCore()), &portal.Stub{}, &storeStub{})
	for i := 0; i < submittedQueueSize+5; i++ {
		s.ScoreSubmitted(context.Background(), games.ScoreSubmission{EventID: "e1"}, "s")
	}
	assert.Len(t, s.submitted, submittedQueueSize, "should not block when full")
}
