package games

import (
	nativeerrors "errors"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/registration"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
	"time"
)

type SessionTestSuite struct {
	suite.Suite
	scores   *ScoreStoreMock
	listener *SubmissionListenerMock
	player   registration.Player
	event    Event
	session  *Session
}

func (suite *SessionTestSuite) SetupTest() {
	suite.scores = &ScoreStoreMock{}
	suite.listener = &SubmissionListenerMock{}
	suite.player = registration.Player{
		ID:         "be6e7b0b-6b0e-4b58-8a08-12d2a5e4b2c5",
		Name:       "Ana",
		NationalID: "1710034065",
		Phone:      "0991234567",
	}
	suite.event = Event{
		ID:       "festivalazo",
		Name:     "FESTIVALAZO",
		IsActive: true,
		Images:   genImages(DefaultPairCount),
	}
	suite.session = suite.newSession(suite.event)
}

func (suite *SessionTestSuite) newSession(event Event) *Session {
	return NewSession(zap.New(zapcore.NewNopCore()), SessionConfig{
		PairCount:           DefaultPairCount,
		MismatchRevealDelay: 10 * time.Millisecond,
		TickInterval:        time.Hour,
		SubmitTimeout:       time.Second,
	}, SessionDeps{
		DeckBuilder: NewDeckBuilder(seqRand{}),
		Scores:      suite.scores,
		Listener:    suite.listener,
	}, suite.player, event)
}

func (suite *SessionTestSuite) TearDownTest() {
	suite.session.Close()
}

func (suite *SessionTestSuite) clickAllPairs() ClickOutcome {
	var outcome ClickOutcome
	for _, ids := range pairsByImage(suite.session.State().Cards) {
		_, err := suite.session.Click(ids[0])
		suite.Require().NoError(err, "click should not fail")
		outcome, err = suite.session.Click(ids[1])
		suite.Require().NoError(err, "click should not fail")
	}
	return outcome
}

func (suite *SessionTestSuite) TestClickBeforeStart() {
	_, err := suite.session.Click("0-1")
	suite.Require().Error(err, "should fail")
	suite.True(errors.HasKind(err, errors.KindSessionNotStarted), "should fail with correct kind")
}

func (suite *SessionTestSuite) TestPlayAgainBeforeStart() {
	err := suite.session.PlayAgain()
	suite.Require().Error(err, "should fail")
	suite.True(errors.HasKind(err, errors.KindSessionNotStarted), "should fail with correct kind")
}

func (suite *SessionTestSuite) TestStartInsufficientAssets() {
	event := suite.event
	event.Images = genImages(3)
	session := suite.newSession(event)
	defer session.Close()
	err := session.Start()
	suite.Require().Error(err, "should fail")
	suite.True(errors.HasKind(err, errors.KindInsufficientAssets), "should fail with correct kind")
	state := session.State()
	suite.False(state.IsStarted, "should not be started")
	suite.Empty(state.Cards, "should have no cards")
}

func (suite *SessionTestSuite) TestStart() {
	suite.Require().NoError(suite.session.Start(), "start should not fail")
	state := suite.session.State()
	suite.True(state.IsStarted, "should be started")
	suite.False(state.IsCompleted, "should not be completed")
	suite.Equal(PhasePlaying, state.Phase, "should be playing")
	suite.Len(state.Cards, 2*DefaultPairCount, "should deal cards")
	suite.Equal(DefaultPairCount, state.TotalPairs, "should set total pairs")
	suite.NotEmpty(state.SessionID, "should set session id")
	suite.Equal(suite.player.ID, state.PlayerID, "should set player")
	suite.Equal(suite.event.ID, state.EventID, "should set event")
	select {
	case <-suite.session.Updates():
	default:
		suite.Fail("should notify about update")
	}
}

func (suite *SessionTestSuite) TestCompleteSubmitsScore() {
	done := make(chan struct{})
	suite.scores.On("SubmitScore", mock.Anything, mock.MatchedBy(func(submission ScoreSubmission) bool {
		return submission.PlayerID == suite.player.ID &&
			submission.PlayerName == suite.player.Name &&
			submission.EventID == suite.event.ID &&
			submission.EventName == suite.event.Name &&
			submission.Moves == DefaultPairCount &&
			submission.MatchedPairs == DefaultPairCount &&
			submission.TotalPairs == DefaultPairCount &&
			submission.ElapsedSeconds == 0 &&
			submission.Score == 900
	})).Return("score-1", nil).Once()
	suite.listener.On("ScoreSubmitted", mock.Anything, mock.Anything, "score-1").
		Run(func(_ mock.Arguments) { close(done) }).Once()
	suite.Require().NoError(suite.session.Start(), "start should not fail")

	suite.Equal(ClickCompleted, suite.clickAllPairs(), "last click should complete")
	state := suite.session.State()
	suite.True(state.IsCompleted, "should be completed")
	suite.Equal(900, state.Score, "should calculate score")

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.FailNow("timeout", "timeout while waiting for submission")
	}
	suite.session.Close()
	suite.Equal(SubmissionStatusSubmitted, suite.session.State().SubmissionStatus, "should mark as submitted")
	suite.scores.AssertExpectations(suite.T())
	suite.listener.AssertExpectations(suite.T())
}

func (suite *SessionTestSuite) TestSubmitFailureKeepsCompletion() {
	suite.scores.On("SubmitScore", mock.Anything, mock.Anything).Return("", nativeerrors.New("sad life")).Once()
	suite.Require().NoError(suite.session.Start(), "start should not fail")
	suite.clickAllPairs()
	suite.session.Close()
	state := suite.session.State()
	suite.True(state.IsCompleted, "should still be completed")
	suite.Equal(SubmissionStatusFailed, state.SubmissionStatus, "should mark as failed")
	suite.listener.AssertNotCalled(suite.T(), "ScoreSubmitted", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SessionTestSuite) TestTimerStopsOnCompletion() {
	session := NewSession(zap.New(zapcore.NewNopCore()), SessionConfig{
		PairCount:           DefaultPairCount,
		MismatchRevealDelay: 10 * time.Millisecond,
		TickInterval:        5 * time.Millisecond,
		SubmitTimeout:       time.Second,
	}, SessionDeps{
		DeckBuilder: NewDeckBuilder(seqRand{}),
		Scores:      suite.scores,
	}, suite.player, suite.event)
	defer session.Close()
	suite.scores.On("SubmitScore", mock.Anything, mock.Anything).Return("score-1", nil)
	suite.Require().NoError(session.Start(), "start should not fail")
	suite.Eventually(func() bool {
		return session.State().ElapsedSeconds >= 2
	}, time.Second, time.Millisecond, "timer should count")
	for _, ids := range pairsByImage(session.State().Cards) {
		_, _ = session.Click(ids[0])
		_, _ = session.Click(ids[1])
	}
	elapsed := session.State().ElapsedSeconds
	time.Sleep(30 * time.Millisecond)
	suite.Equal(elapsed, session.State().ElapsedSeconds, "timer should not count after completion")
}

func (suite *SessionTestSuite) TestPlayAgain() {
	suite.scores.On("SubmitScore", mock.Anything, mock.Anything).Return("score-1", nil)
	suite.listener.On("ScoreSubmitted", mock.Anything, mock.Anything, mock.Anything)
	suite.Require().NoError(suite.session.Start(), "start should not fail")
	firstID := suite.session.State().SessionID
	suite.clickAllPairs()
	suite.Require().NoError(suite.session.PlayAgain(), "play again should not fail")
	state := suite.session.State()
	suite.NotEqual(firstID, state.SessionID, "should use new session id")
	suite.False(state.IsCompleted, "should not be completed")
	suite.Equal(0, state.Moves, "should reset moves")
	suite.Equal(0, state.MatchedPairs, "should reset matched pairs")
	suite.Equal(0, state.ElapsedSeconds, "should reset elapsed time")
	suite.Equal(0, state.Score, "should reset score")
	for _, card := range state.Cards {
		suite.False(card.IsFlipped, "card should not be flipped")
		suite.False(card.IsMatched, "card should not be matched")
	}
}

func (suite *SessionTestSuite) TestMismatchCountsMove() {
	suite.Require().NoError(suite.session.Start(), "start should not fail")
	a, b := mismatchingIDs(suite.session.State().Cards)
	_, err := suite.session.Click(a)
	suite.Require().NoError(err, "click should not fail")
	outcome, err := suite.session.Click(b)
	suite.Require().NoError(err, "click should not fail")
	suite.Equal(ClickMismatched, outcome, "should mismatch")
	suite.Equal(1, suite.session.State().Moves, "should count move")
	suite.Eventually(func() bool {
		return suite.session.State().Phase == PhasePlaying
	}, time.Second, time.Millisecond, "should revert")
}

func (suite *SessionTestSuite) TestClickAfterClose() {
	suite.Require().NoError(suite.session.Start(), "start should not fail")
	suite.session.Close()
	_, err := suite.session.Click("0-1")
	suite.Error(err, "should fail")
}

func TestSession(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

// TestFullGame plays a complete game with the regular configuration except
// for faster reveal.
func TestFullGame(t *testing.T) {
	scores := &ScoreStoreMock{}
	submitted := make(chan ScoreSubmission, 1)
	scores.On("SubmitScore", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		submitted <- args.Get(1).(ScoreSubmission)
	}).Return("score", nil)
	rng, err := NewRand()
	if err != nil {
		t.Fatal(err)
	}
	config := DefaultSessionConfig()
	config.MismatchRevealDelay = 5 * time.Millisecond
	session := NewSession(zap.New(zapcore.NewNopCore()), config, SessionDeps{
		DeckBuilder: NewDeckBuilder(rng),
		Scores:      scores,
	}, registration.Player{ID: "p", Name: "Ana"}, Event{ID: "e", Name: "E", Images: genImages(12)})
	defer session.Close()
	if err := session.Start(); err != nil {
		t.Fatal(errors.Prettify(err))
	}
	cards := session.State().Cards
	// One mismatch first.
	a, b := mismatchingIDs(cards)
	_, _ = session.Click(a)
	if outcome, _ := session.Click(b); outcome != ClickMismatched {
		t.Fatalf("expected mismatch but got %v", outcome)
	}
	deadline := time.Now().Add(time.Second)
	for session.State().Phase != PhasePlaying {
		if time.Now().After(deadline) {
			t.Fatal("mismatch not reverted")
		}
		time.Sleep(time.Millisecond)
	}
	for _, ids := range pairsByImage(cards) {
		_, _ = session.Click(ids[0])
		_, _ = session.Click(ids[1])
	}
	select {
	case submission := <-submitted:
		if submission.Moves != DefaultPairCount+1 {
			t.Errorf("expected %d moves but got %d", DefaultPairCount+1, submission.Moves)
		}
		expectedScore, _ := CalculateScore(submission.ElapsedSeconds, submission.Moves, DefaultPairCount)
		if submission.Score != expectedScore {
			t.Errorf("expected score %d but got %d", expectedScore, submission.Score)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout while waiting for submission")
	}
}
