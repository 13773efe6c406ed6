package games

import (
	"github.com/lefinal/memorama/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"testing"
	"time"
)

const testRevealDelay = 20 * time.Millisecond

type MatchEngineTestSuite struct {
	suite.Suite
	cards   []GameCard
	reverts *atomic.Int32
	engine  *MatchEngine
}

func (suite *MatchEngineTestSuite) SetupTest() {
	cards, err := NewDeckBuilder(seqRand{}).Build(genImages(4), 4)
	suite.Require().NoError(err, "build deck should not fail")
	suite.cards = cards
	suite.reverts = atomic.NewInt32(0)
	suite.engine = NewMatchEngine(cards, testRevealDelay, func() {
		suite.reverts.Inc()
	})
	suite.engine.Start()
}

func (suite *MatchEngineTestSuite) TearDownTest() {
	suite.engine.Teardown()
}

func (suite *MatchEngineTestSuite) click(cardID string) ClickOutcome {
	outcome, err := suite.engine.Click(cardID)
	suite.Require().NoError(err, "click should not fail")
	return outcome
}

func (suite *MatchEngineTestSuite) cardByID(state MatchState, cardID string) GameCard {
	for _, card := range state.Cards {
		if card.ID == cardID {
			return card
		}
	}
	suite.FailNow("card not found", cardID)
	return GameCard{}
}

func (suite *MatchEngineTestSuite) TestNotStarted() {
	engine := NewMatchEngine(suite.cards, testRevealDelay, nil)
	defer engine.Teardown()
	_, err := engine.Click("0-1")
	suite.Require().Error(err, "should fail")
	suite.True(errors.HasKind(err, errors.KindSessionNotStarted), "should fail with correct kind")
}

func (suite *MatchEngineTestSuite) TestUnknownCard() {
	_, err := suite.engine.Click("unknown")
	suite.Require().Error(err, "should fail")
	suite.True(errors.HasKind(err, errors.KindUnknownCard), "should fail with correct kind")
	suite.Equal(0, suite.engine.Snapshot().Moves, "should not count move")
}

func (suite *MatchEngineTestSuite) TestFirstFlip() {
	suite.Equal(ClickFirstFlipped, suite.click("0-1"))
	state := suite.engine.Snapshot()
	suite.True(suite.cardByID(state, "0-1").IsFlipped, "card should be flipped")
	suite.Equal(0, state.Moves, "should not count move for first card")
}

func (suite *MatchEngineTestSuite) TestClickSameCardTwice() {
	suite.Equal(ClickFirstFlipped, suite.click("0-1"))
	suite.Equal(ClickIgnored, suite.click("0-1"))
	suite.Equal(0, suite.engine.Snapshot().Moves, "should not count move")
}

func (suite *MatchEngineTestSuite) TestMatch() {
	suite.click("1-1")
	suite.Equal(ClickMatched, suite.click("1-2"))
	state := suite.engine.Snapshot()
	suite.Equal(1, state.Moves, "should count move")
	suite.Equal(1, state.MatchedPairs, "should count matched pair")
	suite.True(suite.cardByID(state, "1-1").IsMatched, "first card should be matched")
	suite.True(suite.cardByID(state, "1-2").IsMatched, "second card should be matched")
	suite.Equal(PhasePlaying, state.Phase, "should still be playing")
}

func (suite *MatchEngineTestSuite) TestClickMatchedCard() {
	suite.click("1-1")
	suite.click("1-2")
	suite.Equal(ClickIgnored, suite.click("1-1"))
	suite.Equal(1, suite.engine.Snapshot().Moves, "should not count move")
}

func (suite *MatchEngineTestSuite) TestMismatchReverts() {
	suite.click("0-1")
	suite.Equal(ClickMismatched, suite.click("1-1"))
	state := suite.engine.Snapshot()
	suite.Equal(PhaseResolving, state.Phase, "should be resolving")
	suite.Equal(1, state.Moves, "should count move")
	suite.True(suite.cardByID(state, "0-1").IsFlipped, "first card should stay visible")
	suite.True(suite.cardByID(state, "1-1").IsFlipped, "second card should stay visible")
	suite.Eventually(func() bool {
		return suite.reverts.Load() == 1
	}, time.Second, time.Millisecond, "should revert")
	state = suite.engine.Snapshot()
	suite.Equal(PhasePlaying, state.Phase, "should be playing again")
	suite.False(suite.cardByID(state, "0-1").IsFlipped, "first card should be flipped back")
	suite.False(suite.cardByID(state, "1-1").IsFlipped, "second card should be flipped back")
	suite.Equal(0, state.MatchedPairs, "should not count match")
}

func (suite *MatchEngineTestSuite) TestClicksIgnoredWhileResolving() {
	suite.click("0-1")
	suite.click("1-1")
	suite.Equal(ClickIgnored, suite.click("2-1"))
	state := suite.engine.Snapshot()
	suite.False(suite.cardByID(state, "2-1").IsFlipped, "card should not be flipped")
	suite.Equal(1, state.Moves, "should not count move")
}

func (suite *MatchEngineTestSuite) TestMismatchRevealDuration() {
	suite.click("0-1")
	suite.click("1-1")
	time.Sleep(testRevealDelay / 4)
	suite.Equal(int32(0), suite.reverts.Load(), "should not revert before delay")
	suite.Equal(PhaseResolving, suite.engine.Snapshot().Phase, "should still be resolving")
}

func (suite *MatchEngineTestSuite) TestComplete() {
	for i := 0; i < 4; i++ {
		suite.click(suite.cards[2*i].ID)
		outcome := suite.click(suite.cards[2*i+1].ID)
		if i < 3 {
			suite.Equal(ClickMatched, outcome, "should match")
		} else {
			suite.Equal(ClickCompleted, outcome, "should complete")
		}
	}
	state := suite.engine.Snapshot()
	suite.Equal(PhaseComplete, state.Phase, "should be complete")
	suite.Equal(4, state.Moves, "should count moves")
	suite.Equal(4, state.MatchedPairs, "should count pairs")
	suite.Equal(4, state.TotalPairs, "should report total pairs")
	for _, card := range state.Cards {
		suite.True(card.IsMatched, "all cards should be matched")
	}
	suite.Equal(ClickIgnored, suite.click(suite.cards[0].ID), "should ignore clicks after completion")
}

func (suite *MatchEngineTestSuite) TestTeardownCancelsRevert() {
	suite.click("0-1")
	suite.click("1-1")
	suite.engine.Teardown()
	time.Sleep(3 * testRevealDelay)
	suite.Equal(int32(0), suite.reverts.Load(), "should not revert after teardown")
}

func (suite *MatchEngineTestSuite) TestSnapshotIsCopy() {
	state := suite.engine.Snapshot()
	state.Cards[0].IsFlipped = true
	suite.False(suite.engine.Snapshot().Cards[0].IsFlipped, "should not modify engine")
}

func TestMatchEngine(t *testing.T) {
	suite.Run(t, new(MatchEngineTestSuite))
}
