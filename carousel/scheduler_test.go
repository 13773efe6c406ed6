package carousel

import (
	"github.com/lefinal/memorama/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"sync"
	"testing"
	"time"
)

type SchedulerTestSuite struct {
	suite.Suite
	player    *mediaPlayerMock
	updates   []Update
	m         sync.Mutex
	scheduler *Scheduler
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.player = &mediaPlayerMock{}
	suite.player.On("Play", mock.Anything, mock.Anything).Return(nil)
	suite.updates = nil
	config := DefaultSchedulerConfig()
	config.ImagePeriod = time.Hour
	config.LeftVideos = []string{"l1.mp4", "l2.mp4"}
	config.RightVideos = []string{"r1.mp4"}
	suite.scheduler = NewScheduler(zap.New(zapcore.NewNopCore()), config, suite.player, func(update Update) {
		suite.m.Lock()
		defer suite.m.Unlock()
		suite.updates = append(suite.updates, update)
	})
}

func (suite *SchedulerTestSuite) TearDownTest() {
	suite.scheduler.Detach()
}

func (suite *SchedulerTestSuite) TestNotAttached() {
	suite.False(suite.scheduler.IsAttached(), "should not be attached")
	err := suite.scheduler.Advance(PanelCentral)
	suite.Require().Error(err, "should fail")
	suite.True(errors.HasKind(err, errors.KindNoEventSelected), "should fail with correct kind")
	suite.Empty(suite.scheduler.Indices(), "should have no indices")
}

func (suite *SchedulerTestSuite) TestAttach() {
	suite.scheduler.Attach(9)
	suite.True(suite.scheduler.IsAttached(), "should be attached")
	suite.Equal(map[Panel]int{
		PanelCentral:    0,
		PanelStrip:      0,
		PanelLeftVideo:  0,
		PanelRightVideo: 0,
	}, suite.scheduler.Indices(), "should start at 0")
}

func (suite *SchedulerTestSuite) TestManualNavigation() {
	suite.scheduler.Attach(9)
	suite.Require().NoError(suite.scheduler.Retreat(PanelStrip), "retreat should not fail")
	suite.Require().NoError(suite.scheduler.Retreat(PanelCentral), "retreat should not fail")
	suite.Require().NoError(suite.scheduler.Advance(PanelCentral), "advance should not fail")
	suite.Require().NoError(suite.scheduler.Advance(PanelCentral), "advance should not fail")
	indices := suite.scheduler.Indices()
	suite.Equal(6, indices[PanelStrip], "strip should wrap to N-k")
	suite.Equal(1, indices[PanelCentral], "central should wrap around and advance")
	suite.m.Lock()
	defer suite.m.Unlock()
	suite.Equal([]Update{
		{Panel: PanelStrip, Index: 6},
		{Panel: PanelCentral, Index: 8},
		{Panel: PanelCentral, Index: 0},
		{Panel: PanelCentral, Index: 1},
	}, suite.updates, "should report updates")
}

func (suite *SchedulerTestSuite) TestUnknownPanel() {
	suite.scheduler.Attach(9)
	suite.Error(suite.scheduler.Advance(PanelLeftVideo), "should fail for video panel")
	suite.Error(suite.scheduler.PlaybackEnded(PanelCentral), "should fail for image panel")
}

func (suite *SchedulerTestSuite) TestPlaybackEnded() {
	suite.scheduler.Attach(9)
	suite.Require().NoError(suite.scheduler.PlaybackEnded(PanelLeftVideo), "should not fail")
	suite.Require().NoError(suite.scheduler.PlaybackEnded(PanelRightVideo), "should not fail")
	indices := suite.scheduler.Indices()
	suite.Equal(1, indices[PanelLeftVideo], "left should advance")
	suite.Equal(0, indices[PanelRightVideo], "right should wrap")
}

func (suite *SchedulerTestSuite) TestReattachResets() {
	suite.scheduler.Attach(9)
	suite.Require().NoError(suite.scheduler.Advance(PanelCentral), "advance should not fail")
	suite.scheduler.Attach(5)
	suite.Equal(0, suite.scheduler.Indices()[PanelCentral], "should reset index")
}

func (suite *SchedulerTestSuite) TestDetach() {
	suite.scheduler.Attach(9)
	suite.scheduler.Detach()
	suite.False(suite.scheduler.IsAttached(), "should be detached")
	suite.NotPanics(func() {
		suite.scheduler.Detach()
	}, "detaching twice should not panic")
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}
