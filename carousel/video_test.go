package carousel

import (
	"context"
	nativeerrors "errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"testing"
	"time"
)

// mediaPlayerMock mocks MediaPlayer.
type mediaPlayerMock struct {
	mock.Mock
}

func (m *mediaPlayerMock) Play(ctx context.Context, request PlaybackRequest) error {
	return m.Called(ctx, request).Error(0)
}

type VideoRotatorTestSuite struct {
	suite.Suite
	player *mediaPlayerMock
	urls   []string
}

func (suite *VideoRotatorTestSuite) SetupTest() {
	suite.player = &mediaPlayerMock{}
	suite.urls = []string{"a.mp4", "b.mp4", "c.mp4"}
}

func (suite *VideoRotatorTestSuite) newRotator(urls []string) *VideoRotator {
	return NewVideoRotator(zap.New(zapcore.NewNopCore()), VideoRotatorConfig{
		Panel:        PanelLeftVideo,
		URLs:         urls,
		Retries:      DefaultVideoRetries,
		RetryBackoff: 5 * time.Millisecond,
	}, suite.player, nil)
}

func (suite *VideoRotatorTestSuite) request(url string) PlaybackRequest {
	return PlaybackRequest{
		Panel:  PanelLeftVideo,
		URL:    url,
		Muted:  true,
		Inline: true,
	}
}

func (suite *VideoRotatorTestSuite) TestNoVideos() {
	r := suite.newRotator(nil)
	r.Start()
	r.PlaybackEnded()
	r.Teardown()
	suite.player.AssertNotCalled(suite.T(), "Play", mock.Anything, mock.Anything)
	suite.Equal(0, r.Index(), "should stay at 0")
}

func (suite *VideoRotatorTestSuite) TestPlaysMutedInline() {
	played := make(chan struct{})
	suite.player.On("Play", mock.Anything, suite.request("a.mp4")).
		Run(func(_ mock.Arguments) { close(played) }).
		Return(nil).Once()
	r := suite.newRotator(suite.urls)
	defer r.Teardown()
	r.Start()
	select {
	case <-played:
	case <-time.After(time.Second):
		suite.FailNow("timeout", "timeout while waiting for playback")
	}
}

func (suite *VideoRotatorTestSuite) TestAdvanceWraps() {
	suite.player.On("Play", mock.Anything, mock.Anything).Return(nil)
	r := suite.newRotator(suite.urls)
	defer r.Teardown()
	r.Start()
	indices := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		r.PlaybackEnded()
		indices = append(indices, r.Index())
	}
	suite.Equal([]int{1, 2, 0, 1}, indices, "should wrap")
}

func (suite *VideoRotatorTestSuite) TestRetriesThenGivesUp() {
	suite.player.On("Play", mock.Anything, suite.request("a.mp4")).Return(nativeerrors.New("autoplay rejected"))
	r := suite.newRotator(suite.urls)
	r.Start()
	suite.Eventually(func() bool {
		r.m.Lock()
		defer r.m.Unlock()
		if r.playbackDone == nil {
			return false
		}
		select {
		case <-r.playbackDone:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond, "should give up")
	r.Teardown()
	suite.player.AssertNumberOfCalls(suite.T(), "Play", 1+DefaultVideoRetries)
}

func (suite *VideoRotatorTestSuite) TestRetrySucceeds() {
	calls := atomic.NewInt32(0)
	countCall := func(_ mock.Arguments) { calls.Inc() }
	suite.player.On("Play", mock.Anything, mock.Anything).Run(countCall).
		Return(nativeerrors.New("autoplay rejected")).Once()
	suite.player.On("Play", mock.Anything, mock.Anything).Run(countCall).Return(nil).Once()
	r := suite.newRotator(suite.urls)
	r.Start()
	suite.Eventually(func() bool {
		return calls.Load() >= 2
	}, time.Second, time.Millisecond, "should retry")
	r.Teardown()
	suite.player.AssertNumberOfCalls(suite.T(), "Play", 2)
}

func (suite *VideoRotatorTestSuite) TestTeardownCancelsPlayback() {
	suite.player.On("Play", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(context.Canceled)
	r := suite.newRotator(suite.urls)
	r.Start()
	time.Sleep(10 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		r.Teardown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		suite.FailNow("timeout", "teardown should cancel playback")
	}
	suite.player.AssertNumberOfCalls(suite.T(), "Play", 1)
}

func TestVideoRotator(t *testing.T) {
	suite.Run(t, new(VideoRotatorTestSuite))
}
