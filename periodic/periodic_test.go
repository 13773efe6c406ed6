package periodic

import (
	"context"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"testing"
	"time"
)

type TickerTestSuite struct {
	suite.Suite
	ticks  *atomic.Int32
	ticker *Ticker
}

func (suite *TickerTestSuite) SetupTest() {
	suite.ticks = atomic.NewInt32(0)
	suite.ticker = NewTicker(10*time.Millisecond, func(_ context.Context) {
		suite.ticks.Inc()
	})
}

func (suite *TickerTestSuite) TearDownTest() {
	suite.ticker.Stop()
}

func (suite *TickerTestSuite) TestNotStarted() {
	time.Sleep(30 * time.Millisecond)
	suite.Equal(int32(0), suite.ticks.Load(), "should not tick")
	suite.False(suite.ticker.IsRunning(), "should not be running")
}

func (suite *TickerTestSuite) TestTicks() {
	suite.ticker.Start()
	suite.Eventually(func() bool {
		return suite.ticks.Load() >= 3
	}, time.Second, 5*time.Millisecond, "should tick")
	suite.True(suite.ticker.IsRunning(), "should be running")
}

func (suite *TickerTestSuite) TestNoTicksAfterStop() {
	suite.ticker.Start()
	suite.Eventually(func() bool {
		return suite.ticks.Load() >= 1
	}, time.Second, 5*time.Millisecond, "should tick")
	suite.ticker.Stop()
	ticksAtStop := suite.ticks.Load()
	time.Sleep(40 * time.Millisecond)
	suite.Equal(ticksAtStop, suite.ticks.Load(), "should not tick after stop")
	suite.False(suite.ticker.IsRunning(), "should not be running")
}

func (suite *TickerTestSuite) TestStopTwice() {
	suite.ticker.Start()
	suite.ticker.Stop()
	suite.NotPanics(func() {
		suite.ticker.Stop()
	})
}

func (suite *TickerTestSuite) TestRestart() {
	suite.ticker.Start()
	suite.ticker.Stop()
	suite.ticker.Start()
	suite.Eventually(func() bool {
		return suite.ticks.Load() >= 1
	}, time.Second, 5*time.Millisecond, "should tick after restart")
}

func (suite *TickerTestSuite) TestStartTwiceRunsSingleLoop() {
	ticker := NewTicker(50*time.Millisecond, func(_ context.Context) {
		suite.ticks.Inc()
	})
	defer ticker.Stop()
	ticker.Start()
	ticker.Start()
	time.Sleep(120 * time.Millisecond)
	suite.LessOrEqual(suite.ticks.Load(), int32(2), "should only run one loop")
}

func TestTicker(t *testing.T) {
	suite.Run(t, new(TickerTestSuite))
}
