package carousel

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"testing"
	"time"
)

func collectIndices(steps int, step func() int) []int {
	indices := make([]int, 0, steps)
	for i := 0; i < steps; i++ {
		indices = append(indices, step())
	}
	return indices
}

func TestImageRotatorWindowedAdvance(t *testing.T) {
	r := NewImageRotator(ImageRotatorConfig{Length: 9, Window: 3}, nil)
	indices := collectIndices(8, r.Advance)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 0, 1}, indices, "should cycle through 0..6")
}

func TestImageRotatorWindowedRetreat(t *testing.T) {
	r := NewImageRotator(ImageRotatorConfig{Length: 9, Window: 3}, nil)
	indices := collectIndices(3, r.Retreat)
	assert.Equal(t, []int{6, 5, 4}, indices, "should wrap to N-k")
}

func TestImageRotatorFullWrap(t *testing.T) {
	r := NewImageRotator(ImageRotatorConfig{Length: 4}, nil)
	assert.Equal(t, []int{1, 2, 3, 0}, collectIndices(4, r.Advance), "should wrap to 0")
	assert.Equal(t, []int{3, 2}, collectIndices(2, r.Retreat), "should wrap to N-1")
}

func TestImageRotatorWindowNeverExceedsBound(t *testing.T) {
	for length := 0; length <= 12; length++ {
		r := NewImageRotator(ImageRotatorConfig{Length: length, Window: 3}, nil)
		for i := 0; i < 30; i++ {
			index := r.Advance()
			assert.GreaterOrEqual(t, index, 0, "index should not be negative")
			if length > 3 {
				assert.LessOrEqualf(t, index, length-3, "index should not exceed N-k for N=%d", length)
			} else {
				assert.Equal(t, 0, index, "should not move when fitting into window")
			}
		}
	}
}

func TestImageRotatorEmpty(t *testing.T) {
	r := NewImageRotator(ImageRotatorConfig{Length: 0}, nil)
	assert.Equal(t, 0, r.Advance(), "should stay at 0")
	assert.Equal(t, 0, r.Retreat(), "should stay at 0")
}

type ImageRotatorStartTestSuite struct {
	suite.Suite
	changes *atomic.Int32
}

func (suite *ImageRotatorStartTestSuite) SetupTest() {
	suite.changes = atomic.NewInt32(0)
}

func (suite *ImageRotatorStartTestSuite) newRotator(length int, window int) *ImageRotator {
	return NewImageRotator(ImageRotatorConfig{
		Length: length,
		Window: window,
		Period: 5 * time.Millisecond,
	}, func(_ int) {
		suite.changes.Inc()
	})
}

func (suite *ImageRotatorStartTestSuite) TestFullWrapWithoutImages() {
	r := suite.newRotator(0, 0)
	defer r.Teardown()
	suite.False(r.Start(), "should not start")
	suite.False(r.IsRunning(), "should not be running")
}

func (suite *ImageRotatorStartTestSuite) TestStripFittingIntoWindow() {
	r := suite.newRotator(3, 3)
	defer r.Teardown()
	suite.False(r.Start(), "should not start")
	time.Sleep(20 * time.Millisecond)
	suite.Equal(int32(0), suite.changes.Load(), "should not change")
}

func (suite *ImageRotatorStartTestSuite) TestAdvancesAutomatically() {
	r := suite.newRotator(9, 3)
	defer r.Teardown()
	suite.True(r.Start(), "should start")
	suite.Eventually(func() bool {
		return suite.changes.Load() >= 3
	}, time.Second, time.Millisecond, "should advance")
}

func (suite *ImageRotatorStartTestSuite) TestTeardownStops() {
	r := suite.newRotator(9, 0)
	suite.True(r.Start(), "should start")
	suite.Eventually(func() bool {
		return suite.changes.Load() >= 1
	}, time.Second, time.Millisecond, "should advance")
	r.Teardown()
	changes := suite.changes.Load()
	time.Sleep(30 * time.Millisecond)
	suite.Equal(changes, suite.changes.Load(), "should not advance after teardown")
	suite.False(r.IsRunning(), "should not be running")
}

func TestImageRotator_Start(t *testing.T) {
	suite.Run(t, new(ImageRotatorStartTestSuite))
}
