package carousel

import (
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
	"sync"
	"time"
)

// DefaultStripWindow is the number of simultaneously visible images in the
// sponsor strip.
const DefaultStripWindow = 3

// Panel identifies a carousel on the kiosk screen.
type Panel string

const (
	// PanelCentral is the large full-wrap image carousel.
	PanelCentral Panel = "central"
	// PanelStrip is the windowed sponsor strip.
	PanelStrip Panel = "strip"
	// PanelLeftVideo is the video panel on the left.
	PanelLeftVideo Panel = "left-video"
	// PanelRightVideo is the video panel on the right.
	PanelRightVideo Panel = "right-video"
)

// Update is a changed carousel index.
type Update struct {
	Panel Panel
	Index int
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// ImagePeriod is the interval for advancing image carousels.
	ImagePeriod time.Duration
	// StripWindow is the window size of the sponsor strip.
	StripWindow int
	// LeftVideos are played in the left video panel.
	LeftVideos []string
	// RightVideos are played in the right video panel.
	RightVideos []string
	// VideoRetries is the number of autoplay retries.
	VideoRetries int
	// VideoRetryBackoff is the pause between autoplay attempts.
	VideoRetryBackoff time.Duration
}

// DefaultSchedulerConfig returns the regular SchedulerConfig without videos.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ImagePeriod:       DefaultImagePeriod,
		StripWindow:       DefaultStripWindow,
		VideoRetries:      DefaultVideoRetries,
		VideoRetryBackoff: DefaultVideoRetryBackoff,
	}
}

// Scheduler owns all carousels of a kiosk screen. The carousels are attached
// when an event is shown and detached when leaving.
type Scheduler struct {
	logger *zap.Logger
	config SchedulerConfig
	player MediaPlayer
	// onUpdate is called for each index change. It must not block.
	onUpdate   func(update Update)
	central    *ImageRotator
	strip      *ImageRotator
	leftVideo  *VideoRotator
	rightVideo *VideoRotator
	m          sync.Mutex
}

// NewScheduler creates a new detached Scheduler. onUpdate may be nil.
func NewScheduler(logger *zap.Logger, config SchedulerConfig, player MediaPlayer, onUpdate func(update Update)) *Scheduler {
	return &Scheduler{
		logger:   logger,
		config:   config,
		player:   player,
		onUpdate: onUpdate,
	}
}

func (s *Scheduler) updateHandler(panel Panel) func(index int) {
	return func(index int) {
		if s.onUpdate != nil {
			s.onUpdate(Update{Panel: panel, Index: index})
		}
	}
}

// Attach sets up and starts all carousels for the given amount of images. If
// already attached, the previous carousels are torn down first.
func (s *Scheduler) Attach(imageCount int) {
	s.m.Lock()
	defer s.m.Unlock()
	s.detach()
	s.central = NewImageRotator(ImageRotatorConfig{
		Length: imageCount,
		Period: s.config.ImagePeriod,
	}, s.updateHandler(PanelCentral))
	s.strip = NewImageRotator(ImageRotatorConfig{
		Length: imageCount,
		Window: s.config.StripWindow,
		Period: s.config.ImagePeriod,
	}, s.updateHandler(PanelStrip))
	s.leftVideo = NewVideoRotator(s.logger, VideoRotatorConfig{
		Panel:        PanelLeftVideo,
		URLs:         s.config.LeftVideos,
		Retries:      s.config.VideoRetries,
		RetryBackoff: s.config.VideoRetryBackoff,
	}, s.player, s.updateHandler(PanelLeftVideo))
	s.rightVideo = NewVideoRotator(s.logger, VideoRotatorConfig{
		Panel:        PanelRightVideo,
		URLs:         s.config.RightVideos,
		Retries:      s.config.VideoRetries,
		RetryBackoff: s.config.VideoRetryBackoff,
	}, s.player, s.updateHandler(PanelRightVideo))
	s.central.Start()
	s.strip.Start()
	s.leftVideo.Start()
	s.rightVideo.Start()
	s.logger.Debug("carousels attached", zap.Int("image_count", imageCount))
}

// Detach tears down all carousels.
func (s *Scheduler) Detach() {
	s.m.Lock()
	defer s.m.Unlock()
	s.detach()
}

func (s *Scheduler) detach() {
	if s.central == nil {
		return
	}
	s.central.Teardown()
	s.strip.Teardown()
	s.leftVideo.Teardown()
	s.rightVideo.Teardown()
	s.central = nil
	s.strip = nil
	s.leftVideo = nil
	s.rightVideo = nil
	s.logger.Debug("carousels detached")
}

// IsAttached describes whether carousels are attached.
func (s *Scheduler) IsAttached() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.central != nil
}

func (s *Scheduler) imageRotator(panel Panel) (*ImageRotator, error) {
	if s.central == nil {
		return nil, errors.NewBadRequestError(errors.KindNoEventSelected, "carousels not attached", nil)
	}
	switch panel {
	case PanelCentral:
		return s.central, nil
	case PanelStrip:
		return s.strip, nil
	}
	return nil, errors.NewBadRequestError(errors.KindUnknown, "not an image panel", errors.Details{"panel": panel})
}

// Advance manually advances the image carousel of the given panel.
func (s *Scheduler) Advance(panel Panel) error {
	s.m.Lock()
	defer s.m.Unlock()
	r, err := s.imageRotator(panel)
	if err != nil {
		return err
	}
	r.Advance()
	return nil
}

// Retreat manually retreats the image carousel of the given panel.
func (s *Scheduler) Retreat(panel Panel) error {
	s.m.Lock()
	defer s.m.Unlock()
	r, err := s.imageRotator(panel)
	if err != nil {
		return err
	}
	r.Retreat()
	return nil
}

// PlaybackEnded advances the video carousel of the given panel.
func (s *Scheduler) PlaybackEnded(panel Panel) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.central == nil {
		return errors.NewBadRequestError(errors.KindNoEventSelected, "carousels not attached", nil)
	}
	switch panel {
	case PanelLeftVideo:
		s.leftVideo.PlaybackEnded()
	case PanelRightVideo:
		s.rightVideo.PlaybackEnded()
	default:
		return errors.NewBadRequestError(errors.KindUnknown, "not a video panel", errors.Details{"panel": panel})
	}
	return nil
}

// Indices returns the current index of each attached carousel.
func (s *Scheduler) Indices() map[Panel]int {
	s.m.Lock()
	defer s.m.Unlock()
	if s.central == nil {
		return map[Panel]int{}
	}
	return map[Panel]int{
		PanelCentral:    s.central.Index(),
		PanelStrip:      s.strip.Index(),
		PanelLeftVideo:  s.leftVideo.Index(),
		PanelRightVideo: s.rightVideo.Index(),
	}
}
