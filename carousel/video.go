package carousel

import (
	"context"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
	"sync"
	"time"
)

const (
	// DefaultVideoRetries is how often failed autoplay is retried.
	DefaultVideoRetries = 3
	// DefaultVideoRetryBackoff is the pause between autoplay attempts.
	DefaultVideoRetryBackoff = 600 * time.Millisecond
)

// PlaybackRequest is a request for playing a video.
type PlaybackRequest struct {
	// Panel is where to play the video.
	Panel Panel
	// URL of the video.
	URL string
	// Muted playback is required for autoplay.
	Muted bool
	// Inline playback instead of fullscreen.
	Inline bool
}

// MediaPlayer plays videos.
type MediaPlayer interface {
	// Play requests playback and returns when playback started. If autoplay was
	// rejected, an error is returned.
	Play(ctx context.Context, request PlaybackRequest) error
}

// VideoRotatorConfig configures a VideoRotator.
type VideoRotatorConfig struct {
	Panel Panel
	// URLs of the videos to play in order.
	URLs []string
	// Retries is the number of retries after the first failed attempt.
	Retries int
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
}

// VideoRotator plays a list of videos one after another and wraps around.
// Playback is always muted and inline. Failed playback is retried a few times
// and then given up until the next advance.
type VideoRotator struct {
	logger  *zap.Logger
	config  VideoRotatorConfig
	player  MediaPlayer
	// onChange is called with the new index after each change. It must not block.
	onChange func(index int)
	index    int
	// cancelPlayback cancels the current playback attempts.
	cancelPlayback context.CancelFunc
	// playbackDone is closed when the current playback attempts finished.
	playbackDone chan struct{}
	m            sync.Mutex
}

// NewVideoRotator creates a new VideoRotator. Playback starts with Start.
func NewVideoRotator(logger *zap.Logger, config VideoRotatorConfig, player MediaPlayer, onChange func(index int)) *VideoRotator {
	return &VideoRotator{
		logger:   logger.Named(string(config.Panel)),
		config:   config,
		player:   player,
		onChange: onChange,
	}
}

// Index returns the index of the current video.
func (r *VideoRotator) Index() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.index
}

// Start plays the current video. Without videos, this is a no-op.
func (r *VideoRotator) Start() {
	r.m.Lock()
	defer r.m.Unlock()
	r.play()
}

// PlaybackEnded advances to the next video and plays it.
func (r *VideoRotator) PlaybackEnded() {
	r.m.Lock()
	if len(r.config.URLs) == 0 {
		r.m.Unlock()
		return
	}
	r.index = (r.index + 1) % len(r.config.URLs)
	index := r.index
	r.play()
	r.m.Unlock()
	if r.onChange != nil {
		r.onChange(index)
	}
}

// play cancels running attempts and starts new ones for the current video.
// r.m must be locked.
func (r *VideoRotator) play() {
	r.stopPlayback()
	if len(r.config.URLs) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancelPlayback = cancel
	r.playbackDone = done
	go func(url string) {
		defer close(done)
		r.attemptPlayback(ctx, url)
	}(r.config.URLs[r.index])
}

// stopPlayback cancels running attempts and waits for them to finish. r.m must
// be locked.
func (r *VideoRotator) stopPlayback() {
	if r.cancelPlayback == nil {
		return
	}
	r.cancelPlayback()
	<-r.playbackDone
	r.cancelPlayback = nil
	r.playbackDone = nil
}

func (r *VideoRotator) attemptPlayback(ctx context.Context, url string) {
	request := PlaybackRequest{
		Panel:  r.config.Panel,
		URL:    url,
		Muted:  true,
		Inline: true,
	}
	for attempt := 0; ; attempt++ {
		err := r.player.Play(ctx, request)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt >= r.config.Retries {
			errors.Log(r.logger, errors.Wrap(err, "give up video autoplay", errors.Details{
				"url":      url,
				"attempts": attempt + 1,
			}))
			return
		}
		r.logger.Debug("video autoplay failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		backoff := time.NewTimer(r.config.RetryBackoff)
		select {
		case <-ctx.Done():
			backoff.Stop()
			return
		case <-backoff.C:
		}
	}
}

// Teardown cancels running playback attempts.
func (r *VideoRotator) Teardown() {
	r.m.Lock()
	defer r.m.Unlock()
	r.stopPlayback()
}
