package kiosk

import (
	"context"
	"github.com/google/uuid"
	"github.com/lefinal/memorama/carousel"
	"github.com/lefinal/memorama/errors"
	"sync"
	"time"
)

// DefaultPlaybackTimeout is the timeout for a kiosk to report the result of a
// playback request.
const DefaultPlaybackTimeout = 5 * time.Second

// sendFn sends a message of the given type with the given payload to the
// kiosk.
type sendFn func(ctx context.Context, messageType MessageType, payload interface{}) error

// remotePlayer is a carousel.MediaPlayer that asks the kiosk to play videos
// and awaits the reported result.
type remotePlayer struct {
	send    sendFn
	timeout time.Duration
	// pending holds the result channels for playback requests by request id.
	pending map[string]chan bool
	m       sync.Mutex
}

func newRemotePlayer(send sendFn, timeout time.Duration) *remotePlayer {
	return &remotePlayer{
		send:    send,
		timeout: timeout,
		pending: make(map[string]chan bool),
	}
}

// Play sends MessageTypePlayVideo and waits until the kiosk reports the
// result. Rejected or unconfirmed playback results in an
// errors.KindAutoplayRejected error.
func (p *remotePlayer) Play(ctx context.Context, request carousel.PlaybackRequest) error {
	requestID := uuid.New().String()
	result := make(chan bool, 1)
	p.m.Lock()
	p.pending[requestID] = result
	p.m.Unlock()
	defer func() {
		p.m.Lock()
		delete(p.pending, requestID)
		p.m.Unlock()
	}()
	err := p.send(ctx, MessageTypePlayVideo, MessagePlayVideo{
		Panel:     request.Panel,
		RequestID: requestID,
		URL:       request.URL,
		Muted:     request.Muted,
		Inline:    request.Inline,
	})
	if err != nil {
		return errors.Wrap(err, "send play video", nil)
	}
	timeout := time.NewTimer(p.timeout)
	defer timeout.Stop()
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("await playback result")
	case <-timeout.C:
		return errors.Error{
			Code:    errors.ErrCommunication,
			Kind:    errors.KindAutoplayRejected,
			Message: "playback result timeout",
			Details: errors.Details{"request_id": requestID, "url": request.URL},
		}
	case ok := <-result:
		if !ok {
			return errors.Error{
				Code:    errors.ErrCommunication,
				Kind:    errors.KindAutoplayRejected,
				Message: "playback rejected",
				Details: errors.Details{"request_id": requestID, "url": request.URL},
			}
		}
		return nil
	}
}

// resolve reports the result for the playback request with the given id. It
// returns false if no such request is pending.
func (p *remotePlayer) resolve(requestID string, ok bool) bool {
	p.m.Lock()
	defer p.m.Unlock()
	result, pending := p.pending[requestID]
	if !pending {
		return false
	}
	select {
	case result <- ok:
	default:
	}
	return true
}
