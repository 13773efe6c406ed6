// Package rankingsvc publishes event rankings over MQTT.
package rankingsvc

import (
	"context"
	"fmt"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/event"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/portal"
	"go.uber.org/zap"
)

// Topics.
const (
	// TopicRankingRequest is used for requesting the ranking of an event to be
	// published.
	TopicRankingRequest portal.Topic = "memorama/ranking/request"
	// TopicScoreSubmitted is where persisted scores are announced.
	TopicScoreSubmitted portal.Topic = "memorama/scores/submitted"
)

// submittedQueueSize is the number of submitted scores to queue for publishing.
const submittedQueueSize = 64

// TopicRanking is where the ranking of the event with the given id is
// published.
func TopicRanking(eventID string) portal.Topic {
	return portal.Topic(fmt.Sprintf("memorama/events/%s/ranking", eventID))
}

// Store are the dependencies needed for NewService.
type Store interface {
	EventByID(ctx context.Context, eventID string) (games.Event, error)
	RankingForEvent(ctx context.Context, eventID string) ([]games.PlayerScore, error)
}

// submitted is a score that was persisted and needs to be announced.
type submitted struct {
	submission games.ScoreSubmission
	scoreID    string
}

// Service publishes rankings on request and after scores were submitted. It
// implements games.SubmissionListener.
type Service struct {
	logger *zap.Logger
	// portal to use for communication.
	portal portal.Portal
	// store with all persistence dependencies.
	store Store
	// submitted is where ScoreSubmitted queues scores for Run.
	submitted chan submitted
}

// NewService creates a new Service ready to run.
func NewService(logger *zap.Logger, portal portal.Portal, store Store) *Service {
	return &Service{
		logger:    logger,
		portal:    portal,
		store:     store,
		submitted: make(chan submitted, submittedQueueSize),
	}
}

// ScoreSubmitted queues the given submission for announcing it and publishing
// the updated ranking. It never blocks. If the queue is full, the submission
// is dropped.
func (s *Service) ScoreSubmitted(_ context.Context, submission games.ScoreSubmission, scoreID string) {
	select {
	case s.submitted <- submitted{submission: submission, scoreID: scoreID}:
	default:
		s.logger.Warn("submitted score queue full. dropping ranking update.",
			zap.String("event_id", submission.EventID),
			zap.String("score_id", scoreID))
	}
}

// Run the service until the given context.Context is done.
func (s *Service) Run(ctx context.Context) error {
	requests := portal.Subscribe[event.RankingRequestEvent](ctx, s.portal, TopicRankingRequest)
	defer requests.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, more := <-requests.Receive:
			if !more {
				return nil
			}
			s.handleRankingRequest(ctx, e.Payload)
		case sub := <-s.submitted:
			s.handleSubmitted(ctx, sub)
		}
	}
}

// handleRankingRequest handles TopicRankingRequest.
func (s *Service) handleRankingRequest(ctx context.Context, e event.RankingRequestEvent) {
	if e.EventID == "" {
		errors.Log(s.logger, errors.NewBadRequestError(errors.KindNoEventSelected, "ranking request without event id", nil))
		return
	}
	s.publishRanking(ctx, e.EventID)
}

// handleSubmitted announces the submitted score and publishes the updated
// ranking.
func (s *Service) handleSubmitted(ctx context.Context, sub submitted) {
	s.portal.Publish(ctx, TopicScoreSubmitted, event.ScoreSubmittedEvent{
		ScoreID:        sub.scoreID,
		PlayerID:       sub.submission.PlayerID,
		PlayerName:     sub.submission.PlayerName,
		EventID:        sub.submission.EventID,
		EventName:      sub.submission.EventName,
		Score:          sub.submission.Score,
		ElapsedSeconds: sub.submission.ElapsedSeconds,
		Moves:          sub.submission.Moves,
	})
	s.publishRanking(ctx, sub.submission.EventID)
}

// publishRanking retrieves the ranking for the event with the given id and
// publishes it to TopicRanking.
func (s *Service) publishRanking(ctx context.Context, eventID string) {
	ranking, err := LoadRanking(ctx, s.store, eventID)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "load ranking", errors.Details{"event_id": eventID}))
		return
	}
	s.portal.Publish(ctx, TopicRanking(eventID), ranking)
}

// LoadRanking retrieves the event with the given id and its ranking from the
// given Store.
func LoadRanking(ctx context.Context, store Store, eventID string) (event.RankingEvent, error) {
	e, err := store.EventByID(ctx, eventID)
	if err != nil {
		return event.RankingEvent{}, errors.Wrap(err, "event by id", nil)
	}
	scores, err := store.RankingForEvent(ctx, eventID)
	if err != nil {
		return event.RankingEvent{}, errors.Wrap(err, "ranking for event", nil)
	}
	return BuildRanking(e, scores), nil
}

// BuildRanking creates the event.RankingEvent for the given event and its
// already ordered scores.
func BuildRanking(e games.Event, scores []games.PlayerScore) event.RankingEvent {
	entries := make([]event.RankingEntry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, event.RankingEntry{
			Rank:             i + 1,
			ScoreID:          score.ID,
			PlayerID:         score.PlayerID,
			PlayerName:       score.PlayerName,
			Score:            score.Score,
			ElapsedSeconds:   score.ElapsedSeconds,
			ElapsedFormatted: games.FormatElapsed(score.ElapsedSeconds),
			Moves:            score.Moves,
			MatchedPairs:     score.MatchedPairs,
			TotalPairs:       score.TotalPairs,
			CreatedAt:        score.CreatedAt,
		})
	}
	return event.RankingEvent{
		EventID:   e.ID,
		EventName: e.Name,
		Entries:   entries,
	}
}
