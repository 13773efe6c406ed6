package games

import (
	"context"
	"github.com/google/uuid"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/registration"
	"go.uber.org/zap"
	"sync"
	"time"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	// PairCount is the number of pairs in a deck.
	PairCount int
	// MismatchRevealDelay is how long mismatched cards stay visible.
	MismatchRevealDelay time.Duration
	// TickInterval is the interval of the SessionTimer.
	TickInterval time.Duration
	// SubmitTimeout is the timeout for persisting the score.
	SubmitTimeout time.Duration
}

// DefaultSessionConfig returns the regular SessionConfig.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PairCount:           DefaultPairCount,
		MismatchRevealDelay: DefaultMismatchRevealDelay,
		TickInterval:        DefaultTickInterval,
		SubmitTimeout:       10 * time.Second,
	}
}

// SubmissionStatus is the state of persisting the score of a completed
// session.
type SubmissionStatus string

const (
	// SubmissionStatusNone when the session is not completed.
	SubmissionStatusNone SubmissionStatus = ""
	// SubmissionStatusPending while the score is being persisted.
	SubmissionStatusPending SubmissionStatus = "pending"
	// SubmissionStatusSubmitted when the score was persisted.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusFailed when persisting failed. Gameplay is not affected.
	SubmissionStatusFailed SubmissionStatus = "failed"
)

// SessionState is a snapshot of a Session.
type SessionState struct {
	SessionID      string
	PlayerID       string
	PlayerName     string
	EventID        string
	EventName      string
	IsStarted      bool
	IsCompleted    bool
	Phase          Phase
	Cards          []GameCard
	Moves          int
	MatchedPairs   int
	TotalPairs     int
	ElapsedSeconds int
	// Score is set when the session is completed.
	Score            int
	SubmissionStatus SubmissionStatus
}

// SessionDeps are dependencies for a Session.
type SessionDeps struct {
	DeckBuilder *DeckBuilder
	Scores      ScoreStore
	// Listener is optional.
	Listener SubmissionListener
}

// Session binds a registered player and an event to a match. It drives the
// MatchEngine and SessionTimer and submits the score on completion.
type Session struct {
	logger *zap.Logger
	config SessionConfig
	deps   SessionDeps
	player registration.Player
	event  Event
	// id changes with every started round.
	id         string
	engine     *MatchEngine
	timer      *SessionTimer
	isStarted  bool
	isClosed   bool
	submission *ScoreSubmission
	status     SubmissionStatus
	// updates is notified with each state change. Notifications are coalesced.
	updates chan struct{}
	// submitting tracks running score submissions.
	submitting sync.WaitGroup
	m          sync.Mutex
}

// NewSession creates a new Session that is not started yet.
func NewSession(logger *zap.Logger, config SessionConfig, deps SessionDeps, player registration.Player, event Event) *Session {
	s := &Session{
		logger:  logger,
		config:  config,
		deps:    deps,
		player:  player,
		event:   event,
		updates: make(chan struct{}, 1),
	}
	s.timer = NewSessionTimer(config.TickInterval, func(_ int) {
		s.notify()
	})
	return s
}

// Updates receives a value after each state change. Use State for retrieving
// the actual state.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Start deals a new deck and starts the timer. If the event has not enough
// images, an errors.KindInsufficientAssets error is returned and the session
// stays as it was.
func (s *Session) Start() error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.isClosed {
		return errors.NewBadRequestError(errors.KindSessionNotStarted, "session closed", nil)
	}
	return s.start()
}

// PlayAgain restarts a started session with a fresh deck, zero moves and zero
// elapsed time.
func (s *Session) PlayAgain() error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.isClosed || !s.isStarted {
		return errors.NewBadRequestError(errors.KindSessionNotStarted, "session not started", nil)
	}
	return s.start()
}

func (s *Session) start() error {
	cards, err := s.deps.DeckBuilder.Build(s.event.Images, s.config.PairCount)
	if err != nil {
		return errors.Wrap(err, "build deck", errors.Details{"event_id": s.event.ID})
	}
	if s.engine != nil {
		s.engine.Teardown()
	}
	s.timer.Stop()
	s.timer.Reset()
	s.id = uuid.New().String()
	s.engine = NewMatchEngine(cards, s.config.MismatchRevealDelay, s.notify)
	s.engine.Start()
	s.submission = nil
	s.status = SubmissionStatusNone
	s.isStarted = true
	s.timer.Start()
	s.logger.Debug("session started",
		zap.String("session_id", s.id),
		zap.String("player_id", s.player.ID),
		zap.String("event_id", s.event.ID))
	s.notify()
	return nil
}

// Click applies a click on the card with the given id. When the last pair is
// matched, the timer is stopped and the score is submitted in the background.
func (s *Session) Click(cardID string) (ClickOutcome, error) {
	s.m.Lock()
	defer s.m.Unlock()
	if s.isClosed || !s.isStarted {
		return ClickIgnored, errors.NewBadRequestError(errors.KindSessionNotStarted, "session not started", nil)
	}
	outcome, err := s.engine.Click(cardID)
	if err != nil {
		return ClickIgnored, errors.Wrap(err, "click card", nil)
	}
	if outcome == ClickCompleted {
		s.timer.Stop()
		s.complete()
	}
	if outcome != ClickIgnored {
		s.notify()
	}
	return outcome, nil
}

// complete calculates the score and starts submission. The timer must be
// stopped already.
func (s *Session) complete() {
	matchState := s.engine.Snapshot()
	elapsed := s.timer.Elapsed()
	score, err := CalculateScore(elapsed, matchState.Moves, matchState.TotalPairs)
	if err != nil {
		errors.Log(s.logger, errors.Wrap(err, "calculate score", errors.Details{"session_id": s.id}))
		return
	}
	submission := ScoreSubmission{
		PlayerID:       s.player.ID,
		PlayerName:     s.player.Name,
		EventID:        s.event.ID,
		EventName:      s.event.Name,
		MatchedPairs:   matchState.MatchedPairs,
		TotalPairs:     matchState.TotalPairs,
		Moves:          matchState.Moves,
		ElapsedSeconds: elapsed,
		Score:          score,
	}
	s.submission = &submission
	s.status = SubmissionStatusPending
	s.logger.Info("session completed",
		zap.String("session_id", s.id),
		zap.String("player_id", submission.PlayerID),
		zap.String("event_id", submission.EventID),
		zap.Int("moves", submission.Moves),
		zap.Int("elapsed_seconds", submission.ElapsedSeconds),
		zap.Int("score", submission.Score))
	s.submitting.Add(1)
	go func(sessionID string) {
		defer s.submitting.Done()
		s.submit(sessionID, submission)
	}(s.id)
}

// submit persists the given ScoreSubmission. Failures are logged and reflected
// in the SubmissionStatus.
func (s *Session) submit(sessionID string, submission ScoreSubmission) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SubmitTimeout)
	defer cancel()
	scoreID, err := s.deps.Scores.SubmitScore(ctx, submission)
	status := SubmissionStatusSubmitted
	if err != nil {
		status = SubmissionStatusFailed
		errors.Log(s.logger, errors.Error{
			Code:    errors.ErrCommunication,
			Kind:    errors.KindScoreSubmissionFailure,
			Err:     err,
			Message: "submit score",
			Details: errors.Details{
				"session_id": sessionID,
				"player_id":  submission.PlayerID,
				"event_id":   submission.EventID,
			},
		})
	}
	s.m.Lock()
	if s.id == sessionID {
		s.status = status
	}
	s.m.Unlock()
	s.notify()
	if err != nil {
		return
	}
	s.logger.Debug("score submitted", zap.String("score_id", scoreID), zap.String("session_id", sessionID))
	if s.deps.Listener != nil {
		s.deps.Listener.ScoreSubmitted(ctx, submission, scoreID)
	}
}

// State returns the current SessionState.
func (s *Session) State() SessionState {
	s.m.Lock()
	defer s.m.Unlock()
	state := SessionState{
		SessionID:        s.id,
		PlayerID:         s.player.ID,
		PlayerName:       s.player.Name,
		EventID:          s.event.ID,
		EventName:        s.event.Name,
		IsStarted:        s.isStarted,
		Phase:            PhaseIdle,
		ElapsedSeconds:   s.timer.Elapsed(),
		SubmissionStatus: s.status,
	}
	if s.engine != nil {
		matchState := s.engine.Snapshot()
		state.Phase = matchState.Phase
		state.Cards = matchState.Cards
		state.Moves = matchState.Moves
		state.MatchedPairs = matchState.MatchedPairs
		state.TotalPairs = matchState.TotalPairs
		state.IsCompleted = matchState.Phase == PhaseComplete
	}
	if s.submission != nil {
		state.Score = s.submission.Score
	}
	return state
}

// Event returns the Event the session is bound to.
func (s *Session) Event() Event {
	return s.event
}

// Player returns the registration.Player the session is bound to.
func (s *Session) Player() registration.Player {
	return s.player
}

// Close stops the timer, cancels pending reverts and waits for running score
// submissions.
func (s *Session) Close() {
	s.m.Lock()
	if s.isClosed {
		s.m.Unlock()
		return
	}
	s.isClosed = true
	s.timer.Stop()
	if s.engine != nil {
		s.engine.Teardown()
	}
	s.m.Unlock()
	s.submitting.Wait()
}
