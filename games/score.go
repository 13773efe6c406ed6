package games

import (
	"context"
	"fmt"
	"github.com/lefinal/memorama/errors"
	"math"
	"time"
)

// CalculateScore computes the score for a completed session. It consists of an
// efficiency part (pairs per move times 100) and a speed bonus of 100 points
// per pair minus one point per elapsed second. The speed bonus is never
// negative. moves must be positive.
func CalculateScore(elapsedSeconds int, moves int, totalPairs int) (int, error) {
	if moves <= 0 {
		return 0, errors.NewInternalError("cannot calculate score without moves", errors.Details{
			"elapsed_seconds": elapsedSeconds,
			"moves":           moves,
			"total_pairs":     totalPairs,
		})
	}
	efficiency := float64(totalPairs) / float64(moves) * 100
	speedBonus := math.Max(0, float64(totalPairs*100-elapsedSeconds))
	return int(math.Round(efficiency + speedBonus)), nil
}

// FormatElapsed formats the given seconds as m:ss.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ScoreSubmission is the payload of a finished session that is persisted.
type ScoreSubmission struct {
	PlayerID       string
	PlayerName     string
	EventID        string
	EventName      string
	MatchedPairs   int
	TotalPairs     int
	Moves          int
	ElapsedSeconds int
	Score          int
}

// PlayerScore is a persisted ScoreSubmission.
type PlayerScore struct {
	ID             string
	PlayerID       string
	PlayerName     string
	EventID        string
	EventName      string
	Score          int
	ElapsedSeconds int
	Moves          int
	MatchedPairs   int
	TotalPairs     int
	CreatedAt      time.Time
}

// ScoreStore persists scores.
type ScoreStore interface {
	// SubmitScore persists the given ScoreSubmission and returns the id of the
	// created PlayerScore.
	SubmitScore(ctx context.Context, submission ScoreSubmission) (string, error)
	// RankingForEvent retrieves the scores for the event with the given id
	// ordered by score descending, elapsed time ascending and creation time
	// descending.
	RankingForEvent(ctx context.Context, eventID string) ([]PlayerScore, error)
}

// SubmissionListener is notified about successfully persisted scores.
type SubmissionListener interface {
	ScoreSubmitted(ctx context.Context, submission ScoreSubmission, scoreID string)
}
