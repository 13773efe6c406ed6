package event

import (
	"time"
)

// RankingRequestEvent requests publishing the ranking of an event.
type RankingRequestEvent struct {
	// EventID is the id of the event to publish the ranking for.
	EventID string `json:"event_id"`
}

// RankingEntry is a single entry in a RankingEvent.
type RankingEntry struct {
	// Rank is the position in the ranking starting at 1.
	Rank           int       `json:"rank"`
	ScoreID        string    `json:"score_id"`
	PlayerID       string    `json:"player_id"`
	PlayerName     string    `json:"player_name"`
	Score          int       `json:"score"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	// ElapsedFormatted is the elapsed time formatted as m:ss.
	ElapsedFormatted string    `json:"elapsed_formatted"`
	Moves            int       `json:"moves"`
	MatchedPairs     int       `json:"matched_pairs"`
	TotalPairs       int       `json:"total_pairs"`
	CreatedAt        time.Time `json:"created_at"`
}

// RankingEvent is the ranking of an event.
type RankingEvent struct {
	EventID   string         `json:"event_id"`
	EventName string         `json:"event_name"`
	Entries   []RankingEntry `json:"entries"`
}

// ScoreSubmittedEvent is published after a score was persisted.
type ScoreSubmittedEvent struct {
	ScoreID        string `json:"score_id"`
	PlayerID       string `json:"player_id"`
	PlayerName     string `json:"player_name"`
	EventID        string `json:"event_id"`
	EventName      string `json:"event_name"`
	Score          int    `json:"score"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Moves          int    `json:"moves"`
}
