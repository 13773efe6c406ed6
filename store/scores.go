package store

import (
	"context"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/games"
	"time"
)

// SubmitScore persists the given games.ScoreSubmission and returns the id of
// the created score.
func (m *Mall) SubmitScore(ctx context.Context, submission games.ScoreSubmission) (string, error) {
	scoreID := uuid.New().String()
	// Build query.
	q, _, err := m.dialect.Insert(goqu.T("player_scores")).Rows(goqu.Record{
		"id":              scoreID,
		"player_id":       submission.PlayerID,
		"player_name":     submission.PlayerName,
		"event_id":        submission.EventID,
		"event_name":      submission.EventName,
		"score":           submission.Score,
		"elapsed_seconds": submission.ElapsedSeconds,
		"moves":           submission.Moves,
		"matched_pairs":   submission.MatchedPairs,
		"total_pairs":     submission.TotalPairs,
		"created_at":      time.Now(),
	}).ToSQL()
	if err != nil {
		return "", errors.NewQueryToSQLError(err, nil)
	}
	// Exec.
	_, err = m.db.Exec(ctx, q)
	if err != nil {
		return "", errors.NewExecQueryError(err, "exec submit score query", q)
	}
	return scoreID, nil
}

// RankingForEvent retrieves the scores for the event with the given id ordered
// by score descending, elapsed time ascending and creation time descending.
func (m *Mall) RankingForEvent(ctx context.Context, eventID string) ([]games.PlayerScore, error) {
	// Build query.
	q, _, err := m.dialect.From(goqu.T("player_scores")).
		Select(goqu.C("id"),
			goqu.C("player_id"),
			goqu.C("player_name"),
			goqu.C("event_id"),
			goqu.C("event_name"),
			goqu.C("score"),
			goqu.C("elapsed_seconds"),
			goqu.C("moves"),
			goqu.C("matched_pairs"),
			goqu.C("total_pairs"),
			goqu.C("created_at")).
		Where(goqu.C("event_id").Eq(eventID)).
		Order(goqu.C("score").Desc(),
			goqu.C("elapsed_seconds").Asc(),
			goqu.C("created_at").Desc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query ranking", q)
	}
	defer rows.Close()
	// Scan.
	ranking := make([]games.PlayerScore, 0)
	for rows.Next() {
		var score games.PlayerScore
		err = rows.Scan(&score.ID,
			&score.PlayerID,
			&score.PlayerName,
			&score.EventID,
			&score.EventName,
			&score.Score,
			&score.ElapsedSeconds,
			&score.Moves,
			&score.MatchedPairs,
			&score.TotalPairs,
			&score.CreatedAt)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan score", q)
		}
		ranking = append(ranking, score)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.NewScanDBRowError(err, "read score rows", q)
	}
	return ranking, nil
}
