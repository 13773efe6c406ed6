package store

import (
	"context"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/registration"
	"time"
)

// PlayersByNationalID retrieves the players with the given national id. As the
// national id is unique, at most one is returned.
func (m *Mall) PlayersByNationalID(ctx context.Context, nationalID string) ([]registration.Player, error) {
	// Build query.
	q, _, err := m.dialect.From(goqu.T("players")).
		Select(goqu.C("id"),
			goqu.C("name"),
			goqu.C("national_id"),
			goqu.C("phone"),
			goqu.C("created_at"),
			goqu.C("updated_at")).
		Where(goqu.C("national_id").Eq(nationalID)).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query players", q)
	}
	defer rows.Close()
	// Scan.
	players := make([]registration.Player, 0, 1)
	for rows.Next() {
		var player registration.Player
		err = rows.Scan(&player.ID,
			&player.Name,
			&player.NationalID,
			&player.Phone,
			&player.CreatedAt,
			&player.UpdatedAt)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan player", q)
		}
		players = append(players, player)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.NewScanDBRowError(err, "read player rows", q)
	}
	return players, nil
}

// CreatePlayer creates the given registration.Player with a new id. If the
// national id is already taken, an errors.ErrBadRequest error with
// errors.KindDuplicateNationalID is returned.
func (m *Mall) CreatePlayer(ctx context.Context, player registration.Player) (registration.Player, error) {
	now := time.Now()
	player.ID = uuid.New().String()
	player.CreatedAt = now
	player.UpdatedAt = now
	// Build query.
	q, _, err := m.dialect.Insert(goqu.T("players")).Rows(goqu.Record{
		"id":          player.ID,
		"name":        player.Name,
		"national_id": player.NationalID,
		"phone":       player.Phone,
		"created_at":  player.CreatedAt,
		"updated_at":  player.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return registration.Player{}, errors.NewQueryToSQLError(err, nil)
	}
	// Exec.
	result, err := m.db.Exec(ctx, q)
	if err != nil {
		if isUniqueViolation(err) {
			return registration.Player{}, errors.Error{
				Code:    errors.ErrBadRequest,
				Kind:    errors.KindDuplicateNationalID,
				Err:     err,
				Message: "national id already registered",
				Details: errors.Details{"national_id": player.NationalID},
			}
		}
		return registration.Player{}, errors.NewExecQueryError(err, "exec create player query", q)
	}
	if result.RowsAffected() != 1 {
		return registration.Player{}, errors.NewInternalError("player not created", errors.Details{"query": q})
	}
	return player, nil
}
