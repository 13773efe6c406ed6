package registration

import (
	"context"
	"time"
)

// Player is a registered participant, identified by their national id.
type Player struct {
	// ID identifies the player.
	ID string
	// Name is the full name.
	Name string
	// NationalID is the cedula. It is unique among players.
	NationalID string
	// Phone is the mobile number.
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerStore provides player persistence.
type PlayerStore interface {
	// PlayersByNationalID retrieves the players with the given national id.
	PlayersByNationalID(ctx context.Context, nationalID string) ([]Player, error)
	// CreatePlayer creates the given player. The id and timestamps are set by
	// the store. If a player with the same national id already exists, an
	// error with errors.KindDuplicateNationalID is returned.
	CreatePlayer(ctx context.Context, player Player) (Player, error)
}
