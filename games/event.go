package games

import (
	"context"
	"github.com/gobuffalo/nulls"
	"time"
)

// EventImage is a sponsor image belonging to an Event. It is used as source
// for building card decks.
type EventImage struct {
	// CompanyName is the name of the sponsor.
	CompanyName string
	// ImageURL is where the image is found.
	ImageURL string
}

// Event is an occasion like a fair with sponsors, that provides the images to
// play with.
type Event struct {
	// ID identifies the event.
	ID string
	// Name is the human-readable name of the event.
	Name string
	// Logo is an optional URL of the event logo.
	Logo nulls.String
	// Location is an optional description of where the event takes place.
	Location nulls.String
	// Description is an optional text describing the event.
	Description nulls.String
	// Date is when the event takes place.
	Date time.Time
	// IsActive describes whether the event is open for playing.
	IsActive bool
	// Images are the sponsor images in their stored order.
	Images []EventImage
}

// EventStore provides access to events.
type EventStore interface {
	// EventByID retrieves the Event with the given id including its images. If
	// not found, an errors.ErrNotFound error is returned.
	EventByID(ctx context.Context, eventID string) (Event, error)
	// ActiveEvents retrieves all active events ordered by date descending.
	ActiveEvents(ctx context.Context) ([]Event, error)
}
