package store

import (
	"context"
	"encoding/json"
	"github.com/lefinal/memorama/embedded"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/games"
	"go.uber.org/zap"
	"time"
)

// sampleEvent is the JSON representation of events in embedded.SampleEvents.
type sampleEvent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Logo        *string   `json:"logo"`
	Location    *string   `json:"location"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	IsActive    bool      `json:"isActive"`
	Images      []struct {
		CompanyName string `json:"companyName"`
		ImageURL    string `json:"imageUrl"`
	} `json:"images"`
}

// SampleEvents parses the events from embedded.SampleEvents.
func SampleEvents() ([]games.Event, error) {
	var raw []sampleEvent
	err := json.Unmarshal(embedded.SampleEvents, &raw)
	if err != nil {
		return nil, errors.NewInternalErrorFromErr(err, "decode sample events", nil)
	}
	events := make([]games.Event, 0, len(raw))
	for _, r := range raw {
		event := games.Event{
			ID:          r.ID,
			Name:        r.Name,
			Logo:        nullsStringFromPtr(r.Logo),
			Location:    nullsStringFromPtr(r.Location),
			Description: nullsStringFromPtr(r.Description),
			Date:        r.Date,
			IsActive:    r.IsActive,
			Images:      make([]games.EventImage, 0, len(r.Images)),
		}
		for _, image := range r.Images {
			event.Images = append(event.Images, games.EventImage{
				CompanyName: image.CompanyName,
				ImageURL:    image.ImageURL,
			})
		}
		events = append(events, event)
	}
	return events, nil
}

// SeedSampleEvents creates all sample events that do not exist yet.
func (m *Mall) SeedSampleEvents(ctx context.Context) error {
	events, err := SampleEvents()
	if err != nil {
		return errors.Wrap(err, "sample events", nil)
	}
	for _, event := range events {
		exists, err := m.eventExists(ctx, event.ID)
		if err != nil {
			return errors.Wrap(err, "check if event exists", errors.Details{"event_id": event.ID})
		}
		if exists {
			continue
		}
		_, err = m.CreateEvent(ctx, event)
		if err != nil {
			return errors.Wrap(err, "create sample event", errors.Details{"event_id": event.ID})
		}
		m.logger.Info("created sample event",
			zap.String("event_id", event.ID),
			zap.String("event_name", event.Name),
			zap.Int("image_count", len(event.Images)))
	}
	return nil
}
