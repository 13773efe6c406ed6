package store

import (
	"context"
	"github.com/doug-martin/goqu/v9"
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/games"
	"time"
)

// eventColumns are the selected columns for scanning with scanEvent.
var eventColumns = []interface{}{
	goqu.C("id"),
	goqu.C("name"),
	goqu.C("logo"),
	goqu.C("location"),
	goqu.C("description"),
	goqu.C("date"),
	goqu.C("is_active"),
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (games.Event, error) {
	var event games.Event
	err := row.Scan(&event.ID,
		&event.Name,
		&event.Logo,
		&event.Location,
		&event.Description,
		&event.Date,
		&event.IsActive)
	return event, err
}

// EventByID retrieves the games.Event with the given id including its images.
func (m *Mall) EventByID(ctx context.Context, eventID string) (games.Event, error) {
	// Build query.
	q, _, err := m.dialect.From(goqu.T("events")).
		Select(eventColumns...).
		Where(goqu.C("id").Eq(eventID)).ToSQL()
	if err != nil {
		return games.Event{}, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return games.Event{}, errors.NewExecQueryError(err, "query event", q)
	}
	defer rows.Close()
	// Scan.
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return games.Event{}, errors.NewScanDBRowError(err, "read event rows", q)
		}
		return games.Event{}, errors.NewResourceNotFoundError("event not found", errors.Details{"event_id": eventID})
	}
	event, err := scanEvent(rows)
	if err != nil {
		return games.Event{}, errors.NewScanDBRowError(err, "scan event", q)
	}
	rows.Close()
	// Retrieve images.
	imagesByEvent, err := m.eventImages(ctx, []string{eventID})
	if err != nil {
		return games.Event{}, errors.Wrap(err, "event images", errors.Details{"event_id": eventID})
	}
	event.Images = imagesByEvent[eventID]
	return event, nil
}

// ActiveEvents retrieves all active events ordered by date descending.
func (m *Mall) ActiveEvents(ctx context.Context) ([]games.Event, error) {
	// Build query.
	q, _, err := m.dialect.From(goqu.T("events")).
		Select(eventColumns...).
		Where(goqu.C("is_active").IsTrue()).
		Order(goqu.C("date").Desc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query active events", q)
	}
	defer rows.Close()
	// Scan.
	events := make([]games.Event, 0)
	eventIDs := make([]string, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan event", q)
		}
		events = append(events, event)
		eventIDs = append(eventIDs, event.ID)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.NewScanDBRowError(err, "read event rows", q)
	}
	rows.Close()
	if len(events) == 0 {
		return events, nil
	}
	// Retrieve images.
	imagesByEvent, err := m.eventImages(ctx, eventIDs)
	if err != nil {
		return nil, errors.Wrap(err, "event images", nil)
	}
	for i := range events {
		events[i].Images = imagesByEvent[events[i].ID]
	}
	return events, nil
}

// eventImages retrieves the images of the events with the given ids, mapped by
// event id and in stored order.
func (m *Mall) eventImages(ctx context.Context, eventIDs []string) (map[string][]games.EventImage, error) {
	// Build query.
	q, _, err := m.dialect.From(goqu.T("event_images")).
		Select(goqu.C("event_id"),
			goqu.C("company_name"),
			goqu.C("image_url")).
		Where(goqu.C("event_id").In(eventIDs)).
		Order(goqu.C("event_id").Asc(), goqu.C("position").Asc()).ToSQL()
	if err != nil {
		return nil, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errors.NewExecQueryError(err, "query event images", q)
	}
	defer rows.Close()
	// Scan.
	imagesByEvent := make(map[string][]games.EventImage, len(eventIDs))
	for rows.Next() {
		var eventID string
		var image games.EventImage
		err = rows.Scan(&eventID, &image.CompanyName, &image.ImageURL)
		if err != nil {
			return nil, errors.NewScanDBRowError(err, "scan event image", q)
		}
		imagesByEvent[eventID] = append(imagesByEvent[eventID], image)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.NewScanDBRowError(err, "read event image rows", q)
	}
	return imagesByEvent, nil
}

// CreateEvent creates the given games.Event including its images. If the id is
// empty, a new one is generated. The id of the created event is returned.
func (m *Mall) CreateEvent(ctx context.Context, event games.Event) (string, error) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	// Begin tx.
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return "", errors.NewDBTxBeginError(err)
	}
	defer m.rollbackTx(ctx, tx, "create event")
	// Create event.
	q, _, err := m.dialect.Insert(goqu.T("events")).Rows(goqu.Record{
		"id":          event.ID,
		"name":        event.Name,
		"logo":        event.Logo,
		"location":    event.Location,
		"description": event.Description,
		"date":        event.Date,
		"is_active":   event.IsActive,
		"created_at":  time.Now(),
	}).ToSQL()
	if err != nil {
		return "", errors.NewQueryToSQLError(err, nil)
	}
	_, err = tx.Exec(ctx, q)
	if err != nil {
		return "", errors.NewExecQueryError(err, "exec create event query", q)
	}
	// Create images.
	if len(event.Images) > 0 {
		imageRecords := make([]interface{}, 0, len(event.Images))
		for position, image := range event.Images {
			imageRecords = append(imageRecords, goqu.Record{
				"event_id":     event.ID,
				"position":     position,
				"company_name": image.CompanyName,
				"image_url":    image.ImageURL,
			})
		}
		q, _, err = m.dialect.Insert(goqu.T("event_images")).Rows(imageRecords...).ToSQL()
		if err != nil {
			return "", errors.NewQueryToSQLError(err, nil)
		}
		_, err = tx.Exec(ctx, q)
		if err != nil {
			return "", errors.NewExecQueryError(err, "exec create event images query", q)
		}
	}
	// Commit.
	err = tx.Commit(ctx)
	if err != nil {
		return "", errors.NewDBTxCommitError(err)
	}
	return event.ID, nil
}

// eventExists checks whether an event with the given id exists.
func (m *Mall) eventExists(ctx context.Context, eventID string) (bool, error) {
	// Build query.
	q, _, err := m.dialect.From(goqu.T("events")).
		Select(goqu.COUNT("*")).
		Where(goqu.C("id").Eq(eventID)).ToSQL()
	if err != nil {
		return false, errors.NewQueryToSQLError(err, nil)
	}
	// Query.
	var count int
	err = m.db.QueryRow(ctx, q).Scan(&count)
	if err != nil {
		return false, errors.NewScanDBRowError(err, "scan event count", q)
	}
	return count > 0, nil
}

// nullsStringFromPtr is a helper for optional text fields in seed data.
func nullsStringFromPtr(s *string) nulls.String {
	if s == nil || *s == "" {
		return nulls.String{}
	}
	return nulls.NewString(*s)
}
