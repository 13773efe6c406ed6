package web_server

import (
	"context"
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/rankingsvc"
	"net/http"
	"time"
)

// healthCheckTimeout is the timeout for pinging the database in health checks.
const healthCheckTimeout = 3 * time.Second

// Store provides events and rankings.
type Store interface {
	games.EventStore
	RankingForEvent(ctx context.Context, eventID string) ([]games.PlayerScore, error)
}

// Pinger checks the database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

type eventImageResponse struct {
	CompanyName string `json:"company_name"`
	ImageURL    string `json:"image_url"`
}

type eventResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Logo        *string              `json:"logo,omitempty"`
	Location    *string              `json:"location,omitempty"`
	Description *string              `json:"description,omitempty"`
	Date        time.Time            `json:"date"`
	Images      []eventImageResponse `json:"images"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PopulateRoutes populates the WebServer with the routes.
func (server *WebServer) PopulateRoutes(wsHandler http.HandlerFunc, store Store, db Pinger) {
	server.router.Get("/ws", wsHandler)
	server.router.Get("/healthz", server.handleHealth(db))
	server.router.Get("/events", server.handleActiveEvents(store))
	server.router.Get("/events/{eventID}/ranking", server.handleRanking(store))
}

func (server *WebServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		errors.Log(server.logger, errors.FromErr("encode response", errors.ErrInternal, errors.KindEncodeJSON, err, nil))
	}
}

// writeError logs the given error and responds with a matching status code.
// Messages of errors not caused by the user are hidden.
func (server *WebServer) writeError(w http.ResponseWriter, err error) {
	errors.Log(server.logger, err)
	e, _ := errors.Cast(err)
	status := http.StatusInternalServerError
	switch e.Code {
	case errors.ErrNotFound:
		status = http.StatusNotFound
	case errors.ErrBadRequest:
		status = http.StatusBadRequest
	}
	message := "internal server error"
	if errors.BlameUser(err) {
		message = e.Message
	}
	server.writeJSON(w, status, errorResponse{
		Code:    string(e.Code),
		Kind:    string(e.Kind),
		Message: message,
	})
}

func (server *WebServer) handleHealth(db Pinger) http.HandlerFunc {
	type result struct {
		Status string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			errors.Log(server.logger, errors.Error{
				Code:    errors.ErrCommunication,
				Kind:    errors.KindDB,
				Err:     err,
				Message: "health check failed",
			})
			server.writeJSON(w, http.StatusServiceUnavailable, result{Status: "error"})
			return
		}
		server.writeJSON(w, http.StatusOK, result{Status: "ok"})
	}
}

func (server *WebServer) handleActiveEvents(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := store.ActiveEvents(r.Context())
		if err != nil {
			server.writeError(w, errors.Wrap(err, "active events", nil))
			return
		}
		response := make([]eventResponse, 0, len(events))
		for _, e := range events {
			response = append(response, eventResponseFromEvent(e))
		}
		server.writeJSON(w, http.StatusOK, response)
	}
}

func (server *WebServer) handleRanking(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		ranking, err := rankingsvc.LoadRanking(r.Context(), store, eventID)
		if err != nil {
			server.writeError(w, errors.Wrap(err, "load ranking", errors.Details{"event_id": eventID}))
			return
		}
		server.writeJSON(w, http.StatusOK, ranking)
	}
}

func eventResponseFromEvent(e games.Event) eventResponse {
	response := eventResponse{
		ID:     e.ID,
		Name:   e.Name,
		Date:   e.Date,
		Images: make([]eventImageResponse, 0, len(e.Images)),
	}
	if e.Logo.Valid {
		response.Logo = &e.Logo.String
	}
	if e.Location.Valid {
		response.Location = &e.Location.String
	}
	if e.Description.Valid {
		response.Description = &e.Description.String
	}
	for _, image := range e.Images {
		response.Images = append(response.Images, eventImageResponse{
			CompanyName: image.CompanyName,
			ImageURL:    image.ImageURL,
		})
	}
	return response
}
