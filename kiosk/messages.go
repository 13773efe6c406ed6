package kiosk

import (
	"encoding/json"
	"github.com/lefinal/memorama/carousel"
	"github.com/lefinal/memorama/event"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/registration"
	"time"
)

// MessageType is the type of Message.
type MessageType string

// Incoming message types.
const (
	MessageTypeSelectEvent         MessageType = "select-event"
	MessageTypeCedulaInput         MessageType = "cedula-input"
	MessageTypePhoneInput          MessageType = "phone-input"
	MessageTypeRegister            MessageType = "register"
	MessageTypeStartGame           MessageType = "start-game"
	MessageTypeClickCard           MessageType = "click-card"
	MessageTypePlayAgain           MessageType = "play-again"
	MessageTypeReset               MessageType = "reset"
	MessageTypeCarouselAdvance     MessageType = "carousel-advance"
	MessageTypeCarouselRetreat     MessageType = "carousel-retreat"
	MessageTypeVideoEnded          MessageType = "video-ended"
	MessageTypeVideoPlaybackResult MessageType = "video-playback-result"
	MessageTypeGetRanking          MessageType = "get-ranking"
	MessageTypeListEvents          MessageType = "list-events"
)

// Outgoing message types.
const (
	MessageTypeEvents            MessageType = "events"
	MessageTypeEvent             MessageType = "event"
	MessageTypeRegistrationState MessageType = "registration-state"
	MessageTypeSessionState      MessageType = "session-state"
	MessageTypeCarousel          MessageType = "carousel"
	MessageTypePlayVideo         MessageType = "play-video"
	MessageTypeRanking           MessageType = "ranking"
	MessageTypeError             MessageType = "error"
)

// Message is the container for all messages exchanged with a kiosk.
type Message struct {
	// MessageType is the type of the message. It determines the content of
	// Payload.
	MessageType MessageType `json:"type"`
	// Payload is the actual content.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageSelectEvent is the payload for MessageTypeSelectEvent.
type MessageSelectEvent struct {
	EventID string `json:"eventId"`
}

// MessageCedulaInput is the payload for MessageTypeCedulaInput.
type MessageCedulaInput struct {
	Cedula string `json:"cedula"`
}

// MessageCarouselNavigate is the payload for MessageTypeCarouselAdvance and
// MessageTypeCarouselRetreat. Only image panels can be navigated.
type MessageCarouselNavigate struct {
	Panel carousel.Panel `json:"panel"`
}

// MessagePhoneInput is the payload for MessageTypePhoneInput.
type MessagePhoneInput struct {
	Phone string `json:"phone"`
}

// MessageRegister is the payload for MessageTypeRegister.
type MessageRegister struct {
	Name   string `json:"name"`
	Cedula string `json:"cedula"`
	Phone  string `json:"phone"`
}

// MessageClickCard is the payload for MessageTypeClickCard.
type MessageClickCard struct {
	CardID string `json:"cardId"`
}

// MessageVideoEnded is the payload for MessageTypeVideoEnded.
type MessageVideoEnded struct {
	Panel carousel.Panel `json:"panel"`
}

// MessageVideoPlaybackResult is the payload for
// MessageTypeVideoPlaybackResult.
type MessageVideoPlaybackResult struct {
	Panel     carousel.Panel `json:"panel"`
	RequestID string         `json:"requestId"`
	// OK is false if autoplay was rejected.
	OK bool `json:"ok"`
}

// MessageEventImage is an image in MessageEvent.
type MessageEventImage struct {
	CompanyName string `json:"companyName"`
	ImageURL    string `json:"imageUrl"`
}

// MessageEvent is the payload for MessageTypeEvent and the entries of
// MessageTypeEvents.
type MessageEvent struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Logo        *string             `json:"logo,omitempty"`
	Location    *string             `json:"location,omitempty"`
	Description *string             `json:"description,omitempty"`
	Date        time.Time           `json:"date"`
	IsActive    bool                `json:"isActive"`
	Images      []MessageEventImage `json:"images"`
}

// MessageRegistrationState is the payload for MessageTypeRegistrationState.
type MessageRegistrationState struct {
	Cedula           string              `json:"cedula"`
	Name             string              `json:"name"`
	Phone            string              `json:"phone"`
	PlayerID         string              `json:"playerId,omitempty"`
	CedulaInvalid    bool                `json:"cedulaInvalid"`
	PhoneInvalid     bool                `json:"phoneInvalid"`
	PlayerExists     bool                `json:"playerExists"`
	IsCheckingCedula bool                `json:"isCheckingCedula"`
	IsRegistering    bool                `json:"isRegistering"`
	IsRegistered     bool                `json:"isRegistered"`
	Notice           registration.Notice `json:"notice,omitempty"`
}

// MessageCard is a card in MessageSessionState.
type MessageCard struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	CompanyName string `json:"companyName"`
	IsFlipped   bool   `json:"isFlipped"`
	IsMatched   bool   `json:"isMatched"`
}

// MessageSessionState is the payload for MessageTypeSessionState. It is sent
// with null payload when no session exists.
type MessageSessionState struct {
	SessionID        string                 `json:"sessionId"`
	PlayerID         string                 `json:"playerId"`
	PlayerName       string                 `json:"playerName"`
	EventID          string                 `json:"eventId"`
	EventName        string                 `json:"eventName"`
	IsStarted        bool                   `json:"isStarted"`
	IsCompleted      bool                   `json:"isCompleted"`
	Phase            games.Phase            `json:"phase"`
	Cards            []MessageCard          `json:"cards"`
	Moves            int                    `json:"moves"`
	MatchedPairs     int                    `json:"matchedPairs"`
	TotalPairs       int                    `json:"totalPairs"`
	ElapsedSeconds   int                    `json:"elapsedSeconds"`
	ElapsedFormatted string                 `json:"elapsedFormatted"`
	Score            int                    `json:"score"`
	SubmissionStatus games.SubmissionStatus `json:"submissionStatus,omitempty"`
}

// MessageCarousel is the payload for MessageTypeCarousel.
type MessageCarousel struct {
	// Indices holds the current index of each attached panel.
	Indices map[carousel.Panel]int `json:"indices"`
}

// MessagePlayVideo is the payload for MessageTypePlayVideo. The kiosk answers
// with MessageTypeVideoPlaybackResult.
type MessagePlayVideo struct {
	Panel     carousel.Panel `json:"panel"`
	RequestID string         `json:"requestId"`
	URL       string         `json:"url"`
	Muted     bool           `json:"muted"`
	Inline    bool           `json:"inline"`
}

// MessageError is the payload for MessageTypeError. Details are only
// included if the kiosk is to blame.
type MessageError = event.ErrorEventPayload

func messageEventFromEvent(e games.Event) MessageEvent {
	m := MessageEvent{
		ID:       e.ID,
		Name:     e.Name,
		Date:     e.Date,
		IsActive: e.IsActive,
		Images:   make([]MessageEventImage, 0, len(e.Images)),
	}
	if e.Logo.Valid {
		m.Logo = &e.Logo.String
	}
	if e.Location.Valid {
		m.Location = &e.Location.String
	}
	if e.Description.Valid {
		m.Description = &e.Description.String
	}
	for _, image := range e.Images {
		m.Images = append(m.Images, MessageEventImage{
			CompanyName: image.CompanyName,
			ImageURL:    image.ImageURL,
		})
	}
	return m
}

func messageRegistrationStateFromState(s registration.State) MessageRegistrationState {
	return MessageRegistrationState{
		Cedula:           s.Cedula,
		Name:             s.Name,
		Phone:            s.Phone,
		PlayerID:         s.PlayerID,
		CedulaInvalid:    s.CedulaInvalid,
		PhoneInvalid:     s.PhoneInvalid,
		PlayerExists:     s.PlayerExists,
		IsCheckingCedula: s.IsCheckingCedula,
		IsRegistering:    s.IsRegistering,
		IsRegistered:     s.IsRegistered,
		Notice:           s.Notice,
	}
}

func messageSessionStateFromState(s games.SessionState) MessageSessionState {
	m := MessageSessionState{
		SessionID:        s.SessionID,
		PlayerID:         s.PlayerID,
		PlayerName:       s.PlayerName,
		EventID:          s.EventID,
		EventName:        s.EventName,
		IsStarted:        s.IsStarted,
		IsCompleted:      s.IsCompleted,
		Phase:            s.Phase,
		Cards:            make([]MessageCard, 0, len(s.Cards)),
		Moves:            s.Moves,
		MatchedPairs:     s.MatchedPairs,
		TotalPairs:       s.TotalPairs,
		ElapsedSeconds:   s.ElapsedSeconds,
		ElapsedFormatted: games.FormatElapsed(s.ElapsedSeconds),
		Score:            s.Score,
		SubmissionStatus: s.SubmissionStatus,
	}
	for _, card := range s.Cards {
		m.Cards = append(m.Cards, MessageCard{
			ID:          card.ID,
			ImageURL:    card.ImageURL,
			CompanyName: card.CompanyName,
			IsFlipped:   card.IsFlipped,
			IsMatched:   card.IsMatched,
		})
	}
	return m
}
