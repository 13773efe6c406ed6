package kiosk

import (
	"context"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/lefinal/memorama/carousel"
	"github.com/lefinal/memorama/errors"
	"github.com/lefinal/memorama/event"
	"github.com/lefinal/memorama/games"
	"github.com/lefinal/memorama/rankingsvc"
	"github.com/lefinal/memorama/registration"
	"github.com/lefinal/memorama/util"
	"go.uber.org/zap"
	"sync"
	"time"
)

// Config configures each Kiosk.
type Config struct {
	Session      games.SessionConfig
	Registration registration.Config
	Carousel     carousel.SchedulerConfig
	// PlaybackTimeout is the timeout for the kiosk to report the result of a
	// video playback request.
	PlaybackTimeout time.Duration
}

// DefaultConfig returns the regular Config without videos.
func DefaultConfig() Config {
	return Config{
		Session: games.DefaultSessionConfig(),
		Registration: registration.Config{
			Debounce:      registration.DefaultDebounce,
			LookupTimeout: 5 * time.Second,
		},
		Carousel:        carousel.DefaultSchedulerConfig(),
		PlaybackTimeout: DefaultPlaybackTimeout,
	}
}

// Deps are the dependencies shared by all kiosks.
type Deps struct {
	Events      games.EventStore
	Scores      games.ScoreStore
	Players     registration.PlayerStore
	DeckBuilder *games.DeckBuilder
	// Listener is optional.
	Listener games.SubmissionListener
}

// rankingStore combines games.EventStore and games.ScoreStore for
// rankingsvc.LoadRanking.
type rankingStore struct {
	games.EventStore
	games.ScoreStore
}

// Kiosk is the view of a single kiosk screen. It owns a
// registration.Coordinator, a carousel.Scheduler and at most one
// games.Session. Incoming messages are handled one after another in Run.
type Kiosk struct {
	id     string
	logger *zap.Logger
	config Config
	deps   Deps
	// send is where outgoing messages are written to.
	send        chan<- []byte
	coordinator *registration.Coordinator
	scheduler   *carousel.Scheduler
	player      *remotePlayer
	// carouselUpdates receives when carousel indices changed.
	carouselUpdates chan struct{}
	// event is the selected event.
	event *games.Event
	// registered is the player registered for the selected event.
	registered *registration.Player
	// session is the current game session.
	session *games.Session
	// stopSessionWatch stops forwarding updates of session.
	stopSessionWatch func()
	// m locks event, registered, session and stopSessionWatch.
	m sync.Mutex
}

// New creates a new Kiosk that writes outgoing messages to the given channel.
// Serve it with Run.
func New(logger *zap.Logger, config Config, deps Deps, send chan<- []byte) *Kiosk {
	id := uuid.New().String()
	k := &Kiosk{
		id:              id,
		logger:          logger.With(zap.String("kiosk_id", id)),
		config:          config,
		deps:            deps,
		send:            send,
		carouselUpdates: make(chan struct{}, 1),
	}
	k.coordinator = registration.NewCoordinator(k.logger.Named("registration"), deps.Players, config.Registration)
	k.player = newRemotePlayer(k.sendMessage, config.PlaybackTimeout)
	k.scheduler = carousel.NewScheduler(k.logger.Named("carousel"), config.Carousel, k.player, func(_ carousel.Update) {
		select {
		case k.carouselUpdates <- struct{}{}:
		default:
		}
	})
	return k
}

// ID returns the unique id of the Kiosk.
func (k *Kiosk) ID() string {
	return k.id
}

// HasSession returns whether a game session exists.
func (k *Kiosk) HasSession() bool {
	k.m.Lock()
	defer k.m.Unlock()
	return k.session != nil
}

// Run handles messages from the given channel until it is closed or the
// context.Context is done. Afterwards, the session, the registration and the
// carousels are torn down and no more messages will be sent.
func (k *Kiosk) Run(ctx context.Context, receive <-chan []byte) error {
	lifetime, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := k.coordinator.Run(lifetime)
		if err != nil {
			errors.Log(k.logger, errors.Wrap(err, "run registration coordinator", nil))
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		k.forwardRegistrationState(lifetime)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		k.forwardCarousel(lifetime)
	}()
	k.logger.Debug("kiosk connected")
receiveLoop:
	for {
		select {
		case <-ctx.Done():
			break receiveLoop
		case raw, more := <-receive:
			if !more {
				break receiveLoop
			}
			err := k.handleMessage(lifetime, raw)
			if err != nil {
				errors.Log(k.logger, err)
				k.sendError(lifetime, err)
			}
		}
	}
	k.m.Lock()
	k.closeSession()
	k.m.Unlock()
	k.scheduler.Detach()
	cancel()
	wg.Wait()
	k.logger.Debug("kiosk disconnected")
	return nil
}

// sendMessage marshals the given payload and writes the message to the send
// channel.
func (k *Kiosk) sendMessage(ctx context.Context, messageType MessageType, payload interface{}) error {
	payloadRaw, err := util.EncodeAsJSON(payload)
	if err != nil {
		return errors.Wrap(err, "encode payload", errors.Details{"message_type": messageType})
	}
	messageRaw, err := util.EncodeAsJSON(Message{
		MessageType: messageType,
		Payload:     payloadRaw,
	})
	if err != nil {
		return errors.Wrap(err, "encode message", errors.Details{"message_type": messageType})
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("send message")
	case k.send <- messageRaw:
		return nil
	}
}

// sendOrLog is like sendMessage but logs errors instead of returning them.
func (k *Kiosk) sendOrLog(ctx context.Context, messageType MessageType, payload interface{}) {
	err := k.sendMessage(ctx, messageType, payload)
	if err != nil && ctx.Err() == nil {
		errors.Log(k.logger, errors.Wrap(err, "send message", nil))
	}
}

// sendError sends the given error as MessageTypeError. Messages of errors not
// caused by the user are hidden.
func (k *Kiosk) sendError(ctx context.Context, err error) {
	k.sendOrLog(ctx, MessageTypeError, event.ErrorEventPayloadFromError(err))
}

func (k *Kiosk) forwardRegistrationState(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.coordinator.Updates():
			k.sendOrLog(ctx, MessageTypeRegistrationState, messageRegistrationStateFromState(k.coordinator.State()))
		}
	}
}

func (k *Kiosk) forwardCarousel(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.carouselUpdates:
			k.sendOrLog(ctx, MessageTypeCarousel, MessageCarousel{Indices: k.scheduler.Indices()})
		}
	}
}

// watchSession forwards updates of the given session until the returned
// function is called.
func (k *Kiosk) watchSession(ctx context.Context, session *games.Session) func() {
	watchLifetime, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-watchLifetime.Done():
				return
			case <-session.Updates():
				k.sendOrLog(watchLifetime, MessageTypeSessionState, messageSessionStateFromState(session.State()))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// closeSession closes the current session if one exists. k.m must be locked.
func (k *Kiosk) closeSession() {
	if k.session == nil {
		return
	}
	k.stopSessionWatch()
	k.session.Close()
	k.session = nil
	k.stopSessionWatch = nil
}

func decodePayload(payload json.RawMessage, target interface{}) error {
	err := util.DecodeAsJSON(payload, target)
	if err != nil {
		return errors.Wrap(err, "decode payload", nil)
	}
	return nil
}

// handleMessage handles the given raw message.
func (k *Kiosk) handleMessage(ctx context.Context, raw []byte) error {
	var message Message
	err := util.DecodeAsJSON(raw, &message)
	if err != nil {
		return errors.Wrap(err, "decode message", nil)
	}
	switch message.MessageType {
	case MessageTypeSelectEvent:
		var p MessageSelectEvent
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.handleSelectEvent(ctx, p)
	case MessageTypeCedulaInput:
		var p MessageCedulaInput
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.coordinator.CedulaChanged(ctx, p.Cedula)
	case MessageTypePhoneInput:
		var p MessagePhoneInput
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		k.coordinator.PhoneChanged(p.Phone)
	case MessageTypeRegister:
		var p MessageRegister
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.handleRegister(ctx, p)
	case MessageTypeStartGame:
		err = k.handleStartGame(ctx)
	case MessageTypeClickCard:
		var p MessageClickCard
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.handleClickCard(p)
	case MessageTypePlayAgain:
		err = k.handlePlayAgain()
	case MessageTypeReset:
		err = k.handleReset(ctx)
	case MessageTypeCarouselAdvance:
		var p MessageCarouselNavigate
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.scheduler.Advance(p.Panel)
	case MessageTypeCarouselRetreat:
		var p MessageCarouselNavigate
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.scheduler.Retreat(p.Panel)
	case MessageTypeVideoEnded:
		var p MessageVideoEnded
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		err = k.scheduler.PlaybackEnded(p.Panel)
	case MessageTypeVideoPlaybackResult:
		var p MessageVideoPlaybackResult
		if err := decodePayload(message.Payload, &p); err != nil {
			return err
		}
		if !k.player.resolve(p.RequestID, p.OK) {
			k.logger.Debug("dropping result for unknown playback request", zap.String("request_id", p.RequestID))
		}
	case MessageTypeGetRanking:
		err = k.handleGetRanking(ctx)
	case MessageTypeListEvents:
		err = k.handleListEvents(ctx)
	default:
		return errors.NewBadRequestError(errors.KindUnknownMessageType, "unknown message type",
			errors.Details{"message_type": message.MessageType})
	}
	if err != nil {
		return errors.Wrap(err, "handle message", errors.Details{"message_type": message.MessageType})
	}
	return nil
}

// selectedEvent returns the selected event or an errors.KindNoEventSelected
// error. k.m must be locked.
func (k *Kiosk) selectedEvent() (games.Event, error) {
	if k.event == nil {
		return games.Event{}, errors.NewBadRequestError(errors.KindNoEventSelected, "no event selected", nil)
	}
	return *k.event, nil
}

// handleSelectEvent shows the event with the given id. A running session is
// closed and the registration is cleared. The carousels are attached to the
// images of the new event.
func (k *Kiosk) handleSelectEvent(ctx context.Context, p MessageSelectEvent) error {
	e, err := k.deps.Events.EventByID(ctx, p.EventID)
	if err != nil {
		return errors.Wrap(err, "event by id", errors.Details{"event_id": p.EventID})
	}
	if !e.IsActive {
		return errors.NewResourceNotFoundError("event not active", errors.Details{"event_id": p.EventID})
	}
	k.m.Lock()
	k.closeSession()
	k.event = &e
	k.registered = nil
	k.m.Unlock()
	err = k.coordinator.Reset(ctx)
	if err != nil {
		return errors.Wrap(err, "reset registration", nil)
	}
	k.scheduler.Attach(len(e.Images))
	k.logger.Debug("event selected", zap.String("event_id", e.ID))
	k.sendOrLog(ctx, MessageTypeEvent, messageEventFromEvent(e))
	k.sendOrLog(ctx, MessageTypeSessionState, nil)
	return nil
}

// handleRegister registers the player for the selected event.
func (k *Kiosk) handleRegister(ctx context.Context, p MessageRegister) error {
	k.m.Lock()
	_, err := k.selectedEvent()
	k.m.Unlock()
	if err != nil {
		return err
	}
	result, err := k.coordinator.Register(ctx, p.Name, p.Cedula, p.Phone)
	if err != nil {
		return errors.Wrap(err, "register", nil)
	}
	k.m.Lock()
	k.registered = &result.Player
	k.m.Unlock()
	return nil
}

// handleStartGame starts a new session for the registered player and the
// selected event. A previous session is closed.
func (k *Kiosk) handleStartGame(ctx context.Context) error {
	k.m.Lock()
	defer k.m.Unlock()
	e, err := k.selectedEvent()
	if err != nil {
		return err
	}
	// The form might have changed since registering.
	registrationState := k.coordinator.State()
	if k.registered == nil || !registrationState.IsRegistered || registrationState.PlayerID != k.registered.ID {
		k.registered = nil
		return errors.NewBadRequestError(errors.KindNotRegistered, "player not registered", nil)
	}
	k.closeSession()
	session := games.NewSession(k.logger.Named("session"), k.config.Session, games.SessionDeps{
		DeckBuilder: k.deps.DeckBuilder,
		Scores:      k.deps.Scores,
		Listener:    k.deps.Listener,
	}, *k.registered, e)
	err = session.Start()
	if err != nil {
		session.Close()
		return errors.Wrap(err, "start session", nil)
	}
	k.session = session
	k.stopSessionWatch = k.watchSession(ctx, session)
	return nil
}

// currentSession returns the current session or an
// errors.KindSessionNotStarted error.
func (k *Kiosk) currentSession() (*games.Session, error) {
	k.m.Lock()
	defer k.m.Unlock()
	if k.session == nil {
		return nil, errors.NewBadRequestError(errors.KindSessionNotStarted, "no session", nil)
	}
	return k.session, nil
}

func (k *Kiosk) handleClickCard(p MessageClickCard) error {
	session, err := k.currentSession()
	if err != nil {
		return err
	}
	_, err = session.Click(p.CardID)
	if err != nil {
		return errors.Wrap(err, "click", errors.Details{"card_id": p.CardID})
	}
	return nil
}

func (k *Kiosk) handlePlayAgain() error {
	session, err := k.currentSession()
	if err != nil {
		return err
	}
	err = session.PlayAgain()
	if err != nil {
		return errors.Wrap(err, "play again", nil)
	}
	return nil
}

// handleReset tears down the session and clears the registration for the next
// visitor. The selected event and the carousels are kept.
func (k *Kiosk) handleReset(ctx context.Context) error {
	k.m.Lock()
	k.closeSession()
	k.registered = nil
	k.m.Unlock()
	err := k.coordinator.Reset(ctx)
	if err != nil {
		return errors.Wrap(err, "reset registration", nil)
	}
	k.sendOrLog(ctx, MessageTypeSessionState, nil)
	return nil
}

func (k *Kiosk) handleGetRanking(ctx context.Context) error {
	k.m.Lock()
	e, err := k.selectedEvent()
	k.m.Unlock()
	if err != nil {
		return err
	}
	ranking, err := rankingsvc.LoadRanking(ctx, rankingStore{
		EventStore: k.deps.Events,
		ScoreStore: k.deps.Scores,
	}, e.ID)
	if err != nil {
		return errors.Wrap(err, "load ranking", errors.Details{"event_id": e.ID})
	}
	k.sendOrLog(ctx, MessageTypeRanking, ranking)
	return nil
}

func (k *Kiosk) handleListEvents(ctx context.Context) error {
	events, err := k.deps.Events.ActiveEvents(ctx)
	if err != nil {
		return errors.Wrap(err, "active events", nil)
	}
	messages := make([]MessageEvent, 0, len(events))
	for _, e := range events {
		messages = append(messages, messageEventFromEvent(e))
	}
	k.sendOrLog(ctx, MessageTypeEvents, messages)
	return nil
}
