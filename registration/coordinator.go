package registration

import (
	"context"
	"github.com/lefinal/memorama/cedula"
	"github.com/lefinal/memorama/errors"
	"go.uber.org/zap"
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last cedula input before
// looking up the player.
const DefaultDebounce = 600 * time.Millisecond

// Notice is a user-facing outcome of a registration step.
type Notice string

const (
	// NoticeNone when nothing is to be shown.
	NoticeNone Notice = ""
	// NoticeRegistered when a new player was created.
	NoticeRegistered Notice = "registered"
	// NoticeFound when registering reused an existing player.
	NoticeFound Notice = "found"
	// NoticeRegisterFailed when registering failed.
	NoticeRegisterFailed Notice = "register-failed"
	// NoticeLookupFailed when looking up a cedula failed.
	NoticeLookupFailed Notice = "lookup-failed"
)

// State is the registration form state.
type State struct {
	Cedula string
	Name   string
	Phone  string
	// PlayerID is set when a player was found or registered.
	PlayerID         string
	CedulaInvalid    bool
	PhoneInvalid     bool
	PlayerExists     bool
	IsCheckingCedula bool
	IsRegistering    bool
	IsRegistered     bool
	Notice           Notice
}

// Config for a Coordinator.
type Config struct {
	// Debounce is the quiet period for cedula inputs.
	Debounce time.Duration
	// LookupTimeout is the timeout for looking up a player.
	LookupTimeout time.Duration
}

// Result of Coordinator.Register.
type Result struct {
	Player Player
	// IsNew is true if the player was created and false if an existing one was
	// found.
	IsNew bool
}

// settleRequest applies a successful registration in the Run loop. done is
// closed when applied.
type settleRequest struct {
	result Result
	done   chan struct{}
}

type lookupResult struct {
	seq        uint64
	nationalID string
	players    []Player
	err        error
}

// Coordinator handles the registration form. Cedula inputs are debounced and
// looked up in the PlayerStore in order to prefill the form for known players.
// Responses of outdated lookups are discarded. Run must be running for cedula
// inputs and registrations to be processed.
type Coordinator struct {
	logger *zap.Logger
	store  PlayerStore
	config Config
	// cedulaInput receives raw cedula inputs.
	cedulaInput chan string
	// resets receives reset requests. The passed channel is closed when done.
	resets chan chan struct{}
	// settles receives successful registrations.
	settles       chan settleRequest
	lookupResults chan lookupResult
	state         State
	stateMutex    sync.RWMutex
	// registerMutex serializes Register calls.
	registerMutex sync.Mutex
	updates       chan struct{}
}

// NewCoordinator creates a new Coordinator. Run it with Coordinator.Run.
func NewCoordinator(logger *zap.Logger, store PlayerStore, config Config) *Coordinator {
	return &Coordinator{
		logger:        logger,
		store:         store,
		config:        config,
		cedulaInput:   make(chan string, 16),
		resets:        make(chan chan struct{}),
		settles:       make(chan settleRequest),
		lookupResults: make(chan lookupResult),
		updates:       make(chan struct{}, 1),
	}
}

// Updates receives a value after each state change. Notifications are
// coalesced.
func (c *Coordinator) Updates() <-chan struct{} {
	return c.updates
}

func (c *Coordinator) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// State returns the current State.
func (c *Coordinator) State() State {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state
}

func (c *Coordinator) updateState(fn func(state *State)) {
	c.stateMutex.Lock()
	fn(&c.state)
	c.stateMutex.Unlock()
	c.notify()
}

// Run processes cedula inputs until the given context.Context is done.
func (c *Coordinator) Run(ctx context.Context) error {
	var lookups sync.WaitGroup
	defer lookups.Wait()
	var debounce *time.Timer
	var debounceC <-chan time.Time
	stopDebounce := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce = nil
		debounceC = nil
	}
	defer stopDebounce()
	var pending string
	var lastEmitted string
	hasEmitted := false
	// seq is the sequence number of the latest lookup.
	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case nationalID := <-c.cedulaInput:
			pending = nationalID
			stopDebounce()
			debounce = time.NewTimer(c.config.Debounce)
			debounceC = debounce.C
		case <-debounceC:
			debounce = nil
			debounceC = nil
			// Only handle distinct values.
			if hasEmitted && pending == lastEmitted {
				continue
			}
			hasEmitted = true
			lastEmitted = pending
			seq++
			if !c.beginCheck(pending) {
				continue
			}
			lookups.Add(1)
			go func(seq uint64, nationalID string) {
				defer lookups.Done()
				c.lookup(ctx, seq, nationalID)
			}(seq, pending)
		case result := <-c.lookupResults:
			if result.seq != seq {
				c.logger.Debug("discarding outdated cedula lookup",
					zap.Uint64("lookup_seq", result.seq),
					zap.Uint64("latest_seq", seq))
				continue
			}
			c.applyLookup(result)
		case done := <-c.resets:
			stopDebounce()
			pending = ""
			lastEmitted = ""
			hasEmitted = false
			// Invalidate running lookups.
			seq++
			c.updateState(func(state *State) {
				*state = State{}
			})
			close(done)
		case req := <-c.settles:
			nationalID := req.result.Player.NationalID
			// A pending input of the registered cedula must not reset the
			// registration. Other pending inputs still get checked.
			if debounceC != nil && pending == nationalID {
				stopDebounce()
			}
			hasEmitted = true
			lastEmitted = nationalID
			// Invalidate running lookups.
			seq++
			c.applyRegistered(req.result)
			close(req.done)
		}
	}
}

// beginCheck clears the form for the given cedula and reports whether it is
// worth looking up.
func (c *Coordinator) beginCheck(nationalID string) bool {
	isValid := cedula.IsValid(nationalID)
	c.updateState(func(state *State) {
		state.Cedula = nationalID
		state.Name = ""
		state.Phone = ""
		state.PlayerID = ""
		state.PlayerExists = false
		state.IsRegistered = false
		state.PhoneInvalid = false
		state.Notice = NoticeNone
		state.CedulaInvalid = nationalID != "" && !isValid
		state.IsCheckingCedula = isValid
	})
	return isValid
}

func (c *Coordinator) lookup(ctx context.Context, seq uint64, nationalID string) {
	lookupCtx, cancel := context.WithTimeout(ctx, c.config.LookupTimeout)
	defer cancel()
	players, err := c.store.PlayersByNationalID(lookupCtx, nationalID)
	if err != nil {
		err = errors.FromErr("lookup player by cedula", errors.ErrCommunication, errors.KindLookupFailure, err,
			errors.Details{"national_id": nationalID})
	}
	select {
	case <-ctx.Done():
	case c.lookupResults <- lookupResult{
		seq:        seq,
		nationalID: nationalID,
		players:    players,
		err:        err,
	}:
	}
}

func (c *Coordinator) applyLookup(result lookupResult) {
	if result.err != nil {
		errors.Log(c.logger, result.err)
		c.updateState(func(state *State) {
			state.IsCheckingCedula = false
			state.Notice = NoticeLookupFailed
		})
		return
	}
	c.updateState(func(state *State) {
		state.IsCheckingCedula = false
		if len(result.players) == 0 {
			return
		}
		player := result.players[0]
		state.PlayerExists = true
		state.PlayerID = player.ID
		state.Name = player.Name
		state.Phone = player.Phone
	})
}

// CedulaChanged feeds a new cedula input. The lookup happens after the
// debounce period if no other input follows.
func (c *Coordinator) CedulaChanged(ctx context.Context, nationalID string) error {
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("feed cedula input")
	case c.cedulaInput <- strings.TrimSpace(nationalID):
		return nil
	}
}

// NameChanged sets the name in the form.
func (c *Coordinator) NameChanged(name string) {
	c.updateState(func(state *State) {
		state.Name = name
	})
}

// PhoneChanged sets the phone in the form and validates it.
func (c *Coordinator) PhoneChanged(phone string) {
	phone = strings.TrimSpace(phone)
	c.updateState(func(state *State) {
		state.Phone = phone
		state.PhoneInvalid = phone != "" && !cedula.IsValidPhone(phone)
	})
}

// Reset clears the form and drops pending inputs and lookups.
func (c *Coordinator) Reset(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("request registration reset")
	case c.resets <- done:
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("await registration reset")
	case <-done:
		return nil
	}
}

// Register registers the player with the given data. If a player with the
// cedula already exists, it is reused. If any field is missing, an
// errors.KindIncompleteRegistration error is returned. An invalid cedula or
// phone fails with errors.KindInvalidCedula or errors.KindInvalidPhone. In all
// these cases only the validation flags are updated.
func (c *Coordinator) Register(ctx context.Context, name string, nationalID string, phone string) (Result, error) {
	c.registerMutex.Lock()
	defer c.registerMutex.Unlock()
	name = strings.TrimSpace(name)
	nationalID = strings.TrimSpace(nationalID)
	phone = strings.TrimSpace(phone)
	cedulaErr := cedula.Validate(nationalID)
	phoneErr := cedula.ValidatePhone(phone)
	if name == "" || nationalID == "" || phone == "" || cedulaErr != nil || phoneErr != nil {
		c.updateState(func(state *State) {
			state.CedulaInvalid = nationalID != "" && cedulaErr != nil
			state.PhoneInvalid = phone != "" && phoneErr != nil
		})
		switch {
		case name == "" || nationalID == "" || phone == "":
			return Result{}, errors.NewBadRequestError(errors.KindIncompleteRegistration, "incomplete registration",
				errors.Details{
					"name_missing":   name == "",
					"cedula_missing": nationalID == "",
					"phone_missing":  phone == "",
				})
		case cedulaErr != nil:
			return Result{}, errors.Wrap(cedulaErr, "validate cedula", nil)
		default:
			return Result{}, errors.Wrap(phoneErr, "validate phone", nil)
		}
	}
	c.updateState(func(state *State) {
		state.IsRegistering = true
		state.Notice = NoticeNone
	})
	result, err := c.getOrCreate(ctx, name, nationalID, phone)
	if err != nil {
		c.updateState(func(state *State) {
			state.IsRegistering = false
			state.Notice = NoticeRegisterFailed
		})
		return Result{}, errors.Wrap(err, "get or create player", nil)
	}
	err = c.settle(ctx, result)
	if err != nil {
		return Result{}, errors.Wrap(err, "settle registration", nil)
	}
	c.logger.Info("player registered",
		zap.String("player_id", result.Player.ID),
		zap.Bool("is_new", result.IsNew))
	return result, nil
}

// getOrCreate returns the existing player with the given cedula or creates a
// new one. A concurrent creation of the same cedula is resolved by looking up
// again.
func (c *Coordinator) getOrCreate(ctx context.Context, name string, nationalID string, phone string) (Result, error) {
	players, err := c.store.PlayersByNationalID(ctx, nationalID)
	if err != nil {
		return Result{}, errors.FromErr("lookup player by cedula", errors.ErrCommunication, errors.KindLookupFailure,
			err, errors.Details{"national_id": nationalID})
	}
	if len(players) > 0 {
		return Result{Player: players[0], IsNew: false}, nil
	}
	created, err := c.store.CreatePlayer(ctx, Player{
		Name:       name,
		NationalID: nationalID,
		Phone:      phone,
	})
	if err == nil {
		return Result{Player: created, IsNew: true}, nil
	}
	if !errors.HasKind(err, errors.KindDuplicateNationalID) {
		return Result{}, errors.FromErr("create player", errors.ErrCommunication, errors.KindPersistenceFailure,
			err, errors.Details{"national_id": nationalID})
	}
	// Created concurrently.
	players, err = c.store.PlayersByNationalID(ctx, nationalID)
	if err != nil {
		return Result{}, errors.FromErr("lookup player by cedula after duplicate", errors.ErrCommunication,
			errors.KindLookupFailure, err, errors.Details{"national_id": nationalID})
	}
	if len(players) == 0 {
		return Result{}, errors.NewInternalError("player vanished after duplicate creation",
			errors.Details{"national_id": nationalID})
	}
	return Result{Player: players[0], IsNew: false}, nil
}

// settle applies the given successful registration in the Run loop so that
// pending inputs and lookups of the registered cedula do not undo it.
func (c *Coordinator) settle(ctx context.Context, result Result) error {
	req := settleRequest{
		result: result,
		done:   make(chan struct{}),
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("request registration settle")
	case c.settles <- req:
	}
	select {
	case <-ctx.Done():
		return errors.NewContextAbortedError("await registration settle")
	case <-req.done:
		return nil
	}
}

func (c *Coordinator) applyRegistered(result Result) {
	c.updateState(func(state *State) {
		state.IsRegistering = false
		state.IsCheckingCedula = false
		state.IsRegistered = true
		state.PlayerExists = true
		state.PlayerID = result.Player.ID
		state.Cedula = result.Player.NationalID
		state.Name = result.Player.Name
		state.Phone = result.Player.Phone
		state.CedulaInvalid = false
		state.PhoneInvalid = false
		if result.IsNew {
			state.Notice = NoticeRegistered
		} else {
			state.Notice = NoticeFound
		}
	})
}
