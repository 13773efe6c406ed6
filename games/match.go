package games

import (
	"github.com/lefinal/memorama/errors"
	"sync"
	"time"
)

// DefaultMismatchRevealDelay is how long two mismatched cards stay visible
// before they are flipped back.
const DefaultMismatchRevealDelay = 800 * time.Millisecond

// Phase is the phase of a MatchEngine.
type Phase string

const (
	// PhaseIdle is the phase before the engine was started.
	PhaseIdle Phase = "idle"
	// PhasePlaying accepts card clicks.
	PhasePlaying Phase = "playing"
	// PhaseResolving is active while two mismatched cards are revealed. Clicks
	// are ignored.
	PhaseResolving Phase = "resolving"
	// PhaseComplete is the terminal phase after all pairs were matched.
	PhaseComplete Phase = "complete"
)

// ClickOutcome describes what a click on a card did.
type ClickOutcome string

const (
	// ClickIgnored for clicks on flipped or matched cards, while resolving a
	// mismatch or after completion.
	ClickIgnored ClickOutcome = "ignored"
	// ClickFirstFlipped when the first card of a pair attempt was revealed.
	ClickFirstFlipped ClickOutcome = "first-flipped"
	// ClickMatched when the second card matched the first one.
	ClickMatched ClickOutcome = "matched"
	// ClickMismatched when the second card did not match. Both cards are
	// flipped back after the reveal delay.
	ClickMismatched ClickOutcome = "mismatched"
	// ClickCompleted when the last pair was matched.
	ClickCompleted ClickOutcome = "completed"
)

// MatchState is a snapshot of a MatchEngine.
type MatchState struct {
	Phase        Phase
	Cards        []GameCard
	Moves        int
	MatchedPairs int
	TotalPairs   int
}

// noCard marks an empty selection slot.
const noCard = -1

// MatchEngine holds the board and applies the matching rules for clicks. Moves
// are counted per revealed pair.
type MatchEngine struct {
	revealDelay time.Duration
	// onRevert is called after mismatched cards were flipped back.
	onRevert func()
	// cards are the cards on the board.
	cards []GameCard
	// cardIndexByID maps card ids to their index in cards.
	cardIndexByID map[string]int
	first         int
	second        int
	moves         int
	matchedPairs  int
	totalPairs    int
	phase         Phase
	// revealTimer is set while in PhaseResolving.
	revealTimer *time.Timer
	isTornDown  bool
	m           sync.Mutex
}

// NewMatchEngine creates a new MatchEngine for the given deck. The total amount
// of pairs is derived from the deck size. onRevert may be nil.
func NewMatchEngine(cards []GameCard, revealDelay time.Duration, onRevert func()) *MatchEngine {
	board := make([]GameCard, len(cards))
	copy(board, cards)
	cardIndexByID := make(map[string]int, len(board))
	for i := range board {
		board[i].IsFlipped = false
		board[i].IsMatched = false
		cardIndexByID[board[i].ID] = i
	}
	return &MatchEngine{
		revealDelay:   revealDelay,
		onRevert:      onRevert,
		cards:         board,
		cardIndexByID: cardIndexByID,
		first:         noCard,
		second:        noCard,
		totalPairs:    len(board) / 2,
		phase:         PhaseIdle,
	}
}

// Start switches from PhaseIdle to PhasePlaying.
func (e *MatchEngine) Start() {
	e.m.Lock()
	defer e.m.Unlock()
	if e.phase != PhaseIdle {
		return
	}
	e.phase = PhasePlaying
	if e.totalPairs == 0 {
		e.phase = PhaseComplete
	}
}

// Click applies a click on the card with the given id. Clicks on unknown cards
// return an errors.ErrBadRequest error. Clicks before Start are rejected as
// well.
func (e *MatchEngine) Click(cardID string) (ClickOutcome, error) {
	e.m.Lock()
	defer e.m.Unlock()
	cardIndex, ok := e.cardIndexByID[cardID]
	if !ok {
		return ClickIgnored, errors.NewBadRequestError(errors.KindUnknownCard, "unknown card",
			errors.Details{"card_id": cardID})
	}
	switch e.phase {
	case PhaseIdle:
		return ClickIgnored, errors.NewBadRequestError(errors.KindSessionNotStarted, "match not started", nil)
	case PhaseResolving, PhaseComplete:
		return ClickIgnored, nil
	}
	card := &e.cards[cardIndex]
	if card.IsFlipped || card.IsMatched || e.second != noCard {
		return ClickIgnored, nil
	}
	card.IsFlipped = true
	if e.first == noCard {
		e.first = cardIndex
		return ClickFirstFlipped, nil
	}
	// Second card revealed.
	e.second = cardIndex
	e.moves++
	firstCard := &e.cards[e.first]
	if firstCard.ImageURL == card.ImageURL {
		firstCard.IsMatched = true
		card.IsMatched = true
		e.first = noCard
		e.second = noCard
		e.matchedPairs++
		if e.matchedPairs == e.totalPairs {
			e.phase = PhaseComplete
			return ClickCompleted, nil
		}
		return ClickMatched, nil
	}
	// Mismatch.
	e.phase = PhaseResolving
	firstIndex, secondIndex := e.first, e.second
	e.revealTimer = time.AfterFunc(e.revealDelay, func() {
		e.revert(firstIndex, secondIndex)
	})
	return ClickMismatched, nil
}

// revert flips back the given mismatched cards if the engine is still resolving
// them.
func (e *MatchEngine) revert(firstIndex int, secondIndex int) {
	e.m.Lock()
	if e.isTornDown || e.phase != PhaseResolving || e.first != firstIndex || e.second != secondIndex {
		e.m.Unlock()
		return
	}
	e.cards[firstIndex].IsFlipped = false
	e.cards[secondIndex].IsFlipped = false
	e.first = noCard
	e.second = noCard
	e.phase = PhasePlaying
	e.revealTimer = nil
	e.m.Unlock()
	if e.onRevert != nil {
		e.onRevert()
	}
}

// Snapshot returns the current MatchState.
func (e *MatchEngine) Snapshot() MatchState {
	e.m.Lock()
	defer e.m.Unlock()
	cards := make([]GameCard, len(e.cards))
	copy(cards, e.cards)
	return MatchState{
		Phase:        e.phase,
		Cards:        cards,
		Moves:        e.moves,
		MatchedPairs: e.matchedPairs,
		TotalPairs:   e.totalPairs,
	}
}

// Teardown cancels a pending mismatch revert. The engine must not be used
// afterwards.
func (e *MatchEngine) Teardown() {
	e.m.Lock()
	defer e.m.Unlock()
	e.isTornDown = true
	if e.revealTimer != nil {
		e.revealTimer.Stop()
		e.revealTimer = nil
	}
}
