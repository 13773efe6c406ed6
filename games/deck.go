package games

import (
	"fmt"
	"github.com/lefinal/memorama/errors"
)

// DefaultPairCount is the number of pairs in a regular deck.
const DefaultPairCount = 8

// GameCard is a card on the board. Exactly two cards share the same image.
type GameCard struct {
	// ID is unique within a deck.
	ID string
	// ImageURL is the URL of the sponsor image. Used for matching.
	ImageURL string
	// CompanyName is the sponsor's name.
	CompanyName string
	// IsFlipped is true while the image is visible.
	IsFlipped bool
	// IsMatched is set once the pair was found.
	IsMatched bool
}

// DeckBuilder samples images from an event and builds shuffled decks.
type DeckBuilder struct {
	rng Rand
}

// NewDeckBuilder creates a DeckBuilder using the given Rand.
func NewDeckBuilder(rng Rand) *DeckBuilder {
	return &DeckBuilder{rng: rng}
}

// Build samples pairCount images from the given pool without replacement and
// returns a shuffled deck with two cards per image. Card ids are <index>-1 and
// <index>-2 where index is the position of the image in the sample. If the pool
// has fewer images than pairCount, an errors.ErrBadRequest error with kind
// errors.KindInsufficientAssets is returned.
func (b *DeckBuilder) Build(pool []EventImage, pairCount int) ([]GameCard, error) {
	if pairCount <= 0 {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "pair count must be positive",
			errors.Details{"pair_count": pairCount})
	}
	if len(pool) < pairCount {
		return nil, errors.NewBadRequestError(errors.KindInsufficientAssets,
			fmt.Sprintf("need %d images but event only has %d", pairCount, len(pool)),
			errors.Details{
				"pair_count": pairCount,
				"pool_size":  len(pool),
			})
	}
	selected := Shuffle(b.rng, pool)[:pairCount]
	cards := make([]GameCard, 0, 2*pairCount)
	for i, image := range selected {
		for copyNum := 1; copyNum <= 2; copyNum++ {
			cards = append(cards, GameCard{
				ID:          fmt.Sprintf("%d-%d", i, copyNum),
				ImageURL:    image.ImageURL,
				CompanyName: image.CompanyName,
			})
		}
	}
	return Shuffle(b.rng, cards), nil
}
