package games

import (
	"fmt"
)

// seqRand is a deterministic Rand always returning the highest possible value,
// so that Shuffle keeps the order.
type seqRand struct{}

func (seqRand) Intn(n int) int {
	return n - 1
}

// genImages generates n images with distinct URLs.
func genImages(n int) []EventImage {
	images := make([]EventImage, 0, n)
	for i := 0; i < n; i++ {
		images = append(images, EventImage{
			CompanyName: fmt.Sprintf("company-%d", i),
			ImageURL:    fmt.Sprintf("https://example.com/sponsor-%d.png", i),
		})
	}
	return images
}

// pairsByImage groups card ids by image URL.
func pairsByImage(cards []GameCard) map[string][]string {
	pairs := make(map[string][]string)
	for _, card := range cards {
		pairs[card.ImageURL] = append(pairs[card.ImageURL], card.ID)
	}
	return pairs
}

// mismatchingIDs returns ids of two cards with different images.
func mismatchingIDs(cards []GameCard) (string, string) {
	for _, other := range cards[1:] {
		if other.ImageURL != cards[0].ImageURL {
			return cards[0].ID, other.ID
		}
	}
	panic("no mismatching cards")
}
