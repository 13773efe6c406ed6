package games

import (
	crand "crypto/rand"
	"encoding/binary"
	"github.com/lefinal/memorama/errors"
	"math/rand"
	"sync"
)

// Rand is the source of randomness used for shuffling.
type Rand interface {
	// Intn returns a uniformly distributed number in [0, n).
	Intn(n int) int
}

// lockedRand allows concurrent use of rand.Rand.
type lockedRand struct {
	rng *rand.Rand
	m   sync.Mutex
}

func (r *lockedRand) Intn(n int) int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.rng.Intn(n)
}

// NewRand creates a Rand that is safe for concurrent use and seeded using
// crypto/rand.
func NewRand() (Rand, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, errors.NewInternalErrorFromErr(err, "read random seed", nil)
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]))
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}, nil
}

// Shuffle returns a uniformly shuffled copy of the given items using
// Fisher-Yates. The given slice is not modified.
func Shuffle[T any](rng Rand, items []T) []T {
	shuffled := make([]T, len(items))
	copy(shuffled, items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
