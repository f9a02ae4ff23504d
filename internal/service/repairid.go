package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// maxIDAttempts bounds the retry loop.  The suffix space is only 1000
// values per day, so exhaustion is a real condition under load, not a
// theoretical one.
const maxIDAttempts = 10

// IDGenerator mints public repair identifiers in the form RPR{YYMMDD}-{NNN}
// with a 3-digit random suffix.  Candidates are checked against the store
// and retried on collision; the unique key on the repair_id column remains
// the authoritative uniqueness guarantee under concurrent creation.
type IDGenerator struct {
	store RepairStore

	// now and randInt are injectable for tests.
	now     func() time.Time
	randInt func(n int) int
}

// NewIDGenerator returns a generator backed by the given store.
func NewIDGenerator(store RepairStore) *IDGenerator {
	return &IDGenerator{
		store:   store,
		now:     time.Now,
		randInt: rand.Intn,
	}
}

// Generate returns a repair identifier unused at the time of the check, or
// ErrIDGenerationExhausted after maxIDAttempts collisions.
func (g *IDGenerator) Generate(ctx context.Context) (string, error) {
	prefix := g.now().UTC().Format("060102")
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := fmt.Sprintf("RPR%s-%03d", prefix, g.randInt(1000))
		exists, err := g.store.ExistsByPublicID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrIDGenerationExhausted
}
