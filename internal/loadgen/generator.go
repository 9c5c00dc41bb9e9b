package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cinerank/pkg/logger"
)

const randomFloatDivisor = 1_000_000

// randomInt returns a uniform integer in [0,n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// randomFloat returns a value in [0,1).
func randomFloat() float64 {
	return float64(randomInt(randomFloatDivisor)) / randomFloatDivisor
}

// generateUsers creates synthetic user ids.
func generateUsers(n int) []string {
	users := make([]string, n)
	for i := range users {
		users[i] = "loadgen-" + uuid.NewString()
	}
	return users
}

// generateEvents creates NumEvents ratings spread across users and movies.
// Roughly DuplicateRatio of them replay an earlier event id so the
// service's idempotency can be observed.
func generateEvents(ctx context.Context, config *Config, users []string, movies []Movie, stats *Stats) ([]Event, error) {
	if len(movies) == 0 {
		return nil, ErrEmptyCatalog
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to generate events for")
	}
	logger.Get().Info(ctx, "generating rating events",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("users", len(users)),
		logger.Int("movies", len(movies)))

	events := make([]Event, config.NumEvents)
	for i := range events {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during event generation: %w", err)
		}
		if i > 0 && randomFloat() < config.DuplicateRatio {
			events[i] = events[randomInt(i)]
			continue
		}
		events[i] = generateSingleEvent(users[randomInt(len(users))], movies[randomInt(len(movies))].ID)
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))
	return events, nil
}

// generateSingleEvent creates one rating in half-star steps on the 0..5 scale.
func generateSingleEvent(userID, itemID string) Event {
	return Event{
		EventID: uuid.NewString(),
		UserID:  userID,
		ItemID:  itemID,
		Rating:  float64(randomInt(maxRatingSteps+1)) * ratingStep,
		TS:      time.Now().UTC().Format(time.RFC3339),
	}
}
