package loadgen

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/cinerank/pkg/logger"
)

// Violation describes one broken ranking invariant.
type Violation struct {
	UserID string
	Reason string
}

// ratedItems returns, per user, the items whose ratings reached the service.
func ratedItems(events []Event, outcomes []outcome) map[string]map[string]struct{} {
	rated := make(map[string]map[string]struct{})
	for i, e := range events {
		if i >= len(outcomes) || (outcomes[i] != outcomeAccepted && outcomes[i] != outcomeDuplicate) {
			continue
		}
		set, ok := rated[e.UserID]
		if !ok {
			set = make(map[string]struct{})
			rated[e.UserID] = set
		}
		set[e.ItemID] = struct{}{}
	}
	return rated
}

// checkRecommendations checks one user's list: at most limit entries, unique
// items, finite scores in descending order, and no item the user rated.
func checkRecommendations(userID string, recs []Recommendation, rated map[string]struct{}, limit int) []Violation {
	var out []Violation
	add := func(format string, args ...any) {
		out = append(out, Violation{UserID: userID, Reason: fmt.Sprintf(format, args...)})
	}

	if len(recs) > limit {
		add("returned %d recommendations, limit %d", len(recs), limit)
	}
	seen := make(map[string]struct{}, len(recs))
	for i, r := range recs {
		if _, dup := seen[r.ItemID]; dup {
			add("item %s recommended twice", r.ItemID)
		}
		seen[r.ItemID] = struct{}{}
		if _, ok := rated[r.ItemID]; ok {
			add("already rated item %s recommended", r.ItemID)
		}
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			add("item %s has non-finite score", r.ItemID)
		}
		if i > 0 && r.Score > recs[i-1].Score {
			add("entry %d (%.4f) scores above entry %d (%.4f)", i, r.Score, i-1, recs[i-1].Score)
		}
	}
	return out
}

// verifyResults checks every retrieved list and fails on any violation.
func verifyResults(ctx context.Context, config *Config, events []Event, outcomes []outcome, recs map[string][]Recommendation, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "verifying recommendations", logger.Int("users", len(recs)))

	if len(recs) == 0 {
		return fmt.Errorf("%w: no recommendations to verify", ErrVerification)
	}

	rated := ratedItems(events, outcomes)
	var violations []Violation
	for user, list := range recs {
		violations = append(violations, checkRecommendations(user, list, rated[user], config.TopN)...)
	}
	stats.Violations = len(violations)

	for i, v := range violations {
		if i >= 10 && !config.Verbose {
			break
		}
		log.Error(ctx, "ranking invariant violated", logger.String("userID", v.UserID), logger.String("reason", v.Reason))
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %d violations", ErrVerification, len(violations))
	}

	log.Info(ctx, "result verification completed")
	return nil
}
