package loadgen

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/cinerank/pkg/logger"
)

// retrieveRecommendations fetches recommendations for every user with a
// worker pool. Users whose request failed are absent from the result.
func retrieveRecommendations(ctx context.Context, config *Config, client *Client, users []string, stats *Stats) map[string][]Recommendation {
	log := logger.Get()
	log.Info(ctx, "retrieving recommendations", logger.Int("users", len(users)), logger.Int("workers", config.Workers))

	results := make([][]Recommendation, len(users))
	ok := make([]bool, len(users))
	var retrieved, failed atomic.Int64

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					return
				}
				recs, err := client.Recommendations(ctx, users[index], config.TopN)
				if err != nil {
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "failed to get recommendations",
							logger.String("userID", users[index]), logger.Error(err))
					}
					continue
				}
				results[index], ok[index] = recs, true
				retrieved.Add(1)
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range users {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()
	wg.Wait()

	out := make(map[string][]Recommendation, retrieved.Load())
	for i, user := range users {
		if ok[i] {
			out[user] = results[i]
			stats.RecommendationsRetrieved += len(results[i])
		}
	}
	stats.UsersChecked = len(out)

	log.Info(ctx, "recommendation retrieval completed",
		logger.Int64("retrieved", retrieved.Load()),
		logger.Int64("failed", failed.Load()))
	return out
}
