package loadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cinerank/pkg/logger"
)

// submitEvents posts events with a worker pool. The returned slice holds the
// outcome of each event by index.
func submitEvents(ctx context.Context, config *Config, client *Client, events []Event, stats *Stats) []outcome {
	log := logger.Get()
	log.Info(ctx, "submitting events", logger.Int("events", len(events)), logger.Int("workers", config.Workers))

	outcomes := make([]outcome, len(events))
	var (
		submitted  atomic.Int64
		accepted   atomic.Int64
		duplicate  atomic.Int64
		throttled  atomic.Int64
		failed     atomic.Int64
		lastReport atomic.Int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					outcomes[index] = outcomeFailed
					failed.Add(1)
					continue
				}

				res, err := client.SubmitRating(ctx, events[index])
				outcomes[index] = res
				submitted.Add(1)
				switch res {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeThrottled:
					throttled.Add(1)
				default:
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "rating submission failed",
							logger.String("eventID", events[index].EventID), logger.Error(err))
					}
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(ProgressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "submission progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int("total", len(events)),
						logger.Int64("accepted", accepted.Load()),
						logger.Int64("duplicate", duplicate.Load()),
						logger.Int64("throttled", throttled.Load()),
						logger.Int64("failed", failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range events {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.EventsAccepted = int(accepted.Load())
	stats.EventsDuplicate = int(duplicate.Load())
	stats.EventsThrottled = int(throttled.Load())
	stats.EventsFailed = int(failed.Load())

	log.Info(ctx, "event submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("throttled", stats.EventsThrottled),
		logger.Int("failed", stats.EventsFailed),
		logger.String("breaker", client.BreakerState()))
	return outcomes
}

// waitForProcessing polls /stats until the accepted ratings have been applied
// or the wait times out. It returns false on timeout.
func waitForProcessing(ctx context.Context, client *Client, baseline int64, accepted int, timeout time.Duration) bool {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(ProcessingPollPeriod)
	defer ticker.Stop()
	target := baseline + int64(accepted)
	for {
		s, err := client.Stats(ctx)
		if err == nil && s.RatingsApplied >= target && s.QueueLength == 0 {
			log.Info(ctx, "ratings processed", logger.Int64("applied", s.RatingsApplied-baseline))
			return true
		}
		select {
		case <-ctx.Done():
			log.Warn(ctx, "timed out waiting for ratings to apply",
				logger.Int64("target", target), logger.Int64("applied", s.RatingsApplied))
			return false
		case <-ticker.C:
		}
	}
}
