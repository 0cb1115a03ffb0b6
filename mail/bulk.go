package mail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitmesh/newsletter"
)

// Bulk send defaults: five in-flight sends per batch, 100ms pause between
// batches to stay under transport rate limits.
const (
	DefaultConcurrency     = 5
	DefaultInterBatchDelay = 100 * time.Millisecond
)

// BulkFailure pairs a failed message with its error
type BulkFailure struct {
	Params *newsletter.SendEmailParams
	Err    error
}

// BulkResult aggregates a bulk run. Order within each list follows
// completion, not input order.
type BulkResult struct {
	Successful []*newsletter.SendResult
	Failed     []BulkFailure
}

// BulkCampaignRunner fans a list of sends through a RetryingSender in
// consecutive batches of bounded concurrency. Batch N+1 does not start
// until batch N has fully settled plus the inter-batch delay. Individual
// sends retry per the sender's policy; whole batches never do.
type BulkCampaignRunner struct {
	sender          *RetryingSender
	concurrency     int
	interBatchDelay time.Duration
	logger          zerolog.Logger

	sleep func(time.Duration)
}

// NewBulkCampaignRunner returns a runner. Non-positive concurrency or a
// negative delay fall back to the defaults.
func NewBulkCampaignRunner(sender *RetryingSender, concurrency int, interBatchDelay time.Duration, logger zerolog.Logger) *BulkCampaignRunner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if interBatchDelay < 0 {
		interBatchDelay = DefaultInterBatchDelay
	}
	return &BulkCampaignRunner{
		sender:          sender,
		concurrency:     concurrency,
		interBatchDelay: interBatchDelay,
		logger:          logger,
		sleep:           time.Sleep,
	}
}

// SendBulk runs all sends to completion and reports every outcome.
// It never returns early on partial failure.
func (r *BulkCampaignRunner) SendBulk(ctx context.Context, paramsList []*newsletter.SendEmailParams) *BulkResult {
	result := &BulkResult{}
	var mu sync.Mutex

	for start := 0; start < len(paramsList); start += r.concurrency {
		end := start + r.concurrency
		if end > len(paramsList) {
			end = len(paramsList)
		}
		batch := paramsList[start:end]

		var wg sync.WaitGroup
		for _, params := range batch {
			wg.Add(1)
			go func(p *newsletter.SendEmailParams) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						mu.Lock()
						result.Failed = append(result.Failed, BulkFailure{
							Params: p,
							Err:    fmt.Errorf("send panicked: %v", rec),
						})
						mu.Unlock()
					}
				}()

				sendResult := r.sender.Send(ctx, p)

				mu.Lock()
				defer mu.Unlock()
				if sendResult.Success {
					result.Successful = append(result.Successful, sendResult)
				} else {
					result.Failed = append(result.Failed, BulkFailure{
						Params: p,
						Err:    sendResult.Err,
					})
				}
			}(params)
		}
		wg.Wait()

		r.logger.Debug().
			Int("batch_size", len(batch)).
			Int("sent", len(result.Successful)).
			Int("failed", len(result.Failed)).
			Msg("bulk batch settled")

		if end < len(paramsList) {
			r.sleep(r.interBatchDelay)
		}
	}

	return result
}
