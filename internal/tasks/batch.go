package tasks

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// DefaultRequestsPerSecond paces batches against the free-tier service.
const DefaultRequestsPerSecond = 0.5

// BatchItem is the outcome of one URL in a batch.
type BatchItem struct {
	Index    int
	URL      string
	Snapshot Snapshot
	Err      error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Items     []BatchItem
	Succeeded int
	Failed    int
}

// BatchRunner processes several URLs one after another through a single [Controller].
type BatchRunner struct {
	controller *Controller
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewBatchRunner creates a runner issuing at most rps requests per second. rps <= 0 selects [DefaultRequestsPerSecond].
func NewBatchRunner(c *Controller, rps float64) *BatchRunner {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &BatchRunner{
		controller: c,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     c.logger,
	}
}

// Run processes urls in order, calling each (if set) after every URL finishes.
//
// Failures of individual URLs are collected; Run stops early only when ctx ends or a URL is cancelled.
func (b *BatchRunner) Run(ctx context.Context, urls []string, each func(BatchItem)) (*BatchResult, error) {
	result := &BatchResult{Items: make([]BatchItem, 0, len(urls))}

	for i, url := range urls {
		if err := b.limiter.Wait(ctx); err != nil {
			return result, err
		}

		err := b.controller.Process(ctx, url)
		item := BatchItem{Index: i, URL: url, Snapshot: b.controller.Snapshot(), Err: err}
		result.Items = append(result.Items, item)

		if err != nil {
			result.Failed++
			b.logger.Warn("batch item failed", "index", i+1, "total", len(urls), "url", url, "error", err)
		} else {
			result.Succeeded++
			b.logger.Debug("batch item complete", "index", i+1, "total", len(urls), "url", url)
		}

		if each != nil {
			each(item)
		}

		if errors.Is(err, ErrCancelled) {
			return result, err
		}
	}
	return result, nil
}
