// Package workers provides a goroutine pool for evaluating many entities
// in parallel. Evaluations are independent per (entity, as-of) pair, so the
// pool needs no coordination beyond fan-out and ordered collection.
package workers

import (
	"sync"

	"github.com/aristath/insight/internal/evaluation"
)

// ProgressFunc is called after each completed evaluation with the number
// done and the total. Calls may arrive from multiple goroutines.
type ProgressFunc func(done, total int)

// WorkerPool manages a pool of worker goroutines for parallel entity
// evaluation.
type WorkerPool struct {
	numWorkers int
	evaluator  *evaluation.Evaluator
}

// NewWorkerPool creates a pool driving the given evaluator. Non-positive
// sizes default to 10 workers.
func NewWorkerPool(numWorkers int, evaluator *evaluation.Evaluator) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 10
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		evaluator:  evaluator,
	}
}

// EvaluateBatch evaluates all requests in parallel and returns the reports
// in input order. An optional progress callback is invoked once per
// finished request.
func (wp *WorkerPool) EvaluateBatch(requests []evaluation.Request, progress ProgressFunc) []*evaluation.Report {
	total := len(requests)
	if total == 0 {
		return []*evaluation.Report{}
	}

	jobs := make(chan jobItem, total)
	results := make(chan resultItem, total)

	workers := wp.numWorkers
	if total < workers {
		workers = total
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- resultItem{
					index:  job.index,
					report: wp.evaluator.Evaluate(job.request),
				}
			}
		}()
	}

	for idx, req := range requests {
		jobs <- jobItem{index: idx, request: req}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	reports := make([]*evaluation.Report, total)
	done := 0
	for result := range results {
		reports[result.index] = result.report
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	return reports
}

type jobItem struct {
	index   int
	request evaluation.Request
}

type resultItem struct {
	index  int
	report *evaluation.Report
}
