package prober

import (
	"context"
	"fmt"
	"sync"
	"time"

	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
)

// ProbeJob asks for the pixel dimensions of one candidate image
type ProbeJob struct {
	Index int
	URL   string
}

// ProbeResult reports the outcome of a ProbeJob
type ProbeResult struct {
	Job      ProbeJob
	Width    int
	Height   int
	Error    error
	Duration time.Duration
}

// DimensionProber measures an image without keeping its bytes
type DimensionProber interface {
	Probe(ctx context.Context, url string) (width, height int, err error)
}

// WorkerPool runs probe jobs on a fixed number of workers. Every submitted
// job produces exactly one result.
type WorkerPool struct {
	numWorkers  int
	timeout     time.Duration
	jobQueue    chan ProbeJob
	resultQueue chan ProbeResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	prober      DimensionProber
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
	stopOnce    sync.Once
}

// NewWorkerPool creates a pool bound to ctx. timeout bounds each probe; zero
// leaves only ctx in charge.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	timeout time.Duration,
	prober DimensionProber,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		timeout:     timeout,
		jobQueue:    make(chan ProbeJob, numWorkers*2),
		resultQueue: make(chan ProbeResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		prober:      prober,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart(wp.logger, "probe_pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
		"timeout":     wp.timeout,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for in-flight jobs to report and then
// closes the result channel. Safe to call more than once.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobQueue)
		wp.wg.Wait()
		close(wp.resultQueue)
		wp.cancel()
		logger.LogComponentStop(wp.logger, "probe_pool", "drained")
	})
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job ProbeJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("probe pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the channel of finished jobs, closed by Stop
func (wp *WorkerPool) Results() <-chan ProbeResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	// Jobs keep draining after cancellation so each one still reports;
	// the cancelled context makes them fail fast.
	for job := range wp.jobQueue {
		wp.resultQueue <- wp.processJob(job, id)
	}
}

func (wp *WorkerPool) processJob(job ProbeJob, workerID int) ProbeResult {
	start := time.Now()
	result := ProbeResult{Job: job}

	ctx := wp.ctx
	if wp.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.timeout)
		defer cancel()
	}

	if err := wp.rateLimiter.Wait(ctx); err != nil {
		result.Error = fmt.Errorf("rate limit wait: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Width, result.Height, result.Error = wp.prober.Probe(ctx, job.URL)
	result.Duration = time.Since(start)

	if result.Error != nil {
		wp.logger.DebugWithFields("probe failed", map[string]interface{}{
			"worker_id": workerID,
			"url":       job.URL,
			"error":     result.Error.Error(),
			"duration":  result.Duration,
		})
		return result
	}

	wp.logger.DebugWithFields("probe completed", map[string]interface{}{
		"worker_id": workerID,
		"url":       job.URL,
		"width":     result.Width,
		"height":    result.Height,
		"duration":  result.Duration,
	})
	return result
}

// Run submits every url, waits for all of them to report and returns the
// results indexed like urls.
func Run(ctx context.Context, urls []string, workers int, timeout time.Duration, prober DimensionProber, limiter ratelimit.Limiter, log logger.Logger) []ProbeResult {
	if len(urls) == 0 {
		return nil
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	pool := NewWorkerPool(ctx, workers, timeout, prober, limiter, log)
	pool.Start()

	results := make([]ProbeResult, len(urls))
	for i, u := range urls {
		results[i] = ProbeResult{Job: ProbeJob{Index: i, URL: u}, Error: context.Canceled}
	}

	go func() {
		defer pool.Stop()
		for i, u := range urls {
			if err := pool.Submit(ProbeJob{Index: i, URL: u}); err != nil {
				return
			}
		}
	}()

	for res := range pool.Results() {
		results[res.Job.Index] = res
	}
	return results
}
