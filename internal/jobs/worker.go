package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/estatedesk/estatedesk-api/pkg/logger"
)

// Job is a background task. Jobs are named so the log lines from the
// scheduler identify what ran.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Worker manages background jobs and scheduled tasks
type Worker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	queue   chan Job
	stats   WorkerStats
	statsMu sync.RWMutex
}

// WorkerStats holds statistics about the worker. FinishedJobs counts every
// job that ran to the end; FailedJobs is the subset that returned an error
// or panicked.
type WorkerStats struct {
	ActiveJobs   int   `json:"active_jobs"`
	FinishedJobs int64 `json:"finished_jobs"`
	FailedJobs   int64 `json:"failed_jobs"`
	QueueLength  int   `json:"queue_length"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan Job, 100),
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool. A full queue runs
// the job synchronously rather than dropping it.
func (w *Worker) Enqueue(job Job) {
	select {
	case w.queue <- job:
	default:
		logger.Warn("Worker queue full, running job synchronously", "job", job.Name)
		w.run(job)
	}
}

// process handles jobs from the queue
func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			logger.Debug("Job picked up", "worker", workerID, "job", job.Name)
			w.run(job)
		}
	}
}

func (w *Worker) run(job Job) {
	w.trackStart()
	defer w.trackEnd()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panic", "job", job.Name, "panic", r)
			w.trackFailure()
		}
	}()

	start := time.Now()
	if err := job.Run(w.ctx); err != nil {
		logger.Error("Job failed", "job", job.Name, "error", err)
		w.trackFailure()
		return
	}
	logger.Info("Job completed", "job", job.Name, "elapsed", time.Since(start))
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after
// the interval, not at startup.
func (w *Worker) ScheduleEvery(interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run(job)
			}
		}
	}()
}

// ScheduleDailyAt runs a job once per day at the given UTC hour. The sweep
// jobs use this so a restart mid-day does not trigger an extra run.
func (w *Worker) ScheduleDailyAt(hourUTC int, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			next := nextRunAt(time.Now().UTC(), hourUTC)
			timer := time.NewTimer(time.Until(next))

			select {
			case <-w.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				w.run(job)
			}
		}
	}()
}

func nextRunAt(now time.Time, hourUTC int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Shutdown gracefully stops all workers
func (w *Worker) Shutdown() {
	w.cancel()
	close(w.queue)
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	return stats
}

func (w *Worker) trackStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) trackEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.FinishedJobs++
}

func (w *Worker) trackFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
