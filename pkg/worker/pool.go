// Package worker runs fire-and-forget jobs on a bounded set of goroutines.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Job represents a unit of work for the pool.
type Job struct {
	// Name is used for logging only.
	Name    string
	Execute func(ctx context.Context) error
}

// Config sizes a Pool.
type Config struct {
	MaxWorkers int
	QueueSize  int
	// JobTimeout bounds a single Execute call. Zero means 30s.
	JobTimeout time.Duration
}

// Pool manages a bounded set of workers processing jobs from a queue.
// Submit never blocks: a full queue drops the job.
type Pool struct {
	name     string
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
	metrics  *poolMetrics
	config   Config
	mu       sync.Mutex
	running  bool
}

type poolMetrics struct {
	queueDepth    prometheus.Gauge
	activeWorkers prometheus.Gauge
	completedJobs prometheus.Counter
	droppedJobs   prometheus.Counter
	errorCount    prometheus.Counter
	jobDuration   prometheus.Histogram
}

func newPoolMetrics(name string, reg prometheus.Registerer) *poolMetrics {
	labels := prometheus.Labels{"pool": name}
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "worker_pool_queue_depth",
			Help:        "Current number of jobs waiting in queue",
			ConstLabels: labels,
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "worker_pool_active_workers",
			Help:        "Current number of workers processing jobs",
			ConstLabels: labels,
		}),
		completedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "worker_pool_completed_jobs_total",
			Help:        "Total number of completed jobs",
			ConstLabels: labels,
		}),
		droppedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "worker_pool_dropped_jobs_total",
			Help:        "Total number of jobs dropped due to full queue",
			ConstLabels: labels,
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "worker_pool_errors_total",
			Help:        "Total number of job execution errors",
			ConstLabels: labels,
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "worker_pool_job_duration_seconds",
			Help:        "Time taken to execute jobs",
			ConstLabels: labels,
			Buckets:     []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queueDepth, m.activeWorkers, m.completedJobs, m.droppedJobs, m.errorCount, m.jobDuration)
	}
	return m
}

// NewPool creates a pool. reg may be nil to skip metric registration.
// The pool must be started with Start before jobs run.
func NewPool(name string, cfg Config, log *zap.Logger, reg prometheus.Registerer) *Pool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		name:     name,
		jobQueue: make(chan Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
		log:      log.Named(name),
		metrics:  newPoolMetrics(name, reg),
		config:   cfg,
	}
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Warn("Worker pool already running")
		return
	}
	p.running = true

	p.log.Info("Starting worker pool",
		zap.Int("maxWorkers", p.config.MaxWorkers),
		zap.Int("queueSize", p.config.QueueSize))

	for i := 0; i < p.config.MaxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.executeJob(id, job)
		}
	}
}

func (p *Pool) executeJob(workerID int, job Job) {
	p.metrics.activeWorkers.Inc()
	p.metrics.queueDepth.Dec()
	defer p.metrics.activeWorkers.Dec()

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(p.ctx, p.config.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Job panicked",
				zap.String("job", job.Name),
				zap.Int("workerId", workerID),
				zap.Any("panic", r))
			p.metrics.errorCount.Inc()
		}
	}()

	if err := job.Execute(jobCtx); err != nil {
		p.log.Warn("Job execution failed",
			zap.String("job", job.Name),
			zap.Int("workerId", workerID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		p.metrics.errorCount.Inc()
	} else {
		p.log.Debug("Job completed",
			zap.String("job", job.Name),
			zap.Int("workerId", workerID),
			zap.Duration("duration", time.Since(start)))
	}

	p.metrics.jobDuration.Observe(time.Since(start).Seconds())
	p.metrics.completedJobs.Inc()
}

// Submit queues a job. Returns false if the pool is stopped or the queue is
// full. Safe to call from multiple goroutines.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.log.Warn("Job dropped - pool not running", zap.String("job", job.Name))
		return false
	}

	select {
	case p.jobQueue <- job:
		p.metrics.queueDepth.Inc()
		return true
	default:
		p.metrics.droppedJobs.Inc()
		p.log.Warn("Job dropped - queue full",
			zap.String("job", job.Name),
			zap.Int("queueSize", p.config.QueueSize))
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued and in-flight jobs until
// ctx expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.jobQueue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.log.Info("Worker pool shutdown complete")
		return nil
	case <-ctx.Done():
		p.cancel()
		p.log.Warn("Worker pool shutdown timed out")
		return ctx.Err()
	}
}

// QueueDepth returns the number of jobs waiting in the queue.
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}
