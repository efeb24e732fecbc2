package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Submit when the job queue has no room.
var ErrQueueFull = errors.New("job queue full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("dispatcher stopped")

// ErrNotRunning is returned by Submit before Run.
var ErrNotRunning = errors.New("dispatcher not running")

// Job represents a unit of work to be executed.
type Job interface {
	Execute(ctx context.Context) error
	ID() string
}

// Worker pulls jobs from its own channel after registering it with the pool.
type Worker struct {
	ID         int
	WorkerPool chan chan Job // A pool of channels, used to register this worker's job channel
	JobChannel chan Job
	Quit       chan bool
	Wg         *sync.WaitGroup
	log        *logrus.Entry
	done       func()
}

// NewWorker creates a new Worker.
func NewWorker(id int, workerPool chan chan Job, wg *sync.WaitGroup, log *logrus.Entry, done func()) Worker {
	return Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Quit:       make(chan bool),
		Wg:         wg,
		log:        log.WithField("worker", id),
		done:       done,
	}
}

// Start makes the Worker listen for jobs on its JobChannel.
func (w Worker) Start(ctx context.Context) {
	w.Wg.Add(1)
	go func() {
		defer w.Wg.Done()
		for {
			// Register the current worker's JobChannel to the worker pool.
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.run(ctx, job)
			case <-w.Quit:
				w.log.Debug("worker stopping")
				return
			}
		}
	}()
}

func (w Worker) run(ctx context.Context, job Job) {
	defer w.done()
	entry := w.log.WithField("job_id", job.ID())
	entry.Debug("job started")
	if err := job.Execute(ctx); err != nil {
		entry.WithError(err).Warn("job failed")
		return
	}
	entry.Debug("job finished")
}

// Stop signals the worker to stop processing new jobs.
func (w Worker) Stop() {
	go func() {
		w.Quit <- true
	}()
}

// Dispatcher manages a pool of workers and dispatches jobs to them.
type Dispatcher struct {
	MaxWorkers int
	WorkerPool chan chan Job
	JobQueue   chan Job
	Workers    []Worker
	Wg         sync.WaitGroup
	Quit       chan bool

	log      *logrus.Entry
	inflight sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// NewDispatcher creates a new Dispatcher. A nil logger falls back to the
// logrus standard logger.
func NewDispatcher(maxWorkers, jobQueueSize int, logger *logrus.Logger) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if jobQueueSize < 0 {
		jobQueueSize = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		MaxWorkers: maxWorkers,
		WorkerPool: make(chan chan Job, maxWorkers),
		JobQueue:   make(chan Job, jobQueueSize),
		Workers:    make([]Worker, 0, maxWorkers),
		Quit:       make(chan bool),
		log:        logger.WithField("component", "dispatcher"),
	}
}

// Run starts the dispatcher and its workers. ctx is handed to every job.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.stopped {
		return
	}
	d.running = true
	d.log.WithField("workers", d.MaxWorkers).Debug("dispatcher starting")
	for i := 1; i <= d.MaxWorkers; i++ {
		worker := NewWorker(i, d.WorkerPool, &d.Wg, d.log, d.inflight.Done)
		d.Workers = append(d.Workers, worker)
		worker.Start(ctx)
	}
	go d.dispatch()
}

// dispatch listens to the JobQueue and sends jobs to available workers.
func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.JobQueue:
			jobChannel := <-d.WorkerPool
			jobChannel <- job
		case <-d.Quit:
			return
		}
	}
}

// Submit queues job without blocking. Run must have been called.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	if !d.running {
		return ErrNotRunning
	}
	d.inflight.Add(1)
	select {
	case d.JobQueue <- job:
		return nil
	default:
		d.inflight.Done()
		d.log.WithField("job_id", job.ID()).Warn("job queue full")
		return ErrQueueFull
	}
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// Stop waits for queued jobs, then shuts down the dispatcher and its workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	running := d.running
	d.mu.Unlock()
	if !running {
		return
	}

	d.inflight.Wait()
	d.Quit <- true
	for _, worker := range d.Workers {
		worker.Stop()
	}
	d.Wg.Wait()
	d.log.Debug("dispatcher stopped")
}
