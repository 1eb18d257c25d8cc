package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrQueueShutdown is reported to tasks enqueued after Shutdown.
var ErrQueueShutdown = errors.New("request queue is shut down")

// Executor performs a single upstream request and returns the raw response body.
type Executor interface {
	Execute(ctx context.Context, request Request) ([]byte, error)
}

// Task is a unit of work for the Queue. The response body is decoded into Into
// and Done is called exactly once with the outcome.
type Task struct {
	Context context.Context
	Request Request
	Into    interface{}
	Done    func(error)
}

// Queue runs tasks with a fixed number of workers. Tasks start in the order
// they were enqueued; they finish in whatever order the upstream answers.
type Queue struct {
	executor Executor
	metrics  *Metrics
	logger   *logrus.Entry

	lock     sync.Mutex
	cond     *sync.Cond
	pending  []*Task
	shutdown bool
	workers  sync.WaitGroup
}

// NewQueue starts a queue that executes at most concurrency tasks at a time.
// metrics may be nil.
func NewQueue(concurrency int, executor Executor, metrics *Metrics, logger *logrus.Entry) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	if metrics == nil {
		metrics = NewMetrics("")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	q := &Queue{
		executor: executor,
		metrics:  metrics,
		logger:   logger.WithField("component", "request-queue"),
	}
	q.cond = sync.NewCond(&q.lock)
	for i := 0; i < concurrency; i++ {
		q.workers.Add(1)
		go q.work()
	}
	return q
}

// Enqueue hands the task to the queue. It never blocks on upstream work.
func (q *Queue) Enqueue(task *Task) {
	q.lock.Lock()
	if q.shutdown {
		q.lock.Unlock()
		if task.Done != nil {
			task.Done(ErrQueueShutdown)
		}
		return
	}
	q.pending = append(q.pending, task)
	q.metrics.Pending.Inc()
	q.lock.Unlock()
	q.cond.Signal()
}

// Shutdown stops accepting tasks, lets the workers drain what is pending and
// waits for them to exit.
func (q *Queue) Shutdown() {
	q.lock.Lock()
	q.shutdown = true
	q.lock.Unlock()
	q.cond.Broadcast()
	q.workers.Wait()
}

func (q *Queue) next() (*Task, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	for len(q.pending) == 0 && !q.shutdown {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return nil, false
	}
	task := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.metrics.Pending.Dec()
	return task, true
}

func (q *Queue) work() {
	defer q.workers.Done()
	for {
		task, ok := q.next()
		if !ok {
			return
		}
		q.run(task)
	}
}

func (q *Queue) run(task *Task) {
	start := time.Now()
	resource := task.Request.Resource
	ctx := task.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// a caller that already gave up does not get to hold a slot
	err := ctx.Err()
	if err == nil {
		q.metrics.InFlight.Inc()
		var body []byte
		body, err = q.executor.Execute(ctx, task.Request)
		if err == nil && task.Into != nil {
			if decodeErr := json.Unmarshal(body, task.Into); decodeErr != nil {
				err = fmt.Errorf("failed to decode %s response: %w", resource, decodeErr)
			}
		}
		q.metrics.InFlight.Dec()
		q.metrics.RequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	q.metrics.Requests.WithLabelValues(resource, outcome).Inc()

	if task.Done != nil {
		task.Done(err)
	}

	logger := q.logger.WithFields(logrus.Fields{
		"resource": resource,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		logger = logger.WithError(err)
	}
	logger.Debug("queue processed")
}
