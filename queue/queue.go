package queue

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("queue: backlog is full")
	ErrNilOp     = errors.New("queue: operation is nil")
)

// Op is a unit of work executed once a slot frees up.
type Op func(ctx context.Context) (any, error)

type result struct {
	value any
	err   error
}

type task struct {
	ctx  context.Context
	op   Op
	done chan result
	elem *list.Element
}

// Queue admits at most MaxConcurrent operations at a time and holds the rest
// in FIFO order. A failed operation never blocks the ones behind it and is
// never retried.
type Queue struct {
	mu      sync.Mutex
	pending *list.List
	running int

	limit       int
	maxPending  int
	taskTimeout time.Duration
	log         *zap.Logger

	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	abandoned atomic.Int64
}

// Stats is a snapshot of queue occupancy and lifetime counters.
type Stats struct {
	MaxConcurrent int   `json:"maxConcurrent"`
	Running       int   `json:"running"`
	Pending       int   `json:"pending"`
	Submitted     int64 `json:"submitted"`
	Succeeded     int64 `json:"succeeded"`
	Failed        int64 `json:"failed"`
	Abandoned     int64 `json:"abandoned"`
}

// New builds an idle queue.
func New(opts ...Option) *Queue {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Queue{
		pending:     list.New(),
		limit:       cfg.MaxConcurrent,
		maxPending:  cfg.MaxPending,
		taskTimeout: cfg.TaskTimeout,
		log:         cfg.Logger,
	}
}

// Enqueue schedules op and blocks until it settles or ctx ends. When ctx ends
// while the task is still waiting, the task is withdrawn and never started.
// A running task observes the same ctx.
func (q *Queue) Enqueue(ctx context.Context, op Op) (any, error) {
	if op == nil {
		return nil, ErrNilOp
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := &task{ctx: ctx, op: op, done: make(chan result, 1)}

	q.mu.Lock()
	if q.maxPending > 0 && q.pending.Len() >= q.maxPending {
		q.mu.Unlock()
		return nil, ErrQueueFull
	}
	t.elem = q.pending.PushBack(t)
	q.mu.Unlock()
	q.submitted.Add(1)

	q.dispatch()

	select {
	case r := <-t.done:
		return r.value, r.err
	case <-ctx.Done():
		q.withdraw(t)
		return nil, ctx.Err()
	}
}

// Submit is the typed form of Enqueue.
func Submit[T any](ctx context.Context, q *Queue, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if op == nil {
		return zero, ErrNilOp
	}
	v, err := q.Enqueue(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Stats reports current occupancy.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	running, pending := q.running, q.pending.Len()
	q.mu.Unlock()
	return Stats{
		MaxConcurrent: q.limit,
		Running:       running,
		Pending:       pending,
		Submitted:     q.submitted.Load(),
		Succeeded:     q.succeeded.Load(),
		Failed:        q.failed.Load(),
		Abandoned:     q.abandoned.Load(),
	}
}

// dispatch starts pending tasks in arrival order while slots are free.
func (q *Queue) dispatch() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.running < q.limit && q.pending.Len() > 0 {
		t := q.pending.Remove(q.pending.Front()).(*task)
		t.elem = nil
		if err := t.ctx.Err(); err != nil {
			q.abandoned.Add(1)
			t.done <- result{err: err}
			continue
		}
		q.running++
		go q.run(t)
	}
}

func (q *Queue) run(t *task) {
	ctx := t.ctx
	if q.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.taskTimeout)
		defer cancel()
	}

	v, err := invoke(ctx, t.op)
	if err != nil {
		q.failed.Add(1)
		q.log.Debug("queue: task failed", zap.Error(err))
	} else {
		q.succeeded.Add(1)
	}
	t.done <- result{value: v, err: err}

	q.mu.Lock()
	q.running--
	q.mu.Unlock()
	q.dispatch()
}

func (q *Queue) withdraw(t *task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.elem != nil {
		q.pending.Remove(t.elem)
		t.elem = nil
		q.abandoned.Add(1)
	}
}

func invoke(ctx context.Context, op Op) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: task panicked: %v", r)
		}
	}()
	return op(ctx)
}
