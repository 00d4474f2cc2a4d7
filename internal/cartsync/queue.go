package cartsync

import (
	"fmt"
	"sync"

	"github.com/mirabelleshop/cart-backend/pkg/enums"
	"github.com/mirabelleshop/cart-backend/pkg/metrics"
)

// defaultQueueBuffer bounds how many mutations of one kind may wait for the
// network before enqueueing blocks the caller.
const defaultQueueBuffer = 64

type queueTask struct {
	run func() error
	res chan error
}

// opQueue serializes the network calls of one mutation kind: a queued task's
// call does not start until the previous task of the same kind has settled.
// Queues of different kinds are independent and may interleave on the wire.
type opQueue struct {
	kind    enums.MutationKind
	metrics *metrics.CartSyncMetrics

	mu     sync.Mutex
	closed bool
	tasks  chan queueTask
	done   chan struct{}
}

func newOpQueue(kind enums.MutationKind, buffer int, m *metrics.CartSyncMetrics) *opQueue {
	if buffer <= 0 {
		buffer = defaultQueueBuffer
	}
	q := &opQueue{
		kind:    kind,
		metrics: m,
		tasks:   make(chan queueTask, buffer),
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *opQueue) loop() {
	defer close(q.done)
	for task := range q.tasks {
		q.metrics.SetQueueDepth(q.kind.String(), len(q.tasks))
		task.res <- task.run()
	}
	q.metrics.SetQueueDepth(q.kind.String(), 0)
}

// enqueue appends a task and returns the channel its settlement error will
// arrive on. The task runs strictly after every previously enqueued task of
// this kind has settled.
func (q *opQueue) enqueue(run func() error) (<-chan error, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, fmt.Errorf("%s queue is closed", q.kind)
	}
	res := make(chan error, 1)
	q.tasks <- queueTask{run: run, res: res}
	q.metrics.SetQueueDepth(q.kind.String(), len(q.tasks))
	return res, nil
}

// close stops accepting tasks and waits for queued ones to settle.
func (q *opQueue) close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("%s queue already closed", q.kind)
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
	return nil
}
