package actions

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/calermo/seo-manager/pkg/log"
)

const defaultErrorMessage = "Action failed"

// Queue executes background actions strictly one at a time, in FIFO order,
// each to settlement before the next starts. The single lane exists so two
// queued writes to overlapping remote state cannot race: interleaving is
// bounded to ordering-by-enqueue.
type Queue struct {
	notifier *Notifier

	mu        sync.Mutex
	cond      *sync.Cond
	pending   []PendingAction
	idCounter uint64
	stopped   bool

	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewQueue(notifier *Notifier) *Queue {
	q := &Queue{notifier: notifier}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue appends an action and returns its id. Never blocks.
func (q *Queue) Enqueue(action PendingAction) string {
	if action.ID == "" {
		action.ID = fmt.Sprintf("action-%d", atomic.AddUint64(&q.idCounter, 1))
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		log.Warn("Dropping action %s enqueued after queue stop", action.ID)
		return action.ID
	}
	q.pending = append(q.pending, action)
	q.mu.Unlock()
	q.cond.Signal()
	return action.ID
}

// Len reports the number of actions not yet settled.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop drains nothing: queued actions not yet started are discarded. The
// action currently running settles normally.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		q.cond.Signal()
		q.wg.Wait()
	})
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped {
			q.mu.Unlock()
			return
		}
		action := q.pending[0]
		q.mu.Unlock()

		q.run(action)

		// Remove only after settlement so Len reflects in-flight work.
		q.mu.Lock()
		if len(q.pending) > 0 && q.pending[0].ID == action.ID {
			q.pending = q.pending[1:]
		}
		q.mu.Unlock()
	}
}

// run settles a single action. A failure is isolated: the hooks and
// notification fire, then the worker moves on to the next action.
func (q *Queue) run(action PendingAction) {
	result, err := action.Op(context.Background())
	if err != nil {
		log.Error("Background action %s failed: %v", action.ID, err)
		if action.OnError != nil {
			action.OnError(err)
		}
		message := action.ErrorMessage
		if message == "" {
			message = defaultErrorMessage
		}
		q.notify(message, NotifyError)
		return
	}

	if action.OnSuccess != nil {
		action.OnSuccess(result)
	}
	if action.SuccessMessage != "" {
		q.notify(action.SuccessMessage, NotifySuccess)
	}
}

func (q *Queue) notify(message string, kind NotificationKind) {
	if q.notifier == nil {
		return
	}
	q.notifier.Push(message, kind)
}
