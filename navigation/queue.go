package navigation

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var _ Navigator = (*Queue)(nil)

// Queue records navigation commands until the UI drains them. A reset
// identical to the previous pending command is dropped, so the guard and a
// flow resetting to the same screen produce one transition.
type Queue struct {
	mu      sync.Mutex
	pending []Command
	notify  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

func (q *Queue) Reset(screen Screen) {
	q.push(Command{Kind: KindReset, Screen: screen})
}

func (q *Queue) Navigate(screen Screen) {
	q.push(Command{Kind: KindNavigate, Screen: screen})
}

func (q *Queue) Replace(screen Screen) {
	q.push(Command{Kind: KindReplace, Screen: screen})
}

// Drain returns the pending commands in issue order and empties the queue.
func (q *Queue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.pending
	q.pending = nil
	return drained
}

// Pending returns a copy of the queued commands without removing them.
func (q *Queue) Pending() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Command(nil), q.pending...)
}

// Notify is signalled whenever a command is queued.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

func (q *Queue) push(command Command) {
	if !command.Screen.Valid() {
		log.Warn().Str("screen", string(command.Screen)).Msg("navigation: unknown screen ignored")
		return
	}

	q.mu.Lock()
	if command.Kind == KindReset && len(q.pending) > 0 && q.pending[len(q.pending)-1] == command {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, command)
	q.mu.Unlock()

	log.Debug().Stringer("command", command).Msg("navigation: queued")
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
