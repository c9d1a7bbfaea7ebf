// Package queue holds rendered print jobs until the printer fetches them.
package queue

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Queue is an in-memory FIFO of print jobs keyed by opaque token.
// Jobs are never persisted; a restart starts empty.
type Queue struct {
	mu      sync.Mutex
	jobs    map[string][]byte
	pending []string
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{jobs: make(map[string][]byte)}
}

// Enqueue stores a copy of data under a fresh random token and appends the
// token to the pending list.
func (q *Queue) Enqueue(data []byte) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := id.String()

	buf := make([]byte, len(data))
	copy(buf, data)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[token] = buf
	q.pending = append(q.pending, token)
	return token, nil
}

// PeekFirst returns the oldest pending token without removing it.
func (q *Queue) PeekFirst() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return "", false
	}
	return q.pending[0], true
}

// TakeByToken removes and returns the job for token. Only that token is
// removed, wherever it sits in the pending list. A second take of the same
// token reports false.
func (q *Queue) TakeByToken(token string) ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, ok := q.jobs[token]
	if !ok {
		return nil, false
	}
	idx := -1
	for i, t := range q.pending {
		if t == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	delete(q.jobs, token)
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	return data, true
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Pending returns a snapshot of pending tokens, oldest first.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.pending))
	copy(out, q.pending)
	return out
}
