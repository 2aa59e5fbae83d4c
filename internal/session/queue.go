package session

import "sync"

// ByteQueue holds the packets waiting to be sent to a session on its next
// request.
type ByteQueue struct {
	mu  sync.Mutex
	buf []byte
}

func (q *ByteQueue) Append(packets ...[]byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range packets {
		q.buf = append(q.buf, p...)
	}
}

// Drain empties the queue and returns its previous contents.
func (q *ByteQueue) Drain() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.buf
	q.buf = nil
	return out
}

func (q *ByteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}
