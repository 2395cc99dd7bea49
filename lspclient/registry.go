package lspclient

import (
	"sync"
	"time"
)

// outcome is the single value delivered to a waiting caller: the matched
// response message, or the failure that abandoned the wait.
type outcome struct {
	msg *Message
	err error
}

// pending is one in-flight request slot. The channel is buffered so the
// resolver never blocks on a caller that already gave up.
type pending struct {
	ch       chan outcome
	deadline time.Time
}

// registry maps outstanding request ids to their pending slots. It is mutated
// from the calling side (register) and the router (resolve/fail), so every
// map access holds the mutex. An entry is removed under the same lock that
// fulfills it, which makes resolution first-writer-wins: a timeout sweep and
// a late response cannot both deliver.
type registry struct {
	mu      sync.Mutex
	entries map[int64]*pending
	tracer  Tracer

	done      chan struct{}
	closeOnce sync.Once
}

// sweepInterval bounds how late after its deadline a request can resolve
// with ErrTimeout.
const sweepInterval = 10 * time.Millisecond

func newRegistry(tracer Tracer) *registry {
	r := &registry{
		entries: make(map[int64]*pending),
		tracer:  tracer,
		done:    make(chan struct{}),
	}
	go r.sweep()
	return r
}

// register creates a pending slot for id. A zero deadline means no timeout.
func (r *registry) register(id int64, deadline time.Time) (<-chan outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return nil, ErrDuplicateID
	}
	p := &pending{ch: make(chan outcome, 1), deadline: deadline}
	r.entries[id] = p
	return p.ch, nil
}

// resolve fulfills the pending entry for id with a response. A response with
// no registered waiter is dropped and traced, not an error: the caller may
// have timed out or abandoned the wait moments earlier.
func (r *registry) resolve(id int64, msg *Message) {
	r.mu.Lock()
	p, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		r.tracer.Tracef("dropping response for id %d: no pending request", id)
		return
	}
	p.ch <- outcome{msg: msg}
}

// fail fulfills the pending entry for id with an error and removes it.
func (r *registry) fail(id int64, err error) {
	r.mu.Lock()
	p, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if ok {
		p.ch <- outcome{err: err}
	}
}

// abandonAll fulfills every still-pending entry with err. Used on connection
// closure and explicit shutdown so no caller is left hanging.
func (r *registry) abandonAll(err error) {
	r.mu.Lock()
	abandoned := r.entries
	r.entries = make(map[int64]*pending)
	r.mu.Unlock()

	for id, p := range abandoned {
		r.tracer.Tracef("abandoning pending request %d: %v", id, err)
		p.ch <- outcome{err: err}
	}
}

// pendingCount reports how many requests are in flight.
func (r *registry) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sweep fulfills expired entries with ErrTimeout.
func (r *registry) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			var expired []*pending
			var ids []int64
			r.mu.Lock()
			for id, p := range r.entries {
				if !p.deadline.IsZero() && now.After(p.deadline) {
					delete(r.entries, id)
					expired = append(expired, p)
					ids = append(ids, id)
				}
			}
			r.mu.Unlock()
			for i, p := range expired {
				r.tracer.Tracef("request %d timed out", ids[i])
				p.ch <- outcome{err: ErrTimeout}
			}
		}
	}
}

// close stops the sweep goroutine. Pending entries are not touched; callers
// abandon them separately.
func (r *registry) close() {
	r.closeOnce.Do(func() { close(r.done) })
}
