// Package stream implements the Stream Registry: the set of open,
// baton-addressed execution contexts a client keeps alive across multiple
// HTTP requests. Batons are single-use rotating tokens (spec §5), and idle
// streams are reclaimed both lazily on lookup and by a periodic sweep, the
// same two-layer eviction shape as an in-memory TTL cache.
package stream

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Stream is one open execution context: its stored SQL texts (by id, for
// the store_sql/close_sql operations) and the timestamp used for idle
// eviction.
type Stream struct {
	mu         sync.Mutex
	storedSQL  map[int64]string
	lastUsed   time.Time
	autocommit bool
}

func newStream() *Stream {
	return &Stream{
		storedSQL:  make(map[int64]string),
		lastUsed:   time.Now(),
		autocommit: true,
	}
}

// StoreSQL records a SQL text under the client-supplied id, last-write-wins
// on reuse of an id.
func (s *Stream) StoreSQL(id int64, sql string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storedSQL[id] = sql
}

// SQL resolves a previously stored SQL text.
func (s *Stream) SQL(id int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sql, ok := s.storedSQL[id]
	return sql, ok
}

// CloseSQL forgets a previously stored SQL text.
func (s *Stream) CloseSQL(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.storedSQL, id)
}

// Autocommit reports the stream's autocommit flag as last set by
// SetAutocommit. The pipeline's get_autocommit request does not read it:
// the backend itself always runs in autocommit.
func (s *Stream) Autocommit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autocommit
}

// SetAutocommit updates the autocommit flag after transaction-control
// statements are observed (see internal/executor's classification).
func (s *Stream) SetAutocommit(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autocommit = v
}

type entry struct {
	stream     *Stream
	checkedOut bool
}

func (e *entry) expired(idleTTL time.Duration) bool {
	if e.checkedOut {
		return false
	}
	return time.Since(e.stream.lastUsed) > idleTTL
}

// Registry is the process-wide table of open streams, keyed by their
// current baton.
type Registry struct {
	mu      sync.Mutex
	batons  map[string]*entry
	idleTTL time.Duration
	batonSz int
	closed  bool
}

// New creates a Registry with the given baton idle timeout and rotating
// baton size in bytes (spec recommends 32).
func New(idleTTL time.Duration, batonBytes int) *Registry {
	r := &Registry{
		batons:  make(map[string]*entry),
		idleTTL: idleTTL,
		batonSz: batonBytes,
	}
	go r.evictLoop()
	return r
}

// Open creates a fresh stream and returns its initial baton.
func (r *Registry) Open() (baton string, s *Stream, err error) {
	baton, err = r.newBaton()
	if err != nil {
		return "", nil, err
	}
	s = newStream()
	r.mu.Lock()
	r.batons[baton] = &entry{stream: s}
	r.mu.Unlock()
	return baton, s, nil
}

// Checkout resolves a baton to its stream and atomically rotates the
// baton: the returned baton replaces the old one and the old one can never
// be redeemed again, even by a concurrent request (spec §5: batons are
// single-use).
func (r *Registry) Checkout(baton string) (newBaton string, s *Stream, err error) {
	r.mu.Lock()
	e, ok := r.batons[baton]
	if !ok {
		r.mu.Unlock()
		return "", nil, ErrUnknownBaton
	}
	if e.checkedOut {
		r.mu.Unlock()
		return "", nil, ErrBatonInUse
	}
	if e.expired(r.idleTTL) {
		delete(r.batons, baton)
		r.mu.Unlock()
		return "", nil, ErrUnknownBaton
	}
	delete(r.batons, baton)
	e.checkedOut = true
	r.mu.Unlock()
	e.stream.touch()

	newBaton, err = r.newBaton()
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	e.checkedOut = false
	r.batons[newBaton] = e
	r.mu.Unlock()

	return newBaton, e.stream, nil
}

// Close permanently removes a stream; its baton can never be redeemed
// again.
func (r *Registry) Close(baton string) {
	r.mu.Lock()
	delete(r.batons, baton)
	r.mu.Unlock()
}

// Touch updates a stream's last-used timestamp, extending its idle
// deadline.
func (s *Stream) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (r *Registry) newBaton() (string, error) {
	buf := make([]byte, r.batonSz)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate baton: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (r *Registry) evictLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		for baton, e := range r.batons {
			if e.expired(r.idleTTL) {
				delete(r.batons, baton)
			}
		}
		r.mu.Unlock()
	}
}

// Shutdown stops the eviction goroutine and drops all streams.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.batons = nil
}
