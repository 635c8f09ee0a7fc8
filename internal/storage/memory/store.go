package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"telegram-signal-lab/internal/domain"
	"telegram-signal-lab/internal/storage"
)

type signalKey struct {
	channel   string
	messageID int64
}

// data is the full in-memory dataset.
type data struct {
	channels map[string]*domain.Channel // keyed by username
	signals  map[signalKey]*domain.Signal
	session  *domain.Session
}

func newData() *data {
	return &data{
		channels: make(map[string]*domain.Channel),
		signals:  make(map[signalKey]*domain.Signal),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.channels {
		ch := *v
		c.channels[k] = &ch
	}
	for k, v := range d.signals {
		c.signals[k] = v
	}
	if d.session != nil {
		sess := *d.session
		c.session = &sess
	}
	return c
}

// op mutates data and reports whether anything changed.
type op func(d *data) bool

// Store is an in-memory implementation of storage.Store.
//
// A transactional Store works on a private copy of its parent's data and
// records every mutation. Commit replays the recorded mutations on the parent,
// so writes made outside the transaction are preserved.
type Store struct {
	mu   sync.RWMutex
	data *data
	ids  *atomic.Int64 // shared by a root store and all of its transactions
	now  func() time.Time

	tx  bool
	log []op
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: newData(),
		ids:  new(atomic.Int64),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Verify interface compliance at compile time.
var _ storage.Store = (*Store)(nil)

// Channels returns the channel store.
func (s *Store) Channels() storage.ChannelStore { return (*ChannelStore)(s) }

// Signals returns the signal store.
func (s *Store) Signals() storage.SignalStore { return (*SignalStore)(s) }

// Sessions returns the session store.
func (s *Store) Sessions() storage.SessionStore { return (*SessionStore)(s) }

// WithinTx runs fn against a copy of the data and commits its changes if fn
// returns nil. Nested calls commit into the enclosing transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &Store{data: snapshot, ids: s.ids, now: s.now, tx: true}
	if err := fn(tx); err != nil {
		return err
	}

	tx.mu.Lock()
	ops := tx.log
	tx.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range ops {
		if o(s.data) && s.tx {
			s.log = append(s.log, o)
		}
	}
	return nil
}

// apply runs o under the write lock and records it when it changed state.
func (s *Store) apply(o op) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := o(s.data)
	if changed && s.tx {
		s.log = append(s.log, o)
	}
	return changed
}

func (s *Store) nextID() int64 {
	return s.ids.Add(1)
}
