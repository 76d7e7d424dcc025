// Package collection keeps one server-owned collection consistent with the
// backend for the lifetime of a screen.
//
// A Synchronizer replaces its items on every load, discards responses that were
// superseded by a newer load or that arrive after Close, serializes mutations
// per entity id and never applies a failed mutation.
package collection

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type Synchronizer[T, F, D any] struct {
	kind   Kind[T]
	source Loader[T, F]
	logger *zap.Logger

	life   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	items       []T
	filter      F
	hasFilter   bool
	loaded      bool
	loading     bool
	gen         uint64
	replaced    uint64
	version     uint64
	loadErr     error
	mutationErr error
	inflight    map[string]struct{}
	closed      bool
	nextSub     int
	subscribers map[int]func(Snapshot[T, F])
	onComplete  []func(CompletionEvent)
}

type Option func(*options)

type options struct {
	logger *zap.Logger
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New builds a synchronizer over source. kind.ID must be set.
func New[T, F, D any](kind Kind[T], source Loader[T, F], opts ...Option) *Synchronizer[T, F, D] {
	if kind.ID == nil {
		panic("collection: Kind.ID is required")
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	life, cancel := context.WithCancel(context.Background())
	return &Synchronizer[T, F, D]{
		kind:        kind,
		source:      source,
		logger:      o.logger.With(zap.String("collection", kind.Name)),
		life:        life,
		cancel:      cancel,
		inflight:    make(map[string]struct{}),
		subscribers: make(map[int]func(Snapshot[T, F])),
	}
}

// Load fetches the collection for filter and replaces the local items.
// A load issued later wins: an earlier response that arrives afterwards is
// dropped and its caller gets ErrSuperseded. On failure the previous items
// are kept.
func (s *Synchronizer[T, F, D]) Load(ctx context.Context, filter F) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	gen := s.gen
	s.filter = filter
	s.hasFilter = true
	s.loading = true
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	bctx, stop := s.bind(ctx)
	items, err := s.source.List(bctx, filter)
	stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded load", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	s.loading = false
	var result error
	if err != nil {
		lerr := &LoadError{Collection: s.kind.Name, Filter: filter, Err: err}
		s.loadErr = lerr
		result = lerr
		s.logger.Warn("load failed", zap.Error(err))
	} else {
		s.items = slices.Clone(items)
		s.replaced++
		s.loaded = true
		s.loadErr = nil
	}
	notify = s.changedLocked()
	s.mu.Unlock()
	notify()
	return result
}

// Reload repeats the last requested load. It is a no-op before the first Load.
func (s *Synchronizer[T, F, D]) Reload(ctx context.Context) error {
	s.mu.Lock()
	filter, ok := s.filter, s.hasFilter
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Load(ctx, filter)
}

// Complete marks id completed. A second call for an id that is already in
// flight is silently ignored. An id missing locally is still sent and the
// collection is reloaded afterwards.
func (s *Synchronizer[T, F, D]) Complete(ctx context.Context, id string) error {
	completer, ok := s.source.(Completer[T])
	if !ok || s.kind.Completed == nil {
		return ErrUnsupported
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return nil
	}
	var prev T
	idx := s.indexLocked(id)
	found := idx >= 0
	if found {
		prev = s.items[idx]
		if s.kind.Completed(prev) {
			s.mu.Unlock()
			return ErrAlreadyCompleted
		}
	}
	optimistic := found && s.kind.Strategy == StrategyOptimistic && s.kind.MarkCompleted != nil
	replaced := s.replaced
	s.inflight[id] = struct{}{}
	if optimistic {
		s.items[idx] = s.kind.MarkCompleted(prev)
	}
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	bctx, stop := s.bind(ctx)
	res, err := completer.Complete(bctx, id)
	stop()

	s.mu.Lock()
	delete(s.inflight, id)
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		// A load that landed meanwhile already carries the server state.
		if optimistic && s.replaced == replaced {
			if i := s.indexLocked(id); i >= 0 {
				s.items[i] = prev
			}
		}
		merr := &MutationError{Op: "complete", Collection: s.kind.Name, ID: id, Err: err}
		s.mutationErr = merr
		notify = s.changedLocked()
		s.mu.Unlock()
		notify()
		s.logger.Warn("complete failed", zap.String("id", id), zap.Error(err))
		return merr
	}

	if i := s.indexLocked(id); i >= 0 {
		item := s.items[i]
		if res.Entity != nil {
			item = *res.Entity
		}
		if !s.kind.Completed(item) && s.kind.MarkCompleted != nil {
			item = s.kind.MarkCompleted(item)
		}
		s.items[i] = item
	}
	event := CompletionEvent{Collection: s.kind.Name, ID: id, Granted: res.Granted, TotalXP: res.TotalXP}
	handlers := slices.Clone(s.onComplete)
	notify = s.changedLocked()
	s.mu.Unlock()
	notify()
	for _, h := range handlers {
		h(event)
	}

	if !found {
		if err := s.Reload(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			s.logger.Warn("reload after completing unknown entity failed", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// Create sends draft and appends the entity the server returns. On failure a
// *CreateError carrying the draft is returned and the items are untouched.
func (s *Synchronizer[T, F, D]) Create(ctx context.Context, draft D) (T, error) {
	var zero T
	creator, ok := s.source.(Creator[T, D])
	if !ok {
		return zero, ErrUnsupported
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrClosed
	}
	s.mu.Unlock()

	bctx, stop := s.bind(ctx)
	created, err := creator.Create(bctx, draft)
	stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return zero, ErrClosed
	}
	if err != nil {
		cerr := &CreateError[D]{Collection: s.kind.Name, Draft: draft, Err: err}
		s.mutationErr = cerr
		notify := s.changedLocked()
		s.mu.Unlock()
		notify()
		s.logger.Warn("create failed", zap.Error(err))
		return zero, cerr
	}
	if i := s.indexLocked(s.kind.ID(created)); i >= 0 {
		s.items[i] = created
	} else {
		s.items = append(s.items, created)
	}
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()
	return created, nil
}

// Delete removes id once the server confirms. Deletion is never optimistic.
// A load still in flight at confirmation is superseded so it cannot bring the
// entity back.
func (s *Synchronizer[T, F, D]) Delete(ctx context.Context, id string) error {
	deleter, ok := s.source.(Deleter)
	if !ok {
		return ErrUnsupported
	}
	return s.mutate(ctx, "delete", id, func(ctx context.Context) (*T, error) {
		return nil, deleter.Delete(ctx, id)
	}, true)
}

// Mutate runs a confirmed replace of id, e.g. an update. The entity returned
// by call replaces the local one on success.
func (s *Synchronizer[T, F, D]) Mutate(ctx context.Context, op, id string, call func(ctx context.Context) (T, error)) error {
	return s.mutate(ctx, op, id, func(ctx context.Context) (*T, error) {
		v, err := call(ctx)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}, false)
}

func (s *Synchronizer[T, F, D]) mutate(ctx context.Context, op, id string, call func(context.Context) (*T, error), remove bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return nil
	}
	s.inflight[id] = struct{}{}
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()

	bctx, stop := s.bind(ctx)
	updated, err := call(bctx)
	stop()

	s.mu.Lock()
	delete(s.inflight, id)
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		merr := &MutationError{Op: op, Collection: s.kind.Name, ID: id, Err: err}
		s.mutationErr = merr
		notify = s.changedLocked()
		s.mu.Unlock()
		notify()
		s.logger.Warn(op+" failed", zap.String("id", id), zap.Error(err))
		return merr
	}
	if remove && s.loading {
		// A load still in flight may have been answered before the delete.
		s.gen++
		s.loading = false
	}
	if i := s.indexLocked(id); i >= 0 {
		switch {
		case remove:
			s.items = slices.Delete(s.items, i, i+1)
		case updated != nil:
			s.items[i] = *updated
		}
	}
	notify = s.changedLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// Subscribe registers fn for every state change and returns an unsubscribe func.
// fn runs on the goroutine that caused the change, without locks held.
func (s *Synchronizer[T, F, D]) Subscribe(fn func(Snapshot[T, F])) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// OnComplete registers fn for completion events.
func (s *Synchronizer[T, F, D]) OnComplete(fn func(CompletionEvent)) {
	s.mu.Lock()
	s.onComplete = append(s.onComplete, fn)
	s.mu.Unlock()
}

// DismissError clears the transient mutation error.
func (s *Synchronizer[T, F, D]) DismissError() {
	s.mu.Lock()
	if s.mutationErr == nil {
		s.mu.Unlock()
		return
	}
	s.mutationErr = nil
	notify := s.changedLocked()
	s.mu.Unlock()
	notify()
}

func (s *Synchronizer[T, F, D]) Snapshot() Snapshot[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer[T, F, D]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *Synchronizer[T, F, D]) Find(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Pending reports whether a mutation for id is in flight.
func (s *Synchronizer[T, F, D]) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

// Close detaches the synchronizer from its screen. In-flight requests are
// cancelled and any response that still arrives is ignored.
func (s *Synchronizer[T, F, D]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.subscribers = make(map[int]func(Snapshot[T, F]))
	s.onComplete = nil
	s.mu.Unlock()
	s.cancel()
}

// bind ties ctx to the synchronizer lifetime.
func (s *Synchronizer[T, F, D]) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Synchronizer[T, F, D]) indexLocked(id string) int {
	for i, item := range s.items {
		if s.kind.ID(item) == id {
			return i
		}
	}
	return -1
}

func (s *Synchronizer[T, F, D]) statusLocked() Status {
	switch {
	case s.loading:
		return StatusLoading
	case s.loadErr != nil:
		return StatusError
	case len(s.inflight) > 0:
		return StatusMutating
	case s.loaded:
		return StatusLoaded
	default:
		return StatusIdle
	}
}

func (s *Synchronizer[T, F, D]) snapshotLocked() Snapshot[T, F] {
	pending := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		pending = append(pending, id)
	}
	sort.Strings(pending)
	return Snapshot[T, F]{
		Version:     s.version,
		Status:      s.statusLocked(),
		Items:       slices.Clone(s.items),
		Filter:      s.filter,
		Loaded:      s.loaded,
		LoadErr:     s.loadErr,
		MutationErr: s.mutationErr,
		Pending:     pending,
	}
}

// changedLocked bumps the version and returns a func that delivers the new
// snapshot to subscribers. Call it after unlocking.
func (s *Synchronizer[T, F, D]) changedLocked() func() {
	s.version++
	if len(s.subscribers) == 0 {
		return func() {}
	}
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot[T, F]), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(snap)
		}
	}
}
