package collection

import (
	"context"
	"errors"
	"fmt"
)

// Strategy decides how Complete touches local state. Each entity kind uses one.
type Strategy int

const (
	// StrategyConfirmed waits for the server and applies the entity it returns.
	StrategyConfirmed Strategy = iota
	// StrategyOptimistic flips the flag right away and rolls back on failure.
	StrategyOptimistic
)

func (s Strategy) String() string {
	switch s {
	case StrategyOptimistic:
		return "optimistic"
	default:
		return "confirmed"
	}
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
	StatusMutating
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	case StatusMutating:
		return "mutating"
	default:
		return "idle"
	}
}

// Kind describes an entity type to the synchronizer. Completed and
// MarkCompleted may be nil for read-only collections.
type Kind[T any] struct {
	Name          string
	ID            func(T) string
	Completed     func(T) bool
	MarkCompleted func(T) T
	Strategy      Strategy
}

// Loader fetches the whole collection for a filter. It is the only required
// capability; the others are discovered on the same value.
type Loader[T, F any] interface {
	List(ctx context.Context, filter F) ([]T, error)
}

// Completion is the server's answer to a complete call. Granted is the XP the
// server actually awarded; Entity is the updated entity when the server sends it.
type Completion[T any] struct {
	Entity  *T
	Granted int
	TotalXP *int
}

type Completer[T any] interface {
	Complete(ctx context.Context, id string) (Completion[T], error)
}

type Creator[T, D any] interface {
	Create(ctx context.Context, draft D) (T, error)
}

type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// CompletionEvent is emitted once per successful completion.
type CompletionEvent struct {
	Collection string
	ID         string
	Granted    int
	TotalXP    *int
}

var (
	ErrSuperseded       = errors.New("response superseded by a newer request")
	ErrClosed           = errors.New("collection closed")
	ErrUnsupported      = errors.New("operation not supported by this collection")
	ErrAlreadyCompleted = errors.New("entity already completed")
)

type LoadError struct {
	Collection string
	Filter     any
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Collection, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MutationError reports a failed complete, delete or update. The collection
// is left as it was before the call.
type MutationError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("failed to %s %s %s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// CreateError keeps the rejected draft so the caller can retry it as is.
type CreateError[D any] struct {
	Collection string
	Draft      D
	Err        error
}

func (e *CreateError[D]) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.Collection, e.Err)
}

func (e *CreateError[D]) Unwrap() error { return e.Err }

// Snapshot is an immutable view of the collection at one point in time.
// Version grows with every change so observers can drop stale snapshots.
type Snapshot[T, F any] struct {
	Version     uint64
	Status      Status
	Items       []T
	Filter      F
	Loaded      bool
	LoadErr     error
	MutationErr error
	Pending     []string
}

// Empty reports the "nothing here" state: a successful load with no items.
func (s Snapshot[T, F]) Empty() bool {
	return s.Status == StatusLoaded && len(s.Items) == 0
}
