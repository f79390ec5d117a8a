package pricing

import (
	"context"
	"errors"
	"sync"

	"pricewatch/pkg/logger"
)

// ErrNoFileID is returned by Refetch when no file id is selected.
var ErrNoFileID = errors.New("no file id selected")

// ModelLoader produces the model for one file id.
type ModelLoader interface {
	Load(ctx context.Context, fileID string) (*Model, error)
}

// State is a read-only view of the tracker.
type State struct {
	FileID  string
	Model   *Model
	Loading bool
	Err     error
}

// Tracker holds the pricing model for the currently selected file id. Each
// load takes a new generation; results of older generations are dropped
// when they arrive. Failed loads are not retried.
type Tracker struct {
	mu         sync.Mutex
	loader     ModelLoader
	logger     *logger.Logger
	state      State
	generation uint64
}

func NewTracker(loader ModelLoader, l *logger.Logger) *Tracker {
	if l == nil {
		l = logger.GetDefault()
	}
	return &Tracker{loader: loader, logger: l}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Load fetches and parses fileID, replacing whatever was tracked before.
// It blocks until the load finishes and returns the state at that point,
// which belongs to a newer load if this one was superseded meanwhile.
func (t *Tracker) Load(ctx context.Context, fileID string) State {
	if fileID == "" {
		t.Clear()
		return t.State()
	}

	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.state = State{FileID: fileID, Loading: true}
	t.mu.Unlock()

	model, err := t.loader.Load(ctx, fileID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		t.logger.LogStaleResultDropped(ctx, "pricing", gen, t.generation)
		return t.state
	}
	t.state = State{FileID: fileID, Model: model, Err: err}
	return t.state
}

// Ensure loads fileID unless it is already the tracked id. A previous
// failure for the same id is kept as is; use Refetch to try again.
func (t *Tracker) Ensure(ctx context.Context, fileID string) State {
	t.mu.Lock()
	current := t.state
	t.mu.Unlock()

	if fileID == current.FileID {
		return current
	}
	return t.Load(ctx, fileID)
}

// Refetch loads fileID again even when it is already tracked, which is the
// only way to retry a failed load.
func (t *Tracker) Refetch(ctx context.Context, fileID string) (State, error) {
	if fileID == "" {
		return t.State(), ErrNoFileID
	}
	return t.Load(ctx, fileID), nil
}

// Clear forgets the tracked model and invalidates any load in flight.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.state = State{}
}
