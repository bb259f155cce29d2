package repository

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/events"
	"github.com/lowaak/cadence-timer/internal/storage"
	"github.com/lowaak/cadence-timer/internal/workout"
)

const programsKey = "programs.json"

// ErrNotFound is returned when no item has the requested id
var ErrNotFound = errors.New("not found")

// ProgramRepository is the saved program library
type ProgramRepository struct {
	store  storage.Store
	logger *log.Logger
	now    func() time.Time

	mu    sync.RWMutex
	items []workout.Program

	changedEvent *events.ChannelEvent[[]workout.Program]
}

// NewProgramRepository loads the library, seeding the default programs when
// nothing is stored or the stored library cannot be read
func NewProgramRepository(store storage.Store, logger *log.Logger, now func() time.Time) *ProgramRepository {
	if store == nil {
		panic("ProgramRepository: store cannot be nil")
	}
	if logger == nil {
		panic("ProgramRepository: logger cannot be nil")
	}
	if now == nil {
		now = time.Now
	}
	r := &ProgramRepository{
		store:        store,
		logger:       logger,
		now:          now,
		changedEvent: events.NewChannelEvent[[]workout.Program](true),
	}

	var items []workout.Program
	found, err := store.Load(programsKey, &items)
	switch {
	case err != nil:
		logger.Printf("ProgramRepository: Using defaults, stored library unreadable: %v", err)
		items = workout.DefaultPrograms(now())
	case !found:
		logger.Printf("ProgramRepository: No stored library, using defaults")
		items = workout.DefaultPrograms(now())
	}
	if items == nil {
		items = []workout.Program{}
	}
	r.items = items
	r.changedEvent.Notify(r.All())
	return r
}

// All returns the programs in library order
func (r *ProgramRepository) All() []workout.Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

func (r *ProgramRepository) ByID(id uuid.UUID) (workout.Program, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if p.ID == id {
			return p, true
		}
	}
	return workout.Program{}, false
}

// Add validates p and appends it
func (r *ProgramRepository) Add(p workout.Program) error {
	if err := workout.ValidateProgram(p.Name, p.Blocks); err != nil {
		return err
	}
	return r.mutate("add "+p.Name, func(items []workout.Program) ([]workout.Program, error) {
		return append(items, p), nil
	})
}

// Import appends every program, stopping at the first invalid one
func (r *ProgramRepository) Import(programs []workout.Program) error {
	for i, p := range programs {
		if err := workout.ValidateProgram(p.Name, p.Blocks); err != nil {
			return fmt.Errorf("program %d (%q): %w", i+1, p.Name, err)
		}
	}
	return r.mutate(fmt.Sprintf("import %d programs", len(programs)), func(items []workout.Program) ([]workout.Program, error) {
		return append(items, programs...), nil
	})
}

// Update replaces the program with p's id and bumps UpdatedAt
func (r *ProgramRepository) Update(p workout.Program) error {
	if err := workout.ValidateProgram(p.Name, p.Blocks); err != nil {
		return err
	}
	p.UpdatedAt = r.now()
	return r.mutate("update "+p.Name, func(items []workout.Program) ([]workout.Program, error) {
		i := slices.IndexFunc(items, func(q workout.Program) bool { return q.ID == p.ID })
		if i < 0 {
			return nil, fmt.Errorf("program %s: %w", p.ID, ErrNotFound)
		}
		items[i] = p
		return items, nil
	})
}

func (r *ProgramRepository) Remove(id uuid.UUID) error {
	return r.mutate("remove "+id.String(), func(items []workout.Program) ([]workout.Program, error) {
		i := slices.IndexFunc(items, func(q workout.Program) bool { return q.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("program %s: %w", id, ErrNotFound)
		}
		return slices.Delete(items, i, i+1), nil
	})
}

// Duplicate appends a copy of the program with fresh ids and returns it
func (r *ProgramRepository) Duplicate(id uuid.UUID) (workout.Program, error) {
	p, ok := r.ByID(id)
	if !ok {
		return workout.Program{}, fmt.Errorf("program %s: %w", id, ErrNotFound)
	}
	dup := p.Duplicate(r.now())
	err := r.mutate("duplicate "+p.Name, func(items []workout.Program) ([]workout.Program, error) {
		return append(items, dup), nil
	})
	return dup, err
}

// Filter returns programs whose name contains query, ignoring case, and that
// carry tag. Empty query or tag match everything.
func (r *ProgramRepository) Filter(query string, tag string) []workout.Program {
	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]workout.Program, 0)
	for _, p := range r.All() {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		if tag != "" && !slices.Contains(p.Tags, tag) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Tags returns every distinct tag, sorted
func (r *ProgramRepository) Tags() []string {
	set := make(map[string]struct{})
	for _, p := range r.All() {
		for _, t := range p.Tags {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// TotalDuration is the compiled length of p, 0 when it does not compile
func (r *ProgramRepository) TotalDuration(p workout.Program) int {
	return workout.TotalDuration(p.Blocks)
}

// ListenToChanges registers a channel receiving the library after every change
func (r *ProgramRepository) ListenToChanges(ch chan<- []workout.Program) func() {
	return r.changedEvent.Listen(ch)
}

// mutate applies fn to a copy of the library and persists the result.
// Nothing changes when fn or the save fails.
func (r *ProgramRepository) mutate(what string, fn func([]workout.Program) ([]workout.Program, error)) error {
	r.mu.Lock()
	next, err := fn(slices.Clone(r.items))
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.store.Save(programsKey, next); err != nil {
		r.mu.Unlock()
		r.logger.Printf("ProgramRepository: Failed to %s: %v", what, err)
		return err
	}
	r.items = next
	snapshot := slices.Clone(next)
	r.mu.Unlock()

	r.logger.Printf("ProgramRepository: %s (%d programs)", what, len(snapshot))
	r.changedEvent.Notify(snapshot)
	return nil
}
