package repository

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/lowaak/cadence-timer/internal/events"
	"github.com/lowaak/cadence-timer/internal/storage"
	"github.com/lowaak/cadence-timer/internal/workout"
)

const sessionsKey = "sessions.json"

// SessionRepository is the session history, newest first
type SessionRepository struct {
	store  storage.Store
	logger *log.Logger

	mu       sync.RWMutex
	sessions []workout.Session

	changedEvent *events.ChannelEvent[[]workout.Session]
}

func NewSessionRepository(store storage.Store, logger *log.Logger) *SessionRepository {
	if store == nil {
		panic("SessionRepository: store cannot be nil")
	}
	if logger == nil {
		panic("SessionRepository: logger cannot be nil")
	}
	r := &SessionRepository{
		store:        store,
		logger:       logger,
		changedEvent: events.NewChannelEvent[[]workout.Session](true),
	}
	var sessions []workout.Session
	if _, err := store.Load(sessionsKey, &sessions); err != nil {
		logger.Printf("SessionRepository: Starting empty, stored history unreadable: %v", err)
		sessions = nil
	}
	if sessions == nil {
		sessions = []workout.Session{}
	}
	r.sessions = sessions
	r.changedEvent.Notify(r.All())
	return r
}

func (r *SessionRepository) All() []workout.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sessions)
}

// Add puts s at the front of the history
func (r *SessionRepository) Add(s workout.Session) error {
	return r.mutate("add", func(sessions []workout.Session) ([]workout.Session, error) {
		return slices.Insert(sessions, 0, s), nil
	})
}

func (r *SessionRepository) Update(s workout.Session) error {
	return r.mutate("update", func(sessions []workout.Session) ([]workout.Session, error) {
		i := slices.IndexFunc(sessions, func(q workout.Session) bool { return q.ID == s.ID })
		if i < 0 {
			return nil, fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
		}
		sessions[i] = s
		return sessions, nil
	})
}

func (r *SessionRepository) Remove(id uuid.UUID) error {
	return r.mutate("remove", func(sessions []workout.Session) ([]workout.Session, error) {
		i := slices.IndexFunc(sessions, func(q workout.Session) bool { return q.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return slices.Delete(sessions, i, i+1), nil
	})
}

func (r *SessionRepository) Clear() error {
	return r.mutate("clear", func([]workout.Session) ([]workout.Session, error) {
		return []workout.Session{}, nil
	})
}

// ListenToChanges registers a channel receiving the history after every change
func (r *SessionRepository) ListenToChanges(ch chan<- []workout.Session) func() {
	return r.changedEvent.Listen(ch)
}

func (r *SessionRepository) mutate(what string, fn func([]workout.Session) ([]workout.Session, error)) error {
	r.mu.Lock()
	next, err := fn(slices.Clone(r.sessions))
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.store.Save(sessionsKey, next); err != nil {
		r.mu.Unlock()
		r.logger.Printf("SessionRepository: Failed to %s: %v", what, err)
		return err
	}
	r.sessions = next
	snapshot := slices.Clone(next)
	r.mu.Unlock()

	r.logger.Printf("SessionRepository: %s (%d sessions)", what, len(snapshot))
	r.changedEvent.Notify(snapshot)
	return nil
}
