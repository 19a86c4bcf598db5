package store

import (
	"context"
	"sort"
	"sync"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

// Memory is an in-process Store. All methods are safe for concurrent use.
type Memory struct {
	mu            sync.Mutex
	users         map[int64]*models.User
	sessions      map[int64]*models.Session
	nextUserID    int64
	nextSessionID int64
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]*models.User),
		sessions: make(map[int64]*models.Session),
	}
}

func (m *Memory) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// SaveUser upserts the user, assigning an ID when it has none.
func (m *Memory) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == 0 {
		m.nextUserID++
		user.ID = m.nextUserID
	} else if user.ID > m.nextUserID {
		m.nextUserID = user.ID
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *Memory) GetSession(_ context.Context, id int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// ListSessions returns the user's sessions ordered by scheduled time, with
// unscheduled ones last.
func (m *Memory) ListSessions(_ context.Context, userID int64) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Session
	for _, sess := range m.sessions {
		if sess.UserID == userID {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ScheduledAt == nil && b.ScheduledAt == nil:
			return a.ID < b.ID
		case a.ScheduledAt == nil:
			return false
		case b.ScheduledAt == nil:
			return true
		case !a.ScheduledAt.Equal(*b.ScheduledAt):
			return a.ScheduledAt.Before(*b.ScheduledAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

// SaveSession upserts the session, assigning an ID when it has none.
func (m *Memory) SaveSession(_ context.Context, sess *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess.ID == 0 {
		m.nextSessionID++
		sess.ID = m.nextSessionID
	} else if sess.ID > m.nextSessionID {
		m.nextSessionID = sess.ID
	}
	m.sessions[sess.ID] = sess.Clone()
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// SetEventRef stores, or clears with an empty ref, the external event
// reference a provider assigned to the session.
func (m *Memory) SetEventRef(_ context.Context, sessionID int64, provider models.Provider, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.SetEventRef(provider, ref)
	return nil
}

// AddExceptions unions the given ISO dates into the session's exception
// list and reports how many were new. The list stays sorted, so repeated
// reconciliation passes leave it untouched.
func (m *Memory) AddExceptions(_ context.Context, sessionID int64, dates []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}

	added := 0
	for _, date := range dates {
		if date == "" || sess.HasException(date) {
			continue
		}
		sess.RecurrenceExceptions = append(sess.RecurrenceExceptions, date)
		added++
	}
	if added > 0 {
		sort.Strings(sess.RecurrenceExceptions)
	}
	return added, nil
}
