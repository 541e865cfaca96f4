package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/nohand/models"
)

type checkinKey struct {
	userID uint
	date   string
}

// MemoryStore is a process-local store with the same contract as GormStore.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uint]models.User
	checkins map[checkinKey]models.CheckinRecord
	nextUser uint
	nextRec  uint
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[uint]models.User{},
		checkins: map[checkinKey]models.CheckinRecord{},
	}
}

func (m *MemoryStore) Get(_ context.Context, userID uint, date string) (*models.CheckinRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.checkins[checkinKey{userID, date}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Insert(_ context.Context, rec *models.CheckinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := checkinKey{rec.UserID, rec.CheckinDate}
	if _, ok := m.checkins[key]; ok {
		return ErrUniqueViolation
	}
	m.nextRec++
	rec.ID = m.nextRec
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.checkins[key] = *rec
	return nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uint) ([]models.CheckinRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CheckinRecord
	for k, rec := range m.checkins {
		if k.userID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAllUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryStore) UserExists(_ context.Context, userID uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[userID]
	return ok, nil
}

func (m *MemoryStore) LatestPerUser(_ context.Context) (map[uint]models.CheckinRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[uint]models.CheckinRecord{}
	for k, rec := range m.checkins {
		if cur, ok := out[k.userID]; !ok || rec.CheckinDate > cur.CheckinDate {
			out[k.userID] = rec
		}
	}
	return out, nil
}

func (m *MemoryStore) WipeAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = map[uint]models.User{}
	m.checkins = map[checkinKey]models.CheckinRecord{}
	return nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrUniqueViolation
		}
	}
	m.nextUser++
	user.ID = m.nextUser
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Users: int64(len(m.users)), Checkins: int64(len(m.checkins))}, nil
}
