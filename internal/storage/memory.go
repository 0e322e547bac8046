package storage

import (
	"sync"
	"time"

	"github.com/calendrier-dev/calendrier/internal/models"
)

type memoryEntry struct {
	token     string
	user      *models.User
	expiresAt time.Time
}

// MemoryStore keeps the session in process memory. The CLI uses it when the
// OS keyring is disabled, tests use it everywhere else.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time

	// Reads counts GetToken and GetUser calls
	Reads int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryStore) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[TokenKey] = memoryEntry{token: token, expiresAt: m.now().Add(TTL)}
}

func (m *MemoryStore) GetToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	e, ok := m.live(TokenKey)
	if !ok || e.token == "" {
		return "", false
	}
	return e.token, true
}

func (m *MemoryStore) SetUser(user models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[UserKey] = memoryEntry{user: &user, expiresAt: m.now().Add(TTL)}
}

func (m *MemoryStore) GetUser() (*models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	e, ok := m.live(UserKey)
	if !ok || e.user == nil {
		return nil, false
	}
	u := *e.user
	return &u, true
}

func (m *MemoryStore) RemoveToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, TokenKey)
	delete(m.entries, UserKey)
}

// live returns the entry if present and not expired. Caller holds mu.
func (m *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
