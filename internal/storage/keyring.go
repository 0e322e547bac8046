package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"

	"github.com/calendrier-dev/calendrier/internal/models"
)

const keyringService = "calendrier-cli"

// Keyring is the subset of go-keyring used by KeyringStore. It allows
// swapping the OS keychain for a fake in tests.
type Keyring interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

type osKeyring struct{}

func (osKeyring) Set(service, user, password string) error { return keyring.Set(service, user, password) }
func (osKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (osKeyring) Delete(service, user string) error        { return keyring.Delete(service, user) }

// OSKeyring is the OS keychain/credential manager
var OSKeyring Keyring = osKeyring{}

// envelope carries the expiry alongside the secret since the keychain has none
type envelope struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// KeyringStore persists the session in the OS keychain, one pair of entries
// per API host so several backends can be used side by side.
type KeyringStore struct {
	ring   Keyring
	host   string
	logger zerolog.Logger
	now    func() time.Time
}

// NewKeyringStore creates a keyring-backed store scoped to apiBaseURL's host
func NewKeyringStore(ring Keyring, apiBaseURL string, logger zerolog.Logger) *KeyringStore {
	host := apiBaseURL
	if u, err := url.Parse(apiBaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &KeyringStore{
		ring:   ring,
		host:   host,
		logger: logger,
		now:    time.Now,
	}
}

// getKeyringKey returns a unique key per entry and API host
func (k *KeyringStore) getKeyringKey(entry string) string {
	switch entry {
	case TokenKey:
		return fmt.Sprintf("token-%s", k.host)
	default:
		return fmt.Sprintf("user-%s", k.host)
	}
}

func (k *KeyringStore) SetToken(token string) {
	k.save(TokenKey, token)
}

func (k *KeyringStore) GetToken() (string, bool) {
	return k.load(TokenKey)
}

func (k *KeyringStore) SetUser(user models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		k.logger.Warn().Err(err).Msg("Failed to encode user")
		return
	}
	k.save(UserKey, string(data))
}

func (k *KeyringStore) GetUser() (*models.User, bool) {
	raw, ok := k.load(UserKey)
	if !ok {
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		k.logger.Debug().Err(err).Msg("Ignoring malformed stored user")
		return nil, false
	}
	return &user, true
}

func (k *KeyringStore) RemoveToken() {
	k.delete(TokenKey)
	k.delete(UserKey)
}

func (k *KeyringStore) save(entry, value string) {
	data, err := json.Marshal(envelope{Value: value, ExpiresAt: k.now().Add(TTL)})
	if err != nil {
		k.logger.Warn().Err(err).Str("entry", entry).Msg("Failed to encode keyring entry")
		return
	}
	if err := k.ring.Set(keyringService, k.getKeyringKey(entry), string(data)); err != nil {
		k.logger.Warn().Err(err).Str("entry", entry).Msg("Failed to save to keyring")
	}
}

func (k *KeyringStore) load(entry string) (string, bool) {
	raw, err := k.ring.Get(keyringService, k.getKeyringKey(entry))
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			k.logger.Debug().Err(err).Str("entry", entry).Msg("Keyring unavailable")
		}
		return "", false
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return "", false
	}
	if !k.now().Before(env.ExpiresAt) {
		k.delete(entry)
		return "", false
	}
	if env.Value == "" {
		return "", false
	}
	return env.Value, true
}

func (k *KeyringStore) delete(entry string) {
	err := k.ring.Delete(keyringService, k.getKeyringKey(entry))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		k.logger.Warn().Err(err).Str("entry", entry).Msg("Failed to delete from keyring")
	}
}
