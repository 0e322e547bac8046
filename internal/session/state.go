package session

import "github.com/calendrier-dev/calendrier/internal/models"

// Status is where the manager is in its lifecycle
type Status int

const (
	// StatusLoading is the initial state before Start resolves
	StatusLoading Status = iota
	// StatusPending means a stored session is being checked with the API
	StatusPending
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusPending:
		return "pending-validation"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the manager
type State struct {
	Status    Status       `json:"-"`
	User      *models.User `json:"user"`
	Token     string       `json:"-"`
	IsLoading bool         `json:"isLoading"`
	DevMode   bool         `json:"devMode"`
}

// IsAuthenticated is true in dev mode or whenever both user and token are
// known, including while a stored session is still pending validation
func (s State) IsAuthenticated() bool {
	return s.DevMode || (s.User != nil && s.Token != "")
}

// IsConfirmed is true only once the API has accepted the session
func (s State) IsConfirmed() bool {
	return s.Status == StatusAuthenticated
}

// Resolved reports whether startup has settled on an answer
func (s State) Resolved() bool {
	return s.Status == StatusAuthenticated || s.Status == StatusUnauthenticated
}
