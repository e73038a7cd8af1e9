package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// UserKey is the storage key holding the logged-in user record
const UserKey = "user"

// Role is the kind of account a user logged in with
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleAdmin    Role = "Admin"
)

// ErrNotAuthenticated is returned when no user record is stored
var ErrNotAuthenticated = errors.New("not authenticated")

// User is the identity of the current session
type User struct {
	Type  Role   `json:"type"`
	Email string `json:"email"`
}

// Storage is a synchronous key/value store for session data
type Storage interface {
	// GetItem returns the value for key and whether it was present
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key
	SetItem(key, value string) error

	// RemoveItem deletes key
	RemoveItem(key string) error

	// Clear deletes every key
	Clear() error
}

// Provider resolves the current user from a Storage
type Provider struct {
	storage Storage
}

// NewProvider creates a Provider backed by storage
func NewProvider(storage Storage) *Provider {
	return &Provider{storage: storage}
}

// Current returns the logged-in user or ErrNotAuthenticated
func (p *Provider) Current() (User, error) {
	raw, ok, err := p.storage.GetItem(UserKey)
	if err != nil {
		return User{}, fmt.Errorf("reading session: %w", err)
	}
	if !ok || raw == "" {
		return User{}, ErrNotAuthenticated
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return User{}, fmt.Errorf("decoding session user: %w", err)
	}
	return user, nil
}

// Login stores user as the current session identity
func (p *Provider) Login(user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	if err := p.storage.SetItem(UserKey, string(data)); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Logout forgets the current user
func (p *Provider) Logout() error {
	return p.storage.RemoveItem(UserKey)
}
