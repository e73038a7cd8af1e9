package app

import (
	"errors"
	"fmt"

	"github.com/zombor/billed/internal/session"
)

// ErrEmailRequired is returned when the login form is sent without an email
var ErrEmailRequired = errors.New("email is required")

// Login is the container behind the login view
type Login struct {
	session   *session.Provider
	navigator Navigator
}

// NewLogin creates a new Login container
func NewLogin(provider *session.Provider, navigator Navigator) *Login {
	return &Login{session: provider, navigator: navigator}
}

// HandleSubmitEmployee stores the employee identity and opens the bills list
func (l *Login) HandleSubmitEmployee(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if err := l.session.Login(session.User{Type: session.RoleEmployee, Email: email}); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	l.navigator.OnNavigate(PathBills)
	return nil
}

// HandleLogout clears the session and returns to the login view
func (l *Login) HandleLogout() error {
	if err := l.session.Logout(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	l.navigator.OnNavigate(PathLogin)
	return nil
}
