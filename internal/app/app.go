package app

import "github.com/zombor/billed/internal/session"

// Route paths of the employee views
const (
	PathLogin   = "/"
	PathBills   = "/employee/bills"
	PathNewBill = "/employee/bill/new"
)

// Navigator swaps the displayed view
type Navigator interface {
	OnNavigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) OnNavigate(path string) {
	f(path)
}

// SessionProvider returns the logged-in user
type SessionProvider interface {
	Current() (session.User, error)
}
