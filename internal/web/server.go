package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/app"
	"github.com/zombor/billed/internal/remote"
	"github.com/zombor/billed/internal/session"
)

// SessionCookie names the cookie carrying the browser session id
const SessionCookie = "billed_session"

// Server serves the employee views
type Server struct {
	store    remote.Store
	sessions session.Storage
	forms    *formRegistry
	mux      *http.ServeMux
	secure   bool
}

// Option configures a Server
type Option func(*Server)

// WithSecureCookies marks the session cookie Secure, for deployments behind TLS
func WithSecureCookies() Option {
	return func(s *Server) {
		s.secure = true
	}
}

// WithFormTTL changes how long an unsubmitted new bill form is kept
func WithFormTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.forms.ttl = ttl
	}
}

// NewServer creates a new Server
func NewServer(store remote.Store, sessions session.Storage, opts ...Option) *Server {
	s := &Server{
		store:    store,
		sessions: sessions,
		forms:    newFormRegistry(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleLoginPage)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)

	s.mux.HandleFunc("GET "+app.PathBills, s.handleBills)
	s.mux.HandleFunc("POST /employee/bills/new", s.handleClickNewBill)
	s.mux.HandleFunc("GET /employee/bills/receipt", s.handleReceipt)

	s.mux.HandleFunc("GET "+app.PathNewBill, s.handleNewForm)
	s.mux.HandleFunc("GET /employee/bill/new/{form}", s.handleShowForm)
	s.mux.HandleFunc("POST /employee/bill/new/{form}/file", s.handleFileChange)
	s.mux.HandleFunc("POST /employee/bill/new/{form}", s.handleSubmit)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting web server", "address", addr)
	return http.ListenAndServe(addr, s)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// sessionID returns the browser's session id, issuing a cookie when it has none
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// provider returns the session provider of the requesting browser
func (s *Server) provider(w http.ResponseWriter, r *http.Request) (*session.Provider, string) {
	id := s.sessionID(w, r)
	return session.NewProvider(session.NewScoped(s.sessions, id)), id
}

// redirectTo answers the request with a 303 to path
func redirectTo(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
