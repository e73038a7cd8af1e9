package web

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/billed/internal/app"
	"github.com/zombor/billed/internal/bill"
)

const defaultFormTTL = 2 * time.Hour

// recordingNavigator remembers the last path a container navigated to
type recordingNavigator struct {
	mu   sync.Mutex
	path string
}

func (n *recordingNavigator) OnNavigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

// take returns and resets the recorded path
func (n *recordingNavigator) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	path := n.path
	n.path = ""
	return path
}

// formEntry is one open new bill form
type formEntry struct {
	container *app.NewBill
	navigator *recordingNavigator
	owner     string
	created   time.Time

	mu    sync.Mutex
	draft app.Form
}

func (e *formEntry) getDraft() app.Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *formEntry) setDraft(f app.Form) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = f
}

// formRegistry holds the open forms between requests
type formRegistry struct {
	mu    sync.Mutex
	forms map[string]*formEntry
	ttl   time.Duration
	now   func() time.Time
}

func newFormRegistry() *formRegistry {
	return &formRegistry{
		forms: make(map[string]*formEntry),
		ttl:   defaultFormTTL,
		now:   time.Now,
	}
}

// open registers a new form for the browser session owner
func (f *formRegistry) open(owner string, build func(app.Navigator) *app.NewBill) string {
	nav := &recordingNavigator{}
	entry := &formEntry{
		container: build(nav),
		navigator: nav,
		owner:     owner,
		created:   f.now(),
		draft:     app.Form{Pct: strconv.Itoa(bill.DefaultPct)},
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked()
	id := uuid.NewString()
	f.forms[id] = entry
	return id
}

// get returns the form id if it exists, belongs to owner and has not expired
func (f *formRegistry) get(id, owner string) (*formEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.forms[id]
	if !ok || entry.owner != owner {
		return nil, false
	}
	if f.expired(entry) {
		delete(f.forms, id)
		return nil, false
	}
	return entry, true
}

func (f *formRegistry) close(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.forms, id)
}

func (f *formRegistry) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.forms)
}

func (f *formRegistry) expired(entry *formEntry) bool {
	return entry.created.Before(f.now().Add(-f.ttl))
}

// pruneLocked drops forms older than the ttl. Callers hold f.mu.
func (f *formRegistry) pruneLocked() {
	for id, entry := range f.forms {
		if f.expired(entry) {
			delete(f.forms, id)
		}
	}
}
