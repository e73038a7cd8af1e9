package session

// prefixClearer is implemented by storages that can drop every key under a prefix
type prefixClearer interface {
	ClearPrefix(prefix string) error
}

// Scoped namespaces a shared Storage so that several browser sessions can live in it
type Scoped struct {
	storage Storage
	prefix  string
}

// NewScoped returns the view of storage reserved for session id
func NewScoped(storage Storage, id string) *Scoped {
	return &Scoped{storage: storage, prefix: id + "/"}
}

func (s *Scoped) GetItem(key string) (string, bool, error) {
	return s.storage.GetItem(s.prefix + key)
}

func (s *Scoped) SetItem(key, value string) error {
	return s.storage.SetItem(s.prefix+key, value)
}

func (s *Scoped) RemoveItem(key string) error {
	return s.storage.RemoveItem(s.prefix + key)
}

// Clear deletes the keys of this session only.
// On a storage that cannot clear by prefix only the user record is removed.
func (s *Scoped) Clear() error {
	if pc, ok := s.storage.(prefixClearer); ok {
		return pc.ClearPrefix(s.prefix)
	}
	return s.storage.RemoveItem(s.prefix + UserKey)
}
