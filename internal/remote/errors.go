package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a RemoteError
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindClient       Kind = "client"
	KindServer       Kind = "server"
	KindNetwork      Kind = "network"
	KindDecode       Kind = "decode"
)

// RemoteError is returned by every Bills operation that fails
type RemoteError struct {
	Kind       Kind
	StatusCode int
	// Message is the text shown to the user, e.g. "Erreur 404"
	Message string
	// Detail is the error reported by the server, if any
	Detail string
	Err    error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a RemoteError of kind k
func IsKind(err error, k Kind) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == k
}

func statusError(code int, detail string) *RemoteError {
	kind := KindServer
	switch {
	case code == http.StatusNotFound:
		kind = KindNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = KindUnauthorized
	case code >= 400 && code < 500:
		kind = KindClient
	}
	return &RemoteError{
		Kind:       kind,
		StatusCode: code,
		Message:    fmt.Sprintf("Erreur %d", code),
		Detail:     detail,
	}
}

func networkError(err error) *RemoteError {
	return &RemoteError{Kind: KindNetwork, Message: "Erreur réseau", Err: err}
}

func decodeError(err error) *RemoteError {
	return &RemoteError{Kind: KindDecode, Message: "Réponse invalide du serveur", Err: err}
}
