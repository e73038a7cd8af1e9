package store

import (
	"errors"
	"time"

	"github.com/zombor/billed/internal/bill"
)

var (
	// ErrNotFound is returned when a bill or file does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when a request fails validation
	ErrInvalid = errors.New("invalid")
)

// Record is a bill as persisted by the store
type Record struct {
	bill.Bill
	ContentType string    `json:"contentType,omitempty"`
	FileKey     string    `json:"fileKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
