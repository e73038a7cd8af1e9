package remote

import (
	"context"

	"github.com/zombor/billed/internal/bill"
)

// Store is the remote backend holding bills
type Store interface {
	Bills() Bills
}

// Bills is the bills resource of a Store
type Bills interface {
	// List returns the bills owned by req.Email
	List(ctx context.Context, req ListRequest) ([]bill.Bill, error)

	// Create uploads a receipt and creates a pending bill holding it
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)

	// Update upserts the full bill record identified by req.Selector
	Update(ctx context.Context, req UpdateRequest) (*bill.Bill, error)
}

// ListRequest filters a List call
type ListRequest struct {
	Email string
}

// CreateRequest is the multipart payload of the upload phase
type CreateRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Email       string
}

// Suggestion holds values read off the receipt by the store's scanner
type Suggestion struct {
	Name   string  `json:"name"`
	Type   string  `json:"type,omitempty"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	VAT    string  `json:"vat"`
}

// CreateResponse is returned by a successful Create
type CreateResponse struct {
	ID         string      `json:"id"`
	FileURL    string      `json:"fileUrl"`
	FileName   string      `json:"fileName"`
	Key        string      `json:"key"`
	Suggestion *Suggestion `json:"suggestion,omitempty"`
}

// UpdateRequest carries the JSON-encoded bill and the id it replaces
type UpdateRequest struct {
	Data     string
	Selector string
}
