package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/remote"
)

// DisplayBill is a bill prepared for the list view
type DisplayBill struct {
	bill.Bill
	// RawDate is the stored YYYY-MM-DD date, used for ordering
	RawDate string
	// DisplayDate is the short French date, or RawDate when it could not be formatted
	DisplayDate string
	// StatusLabel is the human status, or the raw status when the date could not be formatted
	StatusLabel string
	Formatted   bool
}

// Bills is the container behind the bills list view
type Bills struct {
	store     remote.Store
	session   SessionProvider
	navigator Navigator
}

// NewBills creates a new Bills container
func NewBills(store remote.Store, session SessionProvider, navigator Navigator) *Bills {
	return &Bills{
		store:     store,
		session:   session,
		navigator: navigator,
	}
}

// HandleClickNewBill opens the new bill form
func (b *Bills) HandleClickNewBill() {
	b.navigator.OnNavigate(PathNewBill)
}

// Fetch lists the current user's bills and formats each row for display.
// A row whose date cannot be formatted is kept with its raw values.
func (b *Bills) Fetch(ctx context.Context) ([]DisplayBill, error) {
	user, err := b.session.Current()
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	bills, err := b.store.Bills().List(ctx, remote.ListRequest{Email: user.Email})
	if err != nil {
		return nil, err
	}

	display := make([]DisplayBill, 0, len(bills))
	for _, raw := range bills {
		display = append(display, toDisplay(raw))
	}
	return display, nil
}

func toDisplay(raw bill.Bill) DisplayBill {
	d := DisplayBill{
		Bill:        raw,
		RawDate:     raw.Date,
		DisplayDate: raw.Date,
		StatusLabel: string(raw.Status),
	}

	formatted, err := bill.FormatDate(raw.Date)
	if err != nil {
		slog.Warn("Failed to format bill", "id", raw.ID, "date", raw.Date, "error", err)
		return d
	}

	d.DisplayDate = formatted
	d.StatusLabel = bill.FormatStatus(raw.Status)
	d.Formatted = true
	return d
}
