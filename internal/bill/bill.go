package bill

// Status is the administrative review state of a bill
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// DefaultPct is the VAT percentage used when the form leaves it blank
const DefaultPct = 20

// ExpenseTypes lists the categories an employee can pick for a bill
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// Bill is one expense-reimbursement claim.
// Field order is the wire order of the update payload.
type Bill struct {
	ID         string  `json:"id,omitempty"`
	Email      string  `json:"email"`
	Type       string  `json:"type"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	VAT        string  `json:"vat"`
	Pct        int     `json:"pct"`
	Commentary string  `json:"commentary"`
	FileURL    string  `json:"fileUrl"`
	FileName   string  `json:"fileName"`
	Status     Status  `json:"status"`
}

// IsExpenseType reports whether t is one of ExpenseTypes
func IsExpenseType(t string) bool {
	for _, et := range ExpenseTypes {
		if et == t {
			return true
		}
	}
	return false
}
