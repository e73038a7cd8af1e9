package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/zombor/billed/internal/bill"
)

// dateFormats are tried in order when the model does not answer in ISO form
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// parseReceiptJSON parses the JSON answer of a scanning model
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Date = normalizeDate(data.Date)
	data.Name = strings.TrimSpace(data.Name)
	if !bill.IsExpenseType(data.Type) {
		data.Type = ""
	}
	if data.Amount < 0 || math.IsNaN(data.Amount) {
		data.Amount = 0
	}
	if data.VAT < 0 || data.VAT > data.Amount {
		data.VAT = 0
	}

	return &data, nil
}

// normalizeDate returns s as YYYY-MM-DD, or "" when no known format matches.
// A suggestion is left blank rather than guessed.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return d.Format(bill.DateLayout)
		}
	}
	return ""
}
