package bill

import (
	"fmt"
	"time"
)

// DateLayout is the storage format of Bill.Date
const DateLayout = "2006-01-02"

// French short month names, truncated to three letters
var shortMonths = [...]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

var statusLabels = map[Status]string{
	StatusPending:  "En attente",
	StatusAccepted: "Accepté",
	StatusRefused:  "Refusé",
}

// FormatDate turns "2004-04-04" into "4 Avr. 04"
func FormatDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", s, err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), shortMonths[t.Month()-1], t.Year()%100), nil
}

// FormatStatus returns the label shown to employees.
// Unknown statuses are returned unchanged.
func FormatStatus(s Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}
