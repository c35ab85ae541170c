package mapping

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"02.01.2006", // DD.MM.YYYY
	"2006/01/02", // YYYY/MM/DD
	"02-01-2006", // DD-MM-YYYY
}

// ParseDate parses an invoice date in one of the supported layouts and
// returns it as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("unknown date format: %q", s)
}
