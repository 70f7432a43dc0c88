package models

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts observed in the published daily files. The exporter is not
// consistent: most records carry RFC3339 with a zone, older ones a bare
// datetime or a date.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time is a time.Time that unmarshals from any of the layouts the data host
// has published over time.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + t.Time.Format(time.RFC3339Nano) + `"`), nil
}

// NewTime wraps a time.Time.
func NewTime(tt time.Time) Time {
	return Time{Time: tt}
}
