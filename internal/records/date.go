package records

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrInvalidDate indicates that a date value could not be parsed as YYYY-MM-DD.
var ErrInvalidDate = errors.New("records: invalid date")

// Date is a calendar date without a time component, matching the wire format
// the sync clients emit (YYYY-MM-DD).
type Date struct {
	value time.Time
}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{value: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(rawInput string) (Date, error) {
	trimmed := strings.TrimSpace(rawInput)
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, rawInput)
	}
	return Date{value: parsed}, nil
}

// Time exposes the underlying instant at midnight UTC.
func (d Date) Time() time.Time {
	return d.value
}

// String renders the date in wire format.
func (d Date) String() string {
	return d.value.Format(dateLayout)
}

// MarshalJSON renders the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted YYYY-MM-DD string or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*d = Date{}
		return nil
	}
	unquoted := strings.Trim(raw, `"`)
	parsed, err := ParseDate(unquoted)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for database writes.
func (d Date) Value() (driver.Value, error) {
	return d.value, nil
}

// Scan implements sql.Scanner for database reads.
func (d *Date) Scan(src any) error {
	switch typed := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = Date{value: time.Date(typed.Year(), typed.Month(), typed.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case string:
		parsed, err := parseStoredDate(typed)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := parseStoredDate(string(typed))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("%w: unsupported source %T", ErrInvalidDate, src)
	}
}

// GormDataType reports the column type used for Date fields.
func (Date) GormDataType() string {
	return "date"
}

func parseStoredDate(rawInput string) (Date, error) {
	// SQLite hands dates back as full timestamp strings.
	candidate := strings.TrimSpace(rawInput)
	if len(candidate) >= len(dateLayout) {
		candidate = candidate[:len(dateLayout)]
	}
	return ParseDate(candidate)
}
