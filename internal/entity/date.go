package entity

import (
	"fmt"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar day. Harvest windows are counted in days against the
// OAI-PMH "from" argument, so nothing finer is kept.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the day t falls on in its own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("cannot parse date %q: %w", s, err)
	}

	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("cannot parse date %s: %w", data, err)
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
