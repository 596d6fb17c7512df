package festival

import (
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month key. Its numeric value is the calendar position,
// so ordering by value is calendar ordering.
type Month uint8

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

// AllMonths returns January..December.
func AllMonths() []Month {
	out := make([]Month, 0, 12)
	for m := January; m <= December; m++ {
		out = append(out, m)
	}
	return out
}

// MonthOf returns the month in which date falls.
func MonthOf(date time.Time) Month {
	return Month(date.Month())
}

func (m Month) Valid() bool {
	return m >= January && m <= December
}

func (m Month) String() string {
	if !m.Valid() {
		return "MONTH(" + strconv.Itoa(int(m)) + ")"
	}
	return strings.ToUpper(time.Month(m).String())
}

// ParseMonth accepts "january", "JAN" or "1" in any letter case.
func ParseMonth(token string) (Month, error) {
	t := strings.TrimSpace(token)
	if n, err := strconv.Atoi(t); err == nil {
		if n < 1 || n > 12 {
			return 0, invalid("month", t, ErrUnknownMonth)
		}
		return Month(n), nil
	}
	for _, m := range AllMonths() {
		full := time.Month(m).String()
		if strings.EqualFold(t, full) || strings.EqualFold(t, full[:3]) {
			return m, nil
		}
	}
	return 0, invalid("month", t, ErrUnknownMonth)
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	v, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
