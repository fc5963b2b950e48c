package textcodec

import (
	"errors"
	"time"
)

// DateTimeKind records which trailing parts were present in parsed text.
type DateTimeKind uint8

const (
	// DateOnly is YYYY-MM-DD.
	DateOnly DateTimeKind = iota + 1
	// Unspecified is a date and time without an offset designator.
	Unspecified
	// Offset is a date and time followed by Z or ±HH[:mm].
	Offset
)

func (k DateTimeKind) String() string {
	switch k {
	case DateOnly:
		return "date"
	case Unspecified:
		return "unspecified"
	case Offset:
		return "offset"
	}
	return "invalid"
}

// TicksPerSecond is the resolution of DateTime.Fraction.
const TicksPerSecond = 10_000_000

const (
	ticksPerDay   = 86400 * TicksPerSecond
	unixEpochDays = 719162 // days from 0001-01-01 to 1970-01-01
	maxFracDigits = 7
	maxOffsetHour = 14
)

var (
	daysToMonth365 = [13]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334, 365}
	daysToMonth366 = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}
)

// ErrYearRange is returned when formatting a time outside years 1 to 9999.
var ErrYearRange = errors.New("textcodec: year outside 0001-9999")

// DateTime holds the fields of a parsed ISO-8601 value. Fraction counts
// 100ns ticks; OffsetMinutes is meaningful only for Kind Offset and UTC marks
// a literal Z designator.
type DateTime struct {
	Year, Month, Day     int
	Hour, Minute, Second int
	Fraction             int
	Kind                 DateTimeKind
	OffsetMinutes        int
	UTC                  bool
}

// ParseDateTime parses exactly YYYY-MM-DD[THH:mm:ss[.f+]][Z|±HH[:mm]].
// Fractions longer than seven digits are truncated to 100ns ticks.
func ParseDateTime(b []byte) (DateTime, error) {
	var dt DateTime
	if len(b) < 10 {
		return dt, syntaxErr(len(b), "date too short")
	}
	var ok bool
	if dt.Year, ok = digits4(b, 0); !ok || b[4] != '-' {
		return dt, syntaxErr(0, "invalid year")
	}
	if dt.Month, ok = digits2(b, 5); !ok || b[7] != '-' {
		return dt, syntaxErr(5, "invalid month")
	}
	if dt.Day, ok = digits2(b, 8); !ok {
		return dt, syntaxErr(8, "invalid day")
	}
	if dt.Year < 1 {
		return dt, syntaxErr(0, "year out of range")
	}
	if dt.Month < 1 || dt.Month > 12 {
		return dt, syntaxErr(5, "month out of range")
	}
	if dt.Day < 1 || dt.Day > DaysInMonth(dt.Year, dt.Month) {
		return dt, syntaxErr(8, "day out of range")
	}
	if len(b) == 10 {
		dt.Kind = DateOnly
		return dt, nil
	}
	if b[10] != 'T' {
		return dt, syntaxErr(10, "expected 'T'")
	}
	if len(b) < 19 {
		return dt, syntaxErr(len(b), "time too short")
	}
	if dt.Hour, ok = digits2(b, 11); !ok || b[13] != ':' {
		return dt, syntaxErr(11, "invalid hour")
	}
	if dt.Minute, ok = digits2(b, 14); !ok || b[16] != ':' {
		return dt, syntaxErr(14, "invalid minute")
	}
	if dt.Second, ok = digits2(b, 17); !ok {
		return dt, syntaxErr(17, "invalid second")
	}
	if dt.Hour > 23 || dt.Minute > 59 || dt.Second > 59 {
		return dt, syntaxErr(11, "time out of range")
	}

	i := 19
	if i < len(b) && b[i] == '.' {
		i++
		start := i
		for i < len(b) && isDigit(b[i]) {
			if i-start < maxFracDigits {
				dt.Fraction = dt.Fraction*10 + int(b[i]-'0')
			}
			i++
		}
		n := i - start
		if n == 0 {
			return dt, syntaxErr(start, "empty fraction")
		}
		for ; n < maxFracDigits; n++ {
			dt.Fraction *= 10
		}
	}
	if i == len(b) {
		dt.Kind = Unspecified
		return dt, nil
	}

	switch b[i] {
	case 'Z':
		dt.UTC = true
		i++
	case '+', '-':
		sign := 1
		if b[i] == '-' {
			sign = -1
		}
		hh, ok := digits2(b, i+1)
		if !ok {
			return dt, syntaxErr(i, "invalid offset hour")
		}
		i += 3
		mm := 0
		if i < len(b) && b[i] == ':' {
			if mm, ok = digits2(b, i+1); !ok {
				return dt, syntaxErr(i, "invalid offset minute")
			}
			i += 3
		}
		if hh > maxOffsetHour || mm > 59 || (hh == maxOffsetHour && mm != 0) {
			return dt, syntaxErr(i, "offset out of range")
		}
		dt.OffsetMinutes = sign * (hh*60 + mm)
	default:
		return dt, syntaxErr(i, "unexpected character after time")
	}
	if i != len(b) {
		return dt, syntaxErr(i, "trailing characters")
	}
	dt.Kind = Offset
	return dt, nil
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days in month (1-12) of year.
func DaysInMonth(year, month int) int {
	t := &daysToMonth365
	if IsLeapYear(year) {
		t = &daysToMonth366
	}
	return t[month] - t[month-1]
}

// days returns the number of days from 0001-01-01 to the date.
func (d DateTime) days() int64 {
	t := &daysToMonth365
	if IsLeapYear(d.Year) {
		t = &daysToMonth366
	}
	y := int64(d.Year - 1)
	return y*365 + y/4 - y/100 + y/400 + int64(t[d.Month-1]) + int64(d.Day-1)
}

// Ticks returns the wall clock as 100ns ticks since 0001-01-01T00:00:00,
// ignoring any offset.
func (d DateTime) Ticks() int64 {
	clock := int64(d.Hour*3600+d.Minute*60+d.Second)*TicksPerSecond + int64(d.Fraction)
	return d.days()*ticksPerDay + clock
}

// Time combines the fields into an instant. Values without an offset are
// taken as UTC wall clock time.
func (d DateTime) Time() time.Time {
	sec := (d.days()-unixEpochDays)*86400 + int64(d.Hour*3600+d.Minute*60+d.Second)
	nsec := int64(d.Fraction) * 100
	if d.Kind != Offset || d.UTC {
		return time.Unix(sec, nsec).UTC()
	}
	off := d.OffsetMinutes * 60
	return time.Unix(sec-int64(off), nsec).In(time.FixedZone("", off))
}

// FromTime splits t into an Offset DateTime, truncating to 100ns ticks.
func FromTime(t time.Time) DateTime {
	_, off := t.Zone()
	return DateTime{
		Year:          t.Year(),
		Month:         int(t.Month()),
		Day:           t.Day(),
		Hour:          t.Hour(),
		Minute:        t.Minute(),
		Second:        t.Second(),
		Fraction:      t.Nanosecond() / 100,
		Kind:          Offset,
		OffsetMinutes: off / 60,
		UTC:           t.Location() == time.UTC,
	}
}

// AppendText appends d in the same shape it was parsed from. Fractions are
// written with the fewest digits that keep every tick.
func (d DateTime) AppendText(dst []byte) ([]byte, error) {
	if d.Year < 1 || d.Year > 9999 {
		return dst, ErrYearRange
	}
	dst = appendDigits(dst, d.Year, 4)
	dst = append(dst, '-')
	dst = appendDigits(dst, d.Month, 2)
	dst = append(dst, '-')
	dst = appendDigits(dst, d.Day, 2)
	if d.Kind == DateOnly {
		return dst, nil
	}
	dst = append(dst, 'T')
	dst = appendDigits(dst, d.Hour, 2)
	dst = append(dst, ':')
	dst = appendDigits(dst, d.Minute, 2)
	dst = append(dst, ':')
	dst = appendDigits(dst, d.Second, 2)
	if d.Fraction > 0 {
		frac, n := d.Fraction, maxFracDigits
		for frac%10 == 0 {
			frac /= 10
			n--
		}
		dst = append(dst, '.')
		dst = appendDigits(dst, frac, n)
	}
	if d.Kind != Offset {
		return dst, nil
	}
	if d.UTC {
		return append(dst, 'Z'), nil
	}
	off := d.OffsetMinutes
	if off < 0 {
		dst = append(dst, '-')
		off = -off
	} else {
		dst = append(dst, '+')
	}
	dst = appendDigits(dst, off/60, 2)
	dst = append(dst, ':')
	return appendDigits(dst, off%60, 2), nil
}

// AppendDateTime appends t in the offset form, using Z for UTC.
func AppendDateTime(dst []byte, t time.Time) ([]byte, error) {
	return FromTime(t).AppendText(dst)
}

func appendDigits(dst []byte, v, width int) []byte {
	var buf [8]byte
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, buf[:width]...)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func digits2(b []byte, at int) (int, bool) {
	if at+2 > len(b) || !isDigit(b[at]) || !isDigit(b[at+1]) {
		return 0, false
	}
	return int(b[at]-'0')*10 + int(b[at+1]-'0'), true
}

func digits4(b []byte, at int) (int, bool) {
	hi, ok := digits2(b, at)
	if !ok {
		return 0, false
	}
	lo, ok := digits2(b, at+2)
	if !ok {
		return 0, false
	}
	return hi*100 + lo, true
}
