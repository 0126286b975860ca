package core

import (
	"strconv"
	"strings"

	Text "github.com/linkdotnet/golang-stringbuilder"
)

type DateTimeType int

const (
	DateTimeGYear DateTimeType = iota
	DateTimeGYearMonth
	DateTimeDate
	DateTimeDateTime
	DateTimeGMonth
	DateTimeGMonthDay
	DateTimeGDay
	DateTimeTime
)

const (
	DateTimeYearOffset = 2000

	// monthDay = month * 32 + day, 9 bits
	DateTimeMonthMultiplicator = 32
	DateTimeNumberBitsMonthDay = 9

	// time = ((hour * 64) + minute) * 64 + second, 17 bits
	DateTimeNumberBitsTime = 17

	// timezone = hours * 64 + minutes, offset by 896, 11 bits
	DateTimeNumberBitsTimeZone      = 11
	DateTimeTimeZoneOffsetInMinutes = 896
)

// DateTimeValue holds the component encoding of an XSD date-time family
// value. Fractional seconds keep their digits reversed, the way they travel
// on the wire, so leading zeros survive.
type DateTimeValue struct {
	kind                   DateTimeType
	year                   int
	monthDay               int
	time                   int
	fractionalSecs         int
	presenceFractionalSecs bool
	presenceTimezone       bool
	timezone               int
}

func NewDateTimeValue(kind DateTimeType, year, monthDay, time, fractionalSecs int,
	presenceTimezone bool, timezone int) *DateTimeValue {
	return &DateTimeValue{
		kind:                   kind,
		year:                   year,
		monthDay:               monthDay,
		time:                   time,
		fractionalSecs:         fractionalSecs,
		presenceFractionalSecs: fractionalSecs != 0,
		presenceTimezone:       presenceTimezone,
		timezone:               timezone,
	}
}

func (v *DateTimeValue) Kind() ValueKind            { return ValueKindDateTime }
func (v *DateTimeValue) GetDateTimeType() DateTimeType { return v.kind }

/*
	Lexical parsing
*/

// DateTimeValueParse parses the lexical form of the given date-time kind,
// returning nil on malformed input.
func DateTimeValueParse(s string, kind DateTimeType) (*DateTimeValue, error) {
	sb := Text.StringBuilder{}
	sb.Append(strings.TrimSpace(s))

	var year, monthDay, timeVal, fractionalSecs int
	var err error

	switch kind {
	case DateTimeGYear:
		if year, err = dtParseYear(&sb); err != nil {
			return nil, err
		}
	case DateTimeGYearMonth:
		if year, err = dtParseYear(&sb); err != nil {
			return nil, err
		}
		if err = dtExpect(&sb, '-'); err != nil {
			return nil, err
		}
		m, err := dtParseDigits(&sb, 2)
		if err != nil {
			return nil, err
		}
		monthDay = m * DateTimeMonthMultiplicator
	case DateTimeDate, DateTimeDateTime:
		if year, err = dtParseYear(&sb); err != nil {
			return nil, err
		}
		if err = dtExpect(&sb, '-'); err != nil {
			return nil, err
		}
		if monthDay, err = dtParseMonthDay(&sb); err != nil {
			return nil, err
		}
		if kind == DateTimeDateTime {
			if err = dtExpect(&sb, 'T'); err != nil {
				return nil, err
			}
			if timeVal, fractionalSecs, err = dtParseTime(&sb); err != nil {
				return nil, err
			}
		}
	case DateTimeGMonth:
		if err = dtExpect(&sb, '-'); err != nil {
			return nil, err
		}
		if err = dtExpect(&sb, '-'); err != nil {
			return nil, err
		}
		m, err := dtParseDigits(&sb, 2)
		if err != nil {
			return nil, err
		}
		monthDay = m * DateTimeMonthMultiplicator
	case DateTimeGMonthDay:
		if err = dtExpect(&sb, '-'); err != nil {
			return nil, err
		}
		if err = dtExpect(&sb, '-'); err != nil {
			return nil, err
		}
		if monthDay, err = dtParseMonthDay(&sb); err != nil {
			return nil, err
		}
	case DateTimeGDay:
		for i := 0; i < 3; i++ {
			if err = dtExpect(&sb, '-'); err != nil {
				return nil, err
			}
		}
		if monthDay, err = dtParseDigits(&sb, 2); err != nil {
			return nil, err
		}
	case DateTimeTime:
		if timeVal, fractionalSecs, err = dtParseTime(&sb); err != nil {
			return nil, err
		}
	default:
		return nil, Errorf(CodeUnexpected, "unsupported date-time type %d", kind)
	}

	presenceTimezone, timezone, err := dtParseTimezone(&sb)
	if err != nil {
		return nil, err
	}
	if sb.Len() != 0 {
		return nil, Errorf(CodeInvalidStringOperation, "trailing characters in date-time: %q", s)
	}

	return NewDateTimeValue(kind, year, monthDay, timeVal, fractionalSecs, presenceTimezone, timezone), nil
}

func dtExpect(sb *Text.StringBuilder, c rune) error {
	if sb.Len() == 0 || sb.RuneAt(0) != c {
		return Errorf(CodeInvalidStringOperation, "expected %q in date-time", string(c))
	}
	return sb.Remove(0, 1)
}

func dtParseDigits(sb *Text.StringBuilder, n int) (int, error) {
	if sb.Len() < n {
		return 0, NewError(CodeInvalidStringOperation, "truncated date-time component")
	}
	s, err := sb.Substring(0, n)
	if err != nil {
		return 0, NewError(CodeInvalidStringOperation, "truncated date-time component")
	}
	v, convErr := strconv.Atoi(s)
	if convErr != nil {
		return 0, Errorf(CodeInvalidStringOperation, "bad date-time digits: %q", s)
	}
	if err := sb.Remove(0, n); err != nil {
		return 0, NewError(CodeInvalidStringOperation, "truncated date-time component")
	}
	return v, nil
}

func dtParseYear(sb *Text.StringBuilder) (int, error) {
	negative := false
	if sb.Len() > 0 && sb.RuneAt(0) == '-' {
		negative = true
		if err := sb.Remove(0, 1); err != nil {
			return 0, err
		}
	}
	digits := dtCountDigits(sb)
	if digits < 4 {
		return 0, NewError(CodeInvalidStringOperation, "year needs at least four digits")
	}
	year, err := dtParseDigits(sb, digits)
	if err != nil {
		return 0, err
	}
	if negative {
		year = -year
	}
	return year, nil
}

func dtParseMonthDay(sb *Text.StringBuilder) (int, error) {
	month, err := dtParseDigits(sb, 2)
	if err != nil {
		return 0, err
	}
	if err := dtExpect(sb, '-'); err != nil {
		return 0, err
	}
	day, err := dtParseDigits(sb, 2)
	if err != nil {
		return 0, err
	}
	return month*DateTimeMonthMultiplicator + day, nil
}

func dtParseTime(sb *Text.StringBuilder) (timeVal, fractionalSecs int, err error) {
	hour, err := dtParseDigits(sb, 2)
	if err != nil {
		return 0, 0, err
	}
	if err = dtExpect(sb, ':'); err != nil {
		return 0, 0, err
	}
	minute, err := dtParseDigits(sb, 2)
	if err != nil {
		return 0, 0, err
	}
	if err = dtExpect(sb, ':'); err != nil {
		return 0, 0, err
	}
	second, err := dtParseDigits(sb, 2)
	if err != nil {
		return 0, 0, err
	}
	timeVal = ((hour*64)+minute)*64 + second

	if sb.Len() > 0 && sb.RuneAt(0) == '.' {
		if err = sb.Remove(0, 1); err != nil {
			return 0, 0, err
		}
		digits := dtCountDigits(sb)
		if digits == 0 {
			return 0, 0, NewError(CodeInvalidStringOperation, "empty fractional seconds")
		}
		frac, err := sb.Substring(0, digits)
		if err != nil {
			return 0, 0, err
		}
		rev := Text.StringBuilder{}
		fractionalSecs64, convErr := strconv.ParseInt(rev.Append(frac).Reverse().ToString(), 10, 32)
		if convErr != nil {
			return 0, 0, Errorf(CodeInvalidStringOperation, "bad fractional seconds: %q", frac)
		}
		fractionalSecs = int(fractionalSecs64)
		if err = sb.Remove(0, digits); err != nil {
			return 0, 0, err
		}
	}
	return timeVal, fractionalSecs, nil
}

func dtParseTimezone(sb *Text.StringBuilder) (bool, int, error) {
	if sb.Len() == 0 {
		return false, 0, nil
	}
	if sb.RuneAt(0) == 'Z' {
		if err := sb.Remove(0, 1); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}

	sign := 1
	switch sb.RuneAt(0) {
	case '+':
	case '-':
		sign = -1
	default:
		return false, 0, Errorf(CodeInvalidStringOperation, "unexpected date-time suffix %q", string(sb.RuneAt(0)))
	}
	if err := sb.Remove(0, 1); err != nil {
		return false, 0, err
	}
	hours, err := dtParseDigits(sb, 2)
	if err != nil {
		return false, 0, err
	}
	if err := dtExpect(sb, ':'); err != nil {
		return false, 0, err
	}
	minutes, err := dtParseDigits(sb, 2)
	if err != nil {
		return false, 0, err
	}
	return true, sign * (hours*64 + minutes), nil
}

func dtCountDigits(sb *Text.StringBuilder) int {
	n := 0
	for n < sb.Len() && sb.RuneAt(n) >= '0' && sb.RuneAt(n) <= '9' {
		n++
	}
	return n
}

/*
	Lexical printing
*/

func (v *DateTimeValue) ToString() string {
	sb := Text.StringBuilder{}

	switch v.kind {
	case DateTimeGYear:
		dtAppendYear(&sb, v.year)
	case DateTimeGYearMonth:
		dtAppendYear(&sb, v.year)
		sb.Append("-")
		dtAppendPadded(&sb, v.monthDay/DateTimeMonthMultiplicator, 2)
	case DateTimeDate:
		dtAppendYear(&sb, v.year)
		dtAppendMonthDay(&sb, v.monthDay)
	case DateTimeDateTime:
		dtAppendYear(&sb, v.year)
		dtAppendMonthDay(&sb, v.monthDay)
		sb.Append("T")
		dtAppendTime(&sb, v.time, v.presenceFractionalSecs, v.fractionalSecs)
	case DateTimeGMonth:
		sb.Append("--")
		dtAppendPadded(&sb, v.monthDay/DateTimeMonthMultiplicator, 2)
	case DateTimeGMonthDay:
		sb.Append("--")
		dtAppendPadded(&sb, v.monthDay/DateTimeMonthMultiplicator, 2)
		sb.Append("-")
		dtAppendPadded(&sb, v.monthDay%DateTimeMonthMultiplicator, 2)
	case DateTimeGDay:
		sb.Append("---")
		dtAppendPadded(&sb, v.monthDay, 2)
	case DateTimeTime:
		dtAppendTime(&sb, v.time, v.presenceFractionalSecs, v.fractionalSecs)
	}

	if v.presenceTimezone {
		dtAppendTimezone(&sb, v.timezone)
	}
	return sb.ToString()
}

func dtAppendYear(sb *Text.StringBuilder, year int) {
	if year < 0 {
		sb.Append("-")
		year = -year
	}
	dtAppendPadded(sb, year, 4)
}

func dtAppendMonthDay(sb *Text.StringBuilder, monthDay int) {
	sb.Append("-")
	dtAppendPadded(sb, monthDay/DateTimeMonthMultiplicator, 2)
	sb.Append("-")
	dtAppendPadded(sb, monthDay%DateTimeMonthMultiplicator, 2)
}

func dtAppendTime(sb *Text.StringBuilder, timeVal int, hasFrac bool, frac int) {
	second := timeVal % 64
	minute := (timeVal / 64) % 64
	hour := timeVal / (64 * 64)
	dtAppendPadded(sb, hour, 2)
	sb.Append(":")
	dtAppendPadded(sb, minute, 2)
	sb.Append(":")
	dtAppendPadded(sb, second, 2)
	if hasFrac && frac != 0 {
		sb.Append(".")
		rev := Text.StringBuilder{}
		sb.Append(rev.Append(strconv.Itoa(frac)).Reverse().ToString())
	}
}

func dtAppendTimezone(sb *Text.StringBuilder, tz int) {
	if tz == 0 {
		sb.Append("Z")
		return
	}
	if tz < 0 {
		sb.Append("-")
		tz = -tz
	} else {
		sb.Append("+")
	}
	dtAppendPadded(sb, tz/64, 2)
	sb.Append(":")
	dtAppendPadded(sb, tz%64, 2)
}

func dtAppendPadded(sb *Text.StringBuilder, v, width int) {
	s := strconv.Itoa(v)
	for i := len(s); i < width; i++ {
		sb.Append("0")
	}
	sb.Append(s)
}

func (v *DateTimeValue) Equals(o Value) bool {
	od, ok := o.(*DateTimeValue)
	if !ok {
		return false
	}
	return v.kind == od.kind && v.year == od.year && v.monthDay == od.monthDay &&
		v.time == od.time && v.fractionalSecs == od.fractionalSecs &&
		v.presenceTimezone == od.presenceTimezone && v.timezone == od.timezone
}
