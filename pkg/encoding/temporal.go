package encoding

import (
	"fmt"
	"time"

	"github.com/parquio/parquio/pkg/xerrors"
)

const (
	microsPerSecond = 1_000_000
	millisPerSecond = 1_000
	secondsPerDay   = 86_400
)

// TimeOfDay is a wall-clock time with nanosecond precision, detached from
// any calendar date.
type TimeOfDay struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// ParseTime parses the representation HH:MM:SS[.fraction]. Hour, minute and
// second are fixed two-digit fields at byte offsets 0-1, 3-4 and 6-7.
// Fractional digits beyond nanosecond precision are truncated, not rounded;
// fewer than nine digits are right-padded with zeros.
func ParseTime(b []byte) (TimeOfDay, error) {
	if len(b) < 8 || b[2] != ':' || b[5] != ':' {
		return TimeOfDay{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed time %q", b)
	}

	hour, ok1 := twoDigits(b[0], b[1])
	minute, ok2 := twoDigits(b[3], b[4])
	second, ok3 := twoDigits(b[6], b[7])
	if !ok1 || !ok2 || !ok3 || hour > 23 || minute > 59 || second > 59 {
		return TimeOfDay{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed time %q", b)
	}

	nanos := 0
	if len(b) > 8 {
		if b[8] != '.' {
			return TimeOfDay{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed time %q", b)
		}
		var err error
		nanos, err = parseFraction(b[9:])
		if err != nil {
			return TimeOfDay{}, xerrors.Wrapf(err, xerrors.ErrorTypeEncode, "malformed time %q", b)
		}
	}

	return TimeOfDay{Hour: hour, Minute: minute, Second: second, Nanosecond: nanos}, nil
}

// parseFraction converts a fractional-second digit run into nanoseconds.
// Digits beyond the ninth are dropped.
func parseFraction(b []byte) (int, error) {
	nanos := 0
	seen := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, xerrors.Newf(xerrors.ErrorTypeEncode, "invalid fraction digit %q", c)
		}
		if seen < 9 {
			nanos = nanos*10 + int(c-'0')
			seen++
		}
	}
	for ; seen < 9; seen++ {
		nanos *= 10
	}
	return nanos, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (t TimeOfDay) secondsSinceMidnight() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// MillisSinceMidnight returns the time of day as milliseconds since
// midnight, truncating sub-millisecond digits.
func (t TimeOfDay) MillisSinceMidnight() int32 {
	return int32(t.secondsSinceMidnight()*millisPerSecond + t.Nanosecond/1_000_000)
}

// MicrosSinceMidnight returns the time of day as microseconds since
// midnight, truncating sub-microsecond digits. One day's range always fits
// 64 bits by construction.
func (t TimeOfDay) MicrosSinceMidnight() int64 {
	return int64(t.secondsSinceMidnight())*microsPerSecond + int64(t.Nanosecond/1_000)
}

// String renders the time of day as HH:MM:SS[.fffffffff], trimming a zero
// fraction entirely.
func (t TimeOfDay) String() string {
	if t.Nanosecond == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%09d", t.Hour, t.Minute, t.Second, t.Nanosecond)
}

// DaysSinceEpoch converts the calendar date of t to days since 1970-01-01,
// negative for dates before the epoch. Only the date fields of t are used.
func DaysSinceEpoch(t time.Time) int32 {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int32(midnight.Unix() / secondsPerDay)
}

// DateFromDays is the inverse of DaysSinceEpoch.
func DateFromDays(days int32) time.Time {
	return time.Unix(int64(days)*secondsPerDay, 0).UTC()
}

// MicrosSinceEpoch converts a timestamp to microseconds since the epoch,
// truncating nanoseconds by integer division.
func MicrosSinceEpoch(t time.Time) int64 {
	return t.Unix()*microsPerSecond + int64(t.Nanosecond()/1_000)
}

// TimestampFromMicros is the inverse of MicrosSinceEpoch.
func TimestampFromMicros(us int64) time.Time {
	return time.Unix(us/microsPerSecond, (us%microsPerSecond)*1_000).UTC()
}

// TimeFromMillis renders milliseconds since midnight back as a time of day.
func TimeFromMillis(ms int32) TimeOfDay {
	secs := int(ms) / millisPerSecond
	return TimeOfDay{
		Hour:       secs / 3600,
		Minute:     secs / 60 % 60,
		Second:     secs % 60,
		Nanosecond: int(ms) % millisPerSecond * 1_000_000,
	}
}

// TimeFromMicros renders microseconds since midnight back as a time of day.
func TimeFromMicros(us int64) TimeOfDay {
	secs := int(us / microsPerSecond)
	return TimeOfDay{
		Hour:       secs / 3600,
		Minute:     secs / 60 % 60,
		Second:     secs % 60,
		Nanosecond: int(us%microsPerSecond) * 1_000,
	}
}

// ParseDate parses the representation YYYY-MM-DD.
func ParseDate(b []byte) (time.Time, error) {
	if len(b) != 10 || b[4] != '-' || b[7] != '-' {
		return time.Time{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed date %q", b)
	}
	y1, ok1 := twoDigits(b[0], b[1])
	y2, ok2 := twoDigits(b[2], b[3])
	month, ok3 := twoDigits(b[5], b[6])
	day, ok4 := twoDigits(b[8], b[9])
	if !ok1 || !ok2 || !ok3 || !ok4 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed date %q", b)
	}
	d := time.Date(y1*100+y2, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes impossible dates (Feb 31 becomes Mar 3), so an
	// unchanged round trip is the calendar validity check.
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed date %q", b)
	}
	return d, nil
}

// ParseTimestamp parses the representation YYYY-MM-DD HH:MM:SS[.fraction],
// with either a space or a 'T' separating date and time.
func ParseTimestamp(b []byte) (time.Time, error) {
	if len(b) < 19 || (b[10] != ' ' && b[10] != 'T') {
		return time.Time{}, xerrors.Newf(xerrors.ErrorTypeEncode, "malformed timestamp %q", b)
	}
	date, err := ParseDate(b[:10])
	if err != nil {
		return time.Time{}, xerrors.Wrapf(err, xerrors.ErrorTypeEncode, "malformed timestamp %q", b)
	}
	tod, err := ParseTime(b[11:])
	if err != nil {
		return time.Time{}, xerrors.Wrapf(err, xerrors.ErrorTypeEncode, "malformed timestamp %q", b)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		tod.Hour, tod.Minute, tod.Second, tod.Nanosecond, time.UTC), nil
}
