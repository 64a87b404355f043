package transcode

import (
	"strconv"
	"time"

	"github.com/parquio/parquio/pkg/encoding"
	"github.com/parquio/parquio/pkg/xerrors"
)

// Drivers disagree on how they surface values through database/sql: lib
// integers arrive as any of the int widths, and the MySQL text protocol
// hands back []byte for everything including numbers. The coercions below
// normalize whatever a driver produced into the one representation each
// buffer slot needs.

func asBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case []byte:
		return parseBool(string(x))
	case string:
		return parseBool(x)
	}
	return false, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to boolean", v)
}

func parseBool(s string) (bool, error) {
	switch s {
	case "1", "t", "T", "true", "TRUE", "True":
		return true, nil
	case "0", "f", "F", "false", "FALSE", "False":
		return false, nil
	}
	return false, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot parse %q as boolean", s)
}

func asInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case []byte:
		return parseInt(string(x))
	case string:
		return parseInt(x)
	}
	return 0, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to integer", v)
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Unsigned BIGINT values above the signed range keep their bit
		// pattern, matching how the column is annotated.
		u, uerr := strconv.ParseUint(s, 10, 64)
		if uerr != nil {
			return 0, xerrors.Wrapf(err, xerrors.ErrorTypeEncode, "cannot parse %q as integer", s)
		}
		return int64(u), nil
	}
	return n, nil
}

func asFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case []byte:
		return parseFloat(string(x))
	case string:
		return parseFloat(x)
	}
	return 0, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to float", v)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, xerrors.Wrapf(err, xerrors.ErrorTypeEncode, "cannot parse %q as float", s)
	}
	return f, nil
}

func asBytes(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to bytes", v)
}

func asDate(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return encoding.ParseDate(x)
	case string:
		return encoding.ParseDate([]byte(x))
	}
	return time.Time{}, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to date", v)
}

func asTimestamp(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return encoding.ParseTimestamp(x)
	case string:
		return encoding.ParseTimestamp([]byte(x))
	}
	return time.Time{}, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to timestamp", v)
}

func asTimeOfDay(v interface{}) (encoding.TimeOfDay, error) {
	switch x := v.(type) {
	case time.Time:
		return encoding.TimeOfDay{
			Hour:       x.Hour(),
			Minute:     x.Minute(),
			Second:     x.Second(),
			Nanosecond: x.Nanosecond(),
		}, nil
	case []byte:
		return encoding.ParseTime(x)
	case string:
		return encoding.ParseTime([]byte(x))
	}
	return encoding.TimeOfDay{}, xerrors.Newf(xerrors.ErrorTypeEncode, "cannot convert %T to time of day", v)
}
