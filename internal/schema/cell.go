package schema

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are common date formats (no time component).
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
	"20060102",
}

// timestampLayouts are common timestamp formats (with time component).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}

var (
	truthy = map[string]struct{}{"true": {}, "t": {}, "yes": {}, "y": {}, "1": {}}
	falsy  = map[string]struct{}{"false": {}, "f": {}, "no": {}, "n": {}, "0": {}}
)

// ReadCell converts a raw cell into the field's native value. Cells equal to
// one of missing are returned as nil. ok is false when the cell cannot be
// represented in the field's type.
func (f Field) ReadCell(cell any, missing []string) (value any, ok bool) {
	if cell == nil {
		return nil, true
	}
	if s, isStr := cell.(string); isStr && slices.Contains(missing, s) {
		return nil, true
	}
	switch f.Type {
	case "", TypeAny:
		return cell, true
	case TypeString:
		s, isStr := cell.(string)
		return s, isStr
	case TypeInteger:
		return readInteger(cell)
	case TypeNumber:
		return readNumber(cell)
	case TypeBoolean:
		return readBoolean(cell)
	case TypeDate:
		return readTime(cell, f.Format, dateLayouts)
	case TypeDatetime:
		return readTime(cell, f.Format, timestampLayouts)
	default:
		return cell, true
	}
}

func readInteger(cell any) (any, bool) {
	switch v := cell.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return n, true
		}
	}
	return nil, false
}

func readNumber(cell any) (any, bool) {
	switch v := cell.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n, true
		}
	}
	return nil, false
}

func readBoolean(cell any) (any, bool) {
	switch v := cell.(type) {
	case bool:
		return v, true
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if _, ok := truthy[s]; ok {
			return true, true
		}
		if _, ok := falsy[s]; ok {
			return false, true
		}
	}
	return nil, false
}

// readTime parses string cells with the field format when it is a Go layout,
// otherwise with the given candidate layouts.
func readTime(cell any, format string, layouts []string) (any, bool) {
	switch v := cell.(type) {
	case time.Time:
		return v, true
	case string:
		st := strings.TrimSpace(v)
		if format != "" && format != "default" && format != "any" {
			t, err := time.Parse(format, st)
			return t, err == nil
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, st); err == nil {
				return t, true
			}
		}
	}
	return nil, false
}

// Key renders a typed cell for unique and lookup keys. Values keep their
// exact text and carry a type tag, so "1" and 1 differ while integer 1 and
// number 1.0 share one numeric form.
func Key(cell any) string {
	switch v := cell.(type) {
	case nil:
		return "\x00"
	case string:
		return "s:" + v
	case bool:
		return "b:" + strconv.FormatBool(v)
	case int:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case int32:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case int64:
		return "n:" + strconv.FormatInt(v, 10)
	case float32:
		return numberKey(float64(v))
	case float64:
		return numberKey(v)
	case time.Time:
		return "t:" + v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

func numberKey(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return "n:" + strconv.FormatInt(int64(f), 10)
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// Stringify renders a cell for labels and messages: nil becomes "", strings are
// trimmed, other values use their default formatting.
func Stringify(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
