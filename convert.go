package main

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// Sentinels for irrecoverably corrupt temporal values. Greppable on the
// target after a run.
const (
	epochTimestamp = "1970-01-01 00:00:00"
	epochDate      = "1970-01-01"
)

var (
	leadingDigitsRe = regexp.MustCompile(`^\d+`)
	tzOffsetRe      = regexp.MustCompile(`(:\d{2}(\.\d+)?)(Z|[+-]\d{2}(:?\d{2})?)$`)
	timestampRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}( \d{2}:\d{2}:\d{2}(\.\d+)?)?$`)
	timeOfDayRe     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(\.\d+)?$`)
)

// convertValue casts one source value into a target-acceptable form. The
// returned warn string is non-empty when a sentinel replacement or lossy
// normalization happened; conversion itself never fails a row.
func convertValue(val any, col *Column) (any, string) {
	if val == nil {
		return nil, ""
	}

	switch col.Kind {
	case convBool:
		return convertBool(val), ""
	case convJSON:
		return convertJSON(val, col)
	case convUUID:
		return asString(val), ""
	case convBytes:
		return convertBytes(val)
	case convTimestamp:
		return convertTimestamp(val, col)
	case convDate:
		return convertDate(val, col)
	case convTime:
		return convertTimeOfDay(val, col)
	case convNumeric:
		return convertNumeric(val, col)
	case convArray:
		return convertArray(val, col)
	default:
		return val, ""
	}
}

var truthyStrings = map[string]bool{
	"t": true, "true": true, "1": true, "yes": true, "on": true,
}

func convertBool(val any) any {
	switch v := val.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		if truthyStrings[strings.ToLower(strings.TrimSpace(v))] {
			return 1
		}
		return 0
	case []byte:
		if truthyStrings[strings.ToLower(strings.TrimSpace(string(v)))] {
			return 1
		}
		return 0
	case int64:
		if v != 0 {
			return 1
		}
		return 0
	}
	return 0
}

func convertJSON(val any, col *Column) (any, string) {
	switch v := val.(type) {
	case []byte:
		if json.Valid(v) {
			return string(v), ""
		}
		enc, _ := json.Marshal(string(v))
		return string(enc), fmt.Sprintf("column %s: invalid JSON re-encoded as string", col.Name)
	case string:
		if json.Valid([]byte(v)) {
			return v, ""
		}
		enc, _ := json.Marshal(v)
		return string(enc), fmt.Sprintf("column %s: invalid JSON re-encoded as string", col.Name)
	default:
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Sprintf("column %s: unencodable JSON value %T replaced with NULL", col.Name, val)
		}
		return string(enc), ""
	}
}

func convertBytes(val any) (any, string) {
	switch v := val.(type) {
	case []byte:
		return v, ""
	case string:
		return []byte(v), ""
	case io.Reader:
		// stream handles are drained fully so the writer sees plain bytes
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Sprintf("bytea stream drain failed: %v", err)
		}
		return b, ""
	}
	return val, ""
}

func convertTimestamp(val any, col *Column) (any, string) {
	switch v := val.(type) {
	case time.Time:
		if y := v.Year(); y < 1900 || y > 2100 {
			return epochTimestamp, fmt.Sprintf("column %s: year %d outside [1900,2100], epoch substituted", col.Name, y)
		}
		return v.Format("2006-01-02 15:04:05"), ""
	case string:
		norm := normalizeTimestamp(v)
		if norm == epochTimestamp && strings.TrimSpace(v) != epochTimestamp {
			return norm, fmt.Sprintf("column %s: corrupt timestamp %q, epoch substituted", col.Name, v)
		}
		return norm, ""
	case []byte:
		return convertTimestamp(string(v), col)
	}
	return val, ""
}

// normalizeTimestamp defensively normalizes a timestamp string. Invalid
// values never abort the run: they collapse to the epoch sentinel.
func normalizeTimestamp(s string) string {
	s = strings.TrimSpace(s)

	// An extra year digit is the observed corruption pattern
	// ("202511-11-13 ..."): a leading digit run of 5+ is unrecoverable.
	if run := leadingDigitsRe.FindString(s); len(run) >= 5 {
		return epochTimestamp
	}

	s = strings.TrimSpace(tzOffsetRe.ReplaceAllString(s, "$1"))
	s = strings.Replace(s, "T", " ", 1)

	if !timestampRe.MatchString(s) {
		t, ok := parseCalendar(s)
		if !ok {
			return epochTimestamp
		}
		s = t.Format("2006-01-02 15:04:05")
	}

	year := 0
	fmt.Sscanf(s[:4], "%d", &year)
	if year < 1900 || year > 2100 {
		return epochTimestamp
	}

	if len(s) == 10 {
		return s + " 00:00:00"
	}
	// drop fractional seconds, DATETIME keeps whole seconds
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

var calendarLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

func parseCalendar(s string) (time.Time, bool) {
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func convertDate(val any, col *Column) (any, string) {
	switch v := val.(type) {
	case time.Time:
		if y := v.Year(); y < 1900 || y > 2100 {
			return epochDate, fmt.Sprintf("column %s: year %d outside [1900,2100], epoch substituted", col.Name, y)
		}
		return v.Format("2006-01-02"), ""
	case string:
		norm := normalizeTimestamp(v)
		if norm == epochTimestamp && strings.TrimSpace(v) != epochTimestamp && strings.TrimSpace(v) != epochDate {
			return epochDate, fmt.Sprintf("column %s: corrupt date %q, epoch substituted", col.Name, v)
		}
		return norm[:10], ""
	case []byte:
		return convertDate(string(v), col)
	}
	return val, ""
}

func convertTimeOfDay(val any, col *Column) (any, string) {
	s := strings.TrimSpace(asString(val))
	if s == "" {
		return nil, ""
	}
	s = tzOffsetRe.ReplaceAllString(s, "$1")
	if timeOfDayRe.MatchString(s) {
		return s, ""
	}
	// one reformat attempt before giving up
	for _, layout := range []string{"15:04", "15:04:05", "3:04:05 PM", "3:04 PM"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), ""
		}
	}
	return nil, fmt.Sprintf("column %s: invalid time %q replaced with NULL", col.Name, s)
}

func convertNumeric(val any, col *Column) (any, string) {
	s := asString(val)
	intPart, _, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if numericLiteralRe.MatchString(strings.TrimPrefix(s, "-")) && len(intPart) > 10 {
		// DECIMAL(20,10) holds ten integer digits; beyond that the target
		// truncates or rejects, which deserves a trace
		return val, fmt.Sprintf("column %s: numeric %q exceeds DECIMAL(20,10) integer range", col.Name, s)
	}
	return val, ""
}

// convertArray turns a PostgreSQL array into a JSON array. Values arrive
// either as the PG text literal ("{1,2,NULL,4}") or as a decoded Go slice.
func convertArray(val any, col *Column) (any, string) {
	switch v := val.(type) {
	case string:
		return pgArrayToJSON(v, col)
	case []byte:
		return pgArrayToJSON(string(v), col)
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice {
		enc, err := json.Marshal(val)
		if err == nil {
			return string(enc), ""
		}
	}
	return nil, fmt.Sprintf("column %s: unconvertible array value %T replaced with NULL", col.Name, val)
}

func pgArrayToJSON(lit string, col *Column) (any, string) {
	elems, ok := parsePGArray(lit)
	if !ok {
		return nil, fmt.Sprintf("column %s: malformed array literal %q replaced with NULL", col.Name, lit)
	}
	enc, err := json.Marshal(elems)
	if err != nil {
		return nil, fmt.Sprintf("column %s: array encode failed: %v", col.Name, err)
	}
	return string(enc), ""
}

// parsePGArray parses a one-dimensional PG array literal into JSON-ready
// elements. Unquoted numeric elements keep numeric form; NULL maps to nil.
func parsePGArray(lit string) ([]any, bool) {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 || lit[0] != '{' || lit[len(lit)-1] != '}' {
		return nil, false
	}
	body := lit[1 : len(lit)-1]
	if body == "" {
		return []any{}, true
	}

	var elems []any
	var cur strings.Builder
	inQuote := false
	quoted := false

	flush := func() {
		raw := cur.String()
		cur.Reset()
		if quoted {
			elems = append(elems, raw)
		} else {
			elems = append(elems, pgArrayScalar(strings.TrimSpace(raw)))
		}
		quoted = false
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(body):
			cur.WriteByte(body[i+1])
			i++
		case c == '"':
			inQuote = !inQuote
			quoted = true
		case c == ',' && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, false
	}
	flush()
	return elems, true
}

func pgArrayScalar(s string) any {
	if strings.EqualFold(s, "null") {
		return nil
	}
	if s == "t" || s == "true" {
		return true
	}
	if s == "f" || s == "false" {
		return false
	}
	if numericLiteralRe.MatchString(s) {
		return json.Number(s)
	}
	return s
}

func asString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
