// Package dateutil converts between the two date encodings the snapshot
// layout uses: 6-digit yymmdd directory names and 8-digit yyyymmdd keys.
package dateutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var yymmddRe = regexp.MustCompile(`^\d{6}$`)

// IsYYMMDD reports whether s is a 6-digit day code.
func IsYYMMDD(s string) bool {
	return yymmddRe.MatchString(s)
}

// YYMMDDToYYYYMMDD expands a 6-digit day code to 8 digits.
// 00~69 => 2000년대, 70~99 => 1900년대 (보수적 처리). Invalid input => "".
func YYMMDDToYYYYMMDD(yymmdd string) string {
	yymmdd = strings.TrimSpace(yymmdd)
	if !IsYYMMDD(yymmdd) {
		return ""
	}
	yy, _ := strconv.Atoi(yymmdd[:2])
	century := 2000
	if yy > 69 {
		century = 1900
	}
	return strconv.Itoa(century+yy) + yymmdd[2:]
}

// YYYYMMDDToYYMMDD shortens an 8-digit day key (dashes tolerated) to 6 digits.
func YYYYMMDDToYYMMDD(yyyymmdd string) string {
	s := strings.ReplaceAll(strings.TrimSpace(yyyymmdd), "-", "")
	if len(s) != 8 {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return s[2:]
}

// SortKey derives an 8-digit sortable key from a date in either encoding.
// Unparseable input => "" (callers sort those rows last).
func SortKey(s string) string {
	v := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	switch len(v) {
	case 6:
		return YYMMDDToYYYYMMDD(v)
	case 8:
		if YYYYMMDDToYYMMDD(v) == "" {
			return ""
		}
		return v
	default:
		return ""
	}
}

// ParseDay parses a day in either encoding into a time.Time (local midnight).
func ParseDay(s string) (time.Time, bool) {
	key := SortKey(s)
	if key == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("20060102", key, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
