package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToInt parses a loosely formatted integer: surrounding quotes, whitespace,
// full-width digits and thousands separators are accepted. Empty input and
// "null" yield ok=false with no error.
func ToInt(val any) (n int, ok bool, err error) {
	var s string
	switch v := val.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return 0, false, nil
	default:
		s = fmt.Sprintf("%v", v)
	}

	s = NormalizeText(strings.Trim(strings.TrimSpace(s), `"`))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "null" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return n, true, nil
}
