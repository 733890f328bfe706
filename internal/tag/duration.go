package tag

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var durationUnits = map[string]time.Duration{
	"d":   24 * time.Hour,
	"h":   time.Hour,
	"mn":  time.Minute,
	"min": time.Minute,
	"m":   time.Minute,
	"s":   time.Second,
}

// ParseDuration reads a cache duration literal and returns it in the form
// time.ParseDuration accepts. Blank, null and forever mean no expiry and
// yield "". A bare integer counts seconds; otherwise the literal is a
// sequence of integers with units d, h, mn, min, m or s, as in "1h30mn".
func ParseDuration(lit string) (string, error) {
	s := strings.TrimSpace(lit)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	switch strings.ToLower(s) {
	case "", "null", "forever":
		return "", nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return "", fmt.Errorf("negative cache duration: %s", lit)
		}
		return (time.Duration(n) * time.Second).String(), nil
	}
	var total time.Duration
	rest := s
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		j := i
		for j < len(rest) && (rest[j] >= 'a' && rest[j] <= 'z' || rest[j] >= 'A' && rest[j] <= 'Z') {
			j++
		}
		if i == 0 || j == i {
			return "", fmt.Errorf("invalid cache duration: %s", lit)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return "", fmt.Errorf("invalid cache duration: %s", lit)
		}
		unit, ok := durationUnits[strings.ToLower(rest[i:j])]
		if !ok {
			return "", fmt.Errorf("invalid cache duration unit %q in %s", rest[i:j], lit)
		}
		total += time.Duration(n) * unit
		rest = strings.TrimSpace(rest[j:])
	}
	return total.String(), nil
}
