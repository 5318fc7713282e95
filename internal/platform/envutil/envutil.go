package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Str returns the trimmed value of the named environment variable, or def
// if it is unset or empty.
func Str(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// Duration parses the named environment variable as a whole number of
// seconds (matching this repo's *_SECONDS-suffixed config keys) and
// returns it as a time.Duration, or def if unset/unparseable.
func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}

// Bool parses the named environment variable as a boolean-ish string
// (true/1/yes, false/0/no), or def if unset/unparseable.
func Bool(name string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
