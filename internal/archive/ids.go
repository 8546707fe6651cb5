package archive

import (
	"fmt"
	"strings"
	"time"

	"dreamui/backend/internal/storage"
)

// SafeID collapses every run of characters outside [A-Za-z0-9_-] into a single
// underscore. It returns "" when nothing is left after trimming.
func SafeID(raw string) string {
	return storage.SafeName(raw)
}

// NormalizeMillis converts second-scale timestamps (below 1e12) to milliseconds
func NormalizeMillis(v int64) int64 {
	return storage.NormalizeMillis(v)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fallbackID(now time.Time) string {
	return fmt.Sprintf("arch_%d", millis(now))
}

// newID synthesizes "<type>_<unix-ms>" for entries created without an id
func newID(entryType string, now time.Time) string {
	if id := SafeID(fmt.Sprintf("%s_%d", entryType, millis(now))); id != "" {
		return id
	}
	return fallbackID(now)
}

// resolveID sanitizes a caller-supplied id or synthesizes one when absent
func resolveID(raw, entryType string, now time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return newID(entryType, now)
	}
	if id := SafeID(raw); id != "" {
		return id
	}
	return fallbackID(now)
}
