package domain

import "strings"

// Level is the severity of an Event.
type Level int

const (
	LevelVerbose Level = iota
	LevelDebug
	LevelInformation
	LevelWarning
	LevelError
	LevelFatal
)

// String returns the level name as it appears in rendered digests.
func (l Level) String() string {
	switch l {
	case LevelVerbose:
		return "Verbose"
	case LevelDebug:
		return "Debug"
	case LevelInformation:
		return "Information"
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	case LevelFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// ParseLevel maps a level name or common abbreviation to a Level.
// An empty string maps to LevelInformation. The second result is false
// when the name is not recognised.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "information", "info", "inf", "i":
		return LevelInformation, true
	case "verbose", "trace", "trc", "vrb", "v":
		return LevelVerbose, true
	case "debug", "dbg", "d":
		return LevelDebug, true
	case "warning", "warn", "wrn", "w":
		return LevelWarning, true
	case "error", "err", "eror", "e":
		return LevelError, true
	case "fatal", "critical", "crit", "ftl", "f":
		return LevelFatal, true
	default:
		return LevelInformation, false
	}
}
