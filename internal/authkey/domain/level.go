// Package domain defines authorization key domain models and business rules.
//
// An authorization key is a hashed, scope-limited secret that must be presented (and is consumed
// once) to run a sensitive operation. Every verification attempt is recorded as a KeyUse.
package domain

import (
	"strconv"
	"strings"
)

// Level is the ordinal strength of an authorization key. A key satisfies an action when its
// level is greater than or equal to the level the action requires.
type Level int

const (
	// LevelLow is the weakest key level.
	LevelLow Level = 10

	// LevelMedium is the default key level.
	LevelMedium Level = 20

	// LevelHigh is required for creating and altering organizational records.
	LevelHigh Level = 30

	// LevelCritical is required for actions that reverse prior approvals.
	LevelCritical Level = 40
)

var levelNames = map[Level]string{
	LevelLow:      "Low",
	LevelMedium:   "Medium",
	LevelHigh:     "High",
	LevelCritical: "Critical",
}

// Levels returns every valid level in ascending order.
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}
}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	_, ok := levelNames[l]
	return ok
}

// String returns the display name of the level, or the ordinal for unknown values.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return strconv.Itoa(int(l))
}

// Satisfies reports whether a key of level l may run an action requiring the given level.
func (l Level) Satisfies(required Level) bool {
	return l >= required
}

// ParseLevel accepts either a display name ("high", case-insensitive) or an ordinal ("30").
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	for level, name := range levelNames {
		if strings.EqualFold(name, s) {
			return level, nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidLevel
	}
	level := Level(n)
	if !level.IsValid() {
		return 0, ErrInvalidLevel
	}
	return level, nil
}
