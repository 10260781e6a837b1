package ui

import (
	"fmt"
	"strings"
)

type LogLevel int

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelPanic
)

var logLevelNames = []string{"Trace", "Debug", "Info", "Warn", "Error", "Fatal", "Panic"}

func (l LogLevel) String() string {
	if l < LevelTrace || l > LevelPanic {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return logLevelNames[l]
}

func LogLevelString(s string) (LogLevel, error) {
	for i, name := range logLevelNames {
		if strings.EqualFold(s, name) {
			return LogLevel(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("%s does not belong to LogLevel values", s)
}

func LogLevelStrings() []string {
	result := make([]string, len(logLevelNames))
	copy(result, logLevelNames)
	return result
}
