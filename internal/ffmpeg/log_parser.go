package ffmpeg

import (
	"log/slog"
	"strings"
)

// ffmpeg level names mapped onto slog. quiet never appears on output.
var levels = map[string]slog.Level{
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// ParseLogLevel splits a stderr line written with -loglevel level+X into a
// slog level and the message. Lines look like "[warning] msg" or, for
// component output, "[v4l2 @ 0x55d0] [warning] msg"; the component prefix is
// kept in the message. Unprefixed lines are Info.
func ParseLogLevel(line string) (slog.Level, string) {
	prefix, rest, ok := cutBracket(line)
	if !ok {
		return slog.LevelInfo, line
	}
	if level, known := levels[prefix]; known {
		return level, rest
	}

	// Component prefix followed by the level
	if inner, msg, ok := cutBracket(rest); ok {
		if level, known := levels[inner]; known {
			return level, line[:len(line)-len(rest)] + msg
		}
	}
	return slog.LevelInfo, line
}

// cutBracket splits "[x] rest" into x and rest.
func cutBracket(s string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end < 0 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}
