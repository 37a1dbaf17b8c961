// Package logging routes log/slog output for every magnifier module.
//
// Each module asks for its own logger once and keeps it:
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Bound", "handle", id, "rotation", 90)
//
// [Initialize] picks the sinks: the systemd journal when journald is reachable,
// stdout (text or JSON) unless it points at /dev/null, or both. It may be
// called again at runtime, for instance from the config watcher, and loggers
// handed out earlier pick up the new levels and sinks in place.
//
// Levels are debug, info, warn and error. Config.Modules overrides the global
// level per module name:
//
//	[logging]
//	level = "info"
//	format = "text"
//	analyzer = "debug"
//
//	[logging.modules]
//	ffmpeg = "error"
//
// Regardless of sinks, the last 1000 records land in a [RingBuffer] that
// feeds /api/logs/stream. Journal records carry their attributes as
// upper-case fields, so
//
//	journalctl -t magnifier MODULE=analyzer STAGE=decode
//
// finds decode drops reported by the analyzer.
package logging
