// Package log is a small leveled logger built on [log/slog].
//
// A [Logger] is made with [Make] and configured with functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"),
//		log.WithCaller(true))
//
// Every level has a plain and a context-aware method. The plain methods use
// [DefaultContextProvider]. Attributes are always [slog.Attr] values:
//
//	logger.Info("template parsed", slog.Int("statements", 3))
//
// Besides the slog levels there is [LevelTrace], below debug, used for
// per-node diagnostics of the template engine.
//
// Pretty output (the default) colorizes keys and values; JSON pretty output is
// indented over several lines. Disable it with [WithPretty] for machine
// consumption.
//
// The package-level functions ([Info], [Debug], ...) write through a default
// logger that [Config] reconfigures.
package log
