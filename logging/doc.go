// Package logging provides the minimal structured logging interface used by the
// unitrt runtime and its adapters over log/slog.
//
// The runtime core only depends on the Logger interface. Applications build a
// concrete logger from configuration:
//
//	logger, closer, err := logging.NewLogger(logging.Config{Level: logging.LevelInfo, Format: "json", Output: "stderr"})
//	if err != nil {
//		return err
//	}
//	defer closer.Close()
//	rt := core.NewContext(core.Options{Logger: logger})
//
// NopLogger discards everything and is the default when no logger is supplied.
package logging
