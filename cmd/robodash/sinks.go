package main

import (
	"log/slog"

	"robodash/internal/config"
	"robodash/internal/ingest"
	"robodash/internal/sink"
)

// newStatusWriter builds the configured history sinks, composed into a
// single writer (nil when no sink is configured). The cleanup function
// closes any file-backed writers.
func newStatusWriter(cfg *config.Config, log *slog.Logger) (ingest.StatusWriter, func(), error) {
	var writers []sink.StatusWriter
	var closers []func()

	if cfg.Sinks.Stdout {
		writers = append(writers, &sink.StdoutJSONWriter{})
	}
	if cfg.Sinks.LogFile != "" {
		fw, err := sink.NewFileWriter(cfg.Sinks.LogFile)
		if err != nil {
			return nil, func() {}, err
		}
		writers = append(writers, fw)
		closers = append(closers, func() { _ = fw.Close() })
		log.Info("logging status rows", "path", cfg.Sinks.LogFile)
	}
	if cfg.Sinks.Greptime.Endpoint != "" {
		gw, err := sink.NewGreptimeWriter(cfg.Sinks.Greptime.Endpoint, cfg.Sinks.Greptime.Database, log)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, func() {}, err
		}
		writers = append(writers, gw)
		log.Info("writing status rows to GreptimeDB", "endpoint", cfg.Sinks.Greptime.Endpoint)
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	switch len(writers) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return writers[0], cleanup, nil
	default:
		return sink.NewMultiWriter(writers...), cleanup, nil
	}
}
