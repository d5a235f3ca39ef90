package config

import (
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/lumberjack/v2"
)

// ConfigureLogging applies the loggo level spec and points the default writer
// at stderr, or at a rotated file when one is configured. The returned closer
// releases the file.
func ConfigureLogging(cfg LogConfig) (io.Closer, error) {
	var out io.WriteCloser = nopCloser{os.Stderr}
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
	}
	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(out, loggo.DefaultFormatter)); err != nil {
		return nil, errors.Annotate(err, "replacing log writer")
	}
	if err := loggo.ConfigureLoggers(cfg.Level); err != nil {
		return nil, errors.Annotatef(err, "log level %q", cfg.Level)
	}
	return out, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
