// Package logging builds the application's structured logger.  Components
// receive named sub-loggers (logger.Named("tmdb")) so every line carries
// the component that produced it.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// New returns the root logger.  Development output is human-readable;
// any other environment logs JSON lines suitable for collection.
func New(level, env string) hclog.Logger {
	return NewWithOutput(level, env, os.Stderr)
}

// NewWithOutput is New with an explicit destination, used by tests.
func NewWithOutput(level, env string, w io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "top-movies",
		Level:      lvl,
		Output:     w,
		JSONFormat: env != "dev" && env != "development",
	})
}
