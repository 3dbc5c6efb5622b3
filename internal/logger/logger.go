// Package logger builds the zerolog loggers used by the CLI and the fake API
// server.
package logger

import (
	"io"
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

var installOnce sync.Once

// installStackMarshalers makes .Stack() render a stack for every error,
// attaching one at the log site when the error carries none.
func installStackMarshalers() {
	installOnce.Do(func() {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			if _, ok := err.(stackTracer); !ok {
				err = pkgerrors.WithStack(err)
			}
			return zpkgerrors.MarshalStack(err)
		}
	})
}

// New returns a JSON logger writing to w, tagged with component. A nil w
// writes to stderr so command output on stdout stays machine readable.
func New(component string, w io.Writer, debug bool) zerolog.Logger {
	installStackMarshalers()
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().
		Str("component", component).
		Timestamp().
		Logger()
}

// Console returns a human readable logger for interactive use.
func Console(component string, w io.Writer, debug bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return New(component, zerolog.ConsoleWriter{Out: w, NoColor: true}, debug)
}
