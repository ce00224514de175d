// Package logger provides the configured zerolog logger.
package logger

import (
	"io"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

// New returns a JSON logger tagged with the service name, writing to stdout.
// Unknown levels fall back to info. Call sites use .Stack() on error events.
func New(serviceName, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName, level)
}

// NewWithWriter is New with an explicit destination. It also installs the
// result as the global zerolog logger.
func NewWithWriter(w io.Writer, serviceName, level string) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	l := zerolog.New(w).Level(lvl).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
	log.Logger = l
	return l
}
