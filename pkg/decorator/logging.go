package decorator

import (
	"context"
	"errors"
	"time"

	"github.com/architeacher/devicely/pkg/logger"
	"github.com/rs/zerolog"
)

type (
	commandLoggingDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		logger logger.Logger
	}

	queryLoggingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		logger logger.Logger
	}

	// expected is implemented by errors caused by the caller, such as
	// validation failures or unknown ids. They are logged at info level.
	expected interface {
		Expected() bool
	}
)

func (d commandLoggingDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	log := withAttributes(d.logger.WithContext(ctx).With(), actionAttributes(cmd)).
		Str("command", generateActionName(cmd)).
		Logger()

	start := time.Now()

	log.Debug().Msg("executing command")

	defer func() {
		logOutcome(&log, "command", time.Since(start), err)
	}()

	return d.base.Handle(ctx, cmd)
}

func (d queryLoggingDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	log := withAttributes(d.logger.WithContext(ctx).With(), actionAttributes(query)).
		Str("query", generateActionName(query)).
		Logger()

	start := time.Now()

	log.Debug().Msg("executing query")

	defer func() {
		logOutcome(&log, "query", time.Since(start), err)
	}()

	return d.base.Execute(ctx, query)
}

func logOutcome(log *zerolog.Logger, kind string, elapsed time.Duration, err error) {
	if err == nil {
		log.Debug().Dur("duration", elapsed).Msg(kind + " executed successfully")

		return
	}

	event := log.Error()
	if IsExpected(err) {
		event = log.Info()
	}

	event.Err(err).Dur("duration", elapsed).Msg("failed to execute " + kind)
}

// IsExpected reports whether err, or any error it wraps, is a caller error.
// A cancelled request context counts as one.
func IsExpected(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}

	var e expected

	return errors.As(err, &e) && e.Expected()
}
