package pg

import (
	"context"

	"shipledger/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent is one traced statement, emitted after it completes
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives every statement the adapters run
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer builds a QueryTracer over root. The child logger is pinned to
// debug level so LOG_SQL=true prints statements even when the root
// level is stricter.
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Info()
	if ev.Slow {
		evt = z.log.Warn()
	}

	evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("pg query")
}

// compact collapses runs of whitespace so multi-line SQL logs on one line
func compact(s string) string {
	out := make([]rune, 0, len(s))
	inRun := false
	for _, r := range s {
		switch r {
		case ' ', '\n', '\t', '\r':
			if !inRun {
				out = append(out, ' ')
				inRun = true
			}
		default:
			inRun = false
			out = append(out, r)
		}
	}
	return string(out)
}
