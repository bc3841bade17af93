// Package logger wraps zerolog with process-wide defaults and
// request-scoped child loggers carrying webhook delivery ids.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"shipledger/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type, an alias so call sites use
// zerolog's fluent API directly.
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_* settings through the raw config view. The raw
// view does no logging itself, which keeps init free of cycles.
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       strings.ToLower(rc.Get("LEVEL", "debug")),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

// Get returns the process root logger, initializing from env on first
// use when Init was never called explicitly.
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger once; later calls are no-ops
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		log := buildRoot(opt)
		root.Store(&log)
		inited.Store(true)
	})
}

func buildRoot(opt Options) zerolog.Logger {
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()

	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		ctx = ctx.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.Component != "" {
		ctx = ctx.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		ctx = ctx.Str(k, v)
	}

	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	if opt.SampleEvery > 1 {
		log = log.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return log
}

var levelNames = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// parseLevel resolves a level name; unknown names fall back to debug
func parseLevel(s string) zerolog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zerolog.DebugLevel
}

type ctxKey struct{ name string }

var (
	keyRequestID  = ctxKey{"req_id"}
	keyDeliveryID = ctxKey{"delivery_id"}
)

// WithRequest annotates ctx with the ids C later folds into fields
func WithRequest(ctx context.Context, reqID, deliveryID string) context.Context {
	if reqID != "" {
		ctx = context.WithValue(ctx, keyRequestID, reqID)
	}
	if deliveryID != "" {
		ctx = context.WithValue(ctx, keyDeliveryID, deliveryID)
	}
	return ctx
}

// C returns a child of the root logger carrying request_id and
// delivery_id when the context has them.
func C(ctx context.Context) *Logger {
	builder := Get().With()
	if s, ok := ctx.Value(keyRequestID).(string); ok && s != "" {
		builder = builder.Str("request_id", s)
	}
	if s, ok := ctx.Value(keyDeliveryID).(string); ok && s != "" {
		builder = builder.Str("delivery_id", s)
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger tagged with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
