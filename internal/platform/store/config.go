package store

import "time"

// Config gathers every backend's settings under one roof so Open takes a
// single argument no matter which backends a binary enables
type Config struct {
	AppName string

	PG PGConfig
}

// PGConfig holds postgres connectivity, tracing, and boot probe knobs
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// ConnectRetries caps boot ping attempts, zero means six
	ConnectRetries int
	// PingTimeout bounds each individual ping, zero means five seconds
	PingTimeout time.Duration
}
