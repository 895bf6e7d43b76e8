package disruptions

import "errors"

var (
	ErrUnknownSeverity    = errors.New("severity was never registered")
	ErrUnsupportedRTLevel = errors.New("unsupported realtime level")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrUnknownVJ          = errors.New("unknown vehicle journey")
)
