package telemetry

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogEmitter renders events through zerolog. A nil Logger uses the global
// logger configured by the command entry point.
type LogEmitter struct {
	Logger *zerolog.Logger
}

func (l LogEmitter) Emit(ev Event) {
	logger := log.Logger
	if l.Logger != nil {
		logger = *l.Logger
	}
	var e *zerolog.Event
	switch ev.Level {
	case LevelDebug:
		e = logger.Debug()
	case LevelWarn:
		e = logger.Warn()
	default:
		e = logger.Info()
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}
	if len(ev.Fields) > 0 {
		e = e.Fields(map[string]interface{}(ev.Fields))
	}
	e.Str("event", ev.Name).Msg(ev.Name)
}
