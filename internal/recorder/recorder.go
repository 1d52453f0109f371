// internal/recorder/recorder.go
package recorder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// Subscriber is anything that can follow the bus.
type Subscriber interface {
	SubscribeAll(handler events.Handler) events.Subscription
}

// Attach subscribes every handler to all events and returns a func that
// detaches them again.
func Attach(bus Subscriber, handlers ...events.Handler) func() {
	subs := make([]events.Subscription, 0, len(handlers))
	for _, h := range handlers {
		subs = append(subs, bus.SubscribeAll(h))
	}
	return func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
}

// LogSink writes every event as an Anchor "Program data:" log line.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("program_log")}
}

func (s *LogSink) Handle(_ context.Context, event events.Event) error {
	line, err := events.EncodeLog(event)
	if err != nil {
		s.logger.Warn("Failed to encode event log", zap.String("type", string(event.Type())), zap.Error(err))
		return err
	}
	s.logger.Info(line, zap.String("type", string(event.Type())))
	return nil
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
