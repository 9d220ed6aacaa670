package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes events to the structured log. It is the default sink
// when no message broker is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	n.logger.Info().
		Str("route_id", event.RouteID).
		Int("delay_minutes", event.DelayMinutes).
		Bool("recalculation_suggested", event.Suggested).
		Strs("reasons", event.Reasons).
		Msg("route condition alert")
	return nil
}
