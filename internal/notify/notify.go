// Package notify delivers route condition alerts to downstream consumers.
package notify

import (
	"context"
	"time"
)

// Event is a route condition alert.
type Event struct {
	RouteID      string    `json:"routeId"`
	DelayMinutes int       `json:"delayMinutes"`
	Suggested    bool      `json:"recalculationSuggested"`
	Reasons      []string  `json:"reasons,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Notifier delivers events. Delivery failures are reported but must never
// abort the scan that produced the event.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
