package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/cashew/pkg/infrastructure/events"
	"github.com/vsinha/cashew/pkg/infrastructure/metrics"
)

// Deps carries the ambient collaborators shared by the services. Every field
// is optional.
type Deps struct {
	Logger  *zap.Logger
	Events  events.EventStore
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func (d Deps) publish(event events.Event) {
	if d.Events == nil {
		return
	}
	if err := d.Events.AppendEvent(event.StreamID(), event); err != nil {
		d.Logger.Warn("Failed to publish event", zap.String("type", event.Type()), zap.Error(err))
	}
}
