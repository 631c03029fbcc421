package agentgraph

import "github.com/ZanzyTHEbar/agentgraph/internal/eventbus"

// WithEventBus sets the event bus component.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(r *Runtime) {
		r.eventBus = bus
	}
}
