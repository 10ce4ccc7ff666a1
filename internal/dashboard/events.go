package dashboard

import "time"

// Emitter broadcasts dashboard lifecycle events to connected clients.
// It is safe to use from multiple goroutines.
type Emitter struct {
	hub *Hub
}

// NewEmitter creates a new event emitter.
func NewEmitter(hub *Hub) *Emitter {
	return &Emitter{hub: hub}
}

// SchemaRefreshed announces that fresh data was loaded for a schema.
// Open dashboards reload the affected views.
func (e *Emitter) SchemaRefreshed(schema string) {
	e.hub.Broadcast(&Event{
		Type:      "schema.refreshed",
		Timestamp: time.Now(),
		Schema:    schema,
	})
}

// CacheCleared announces that the query cache was dropped, with the
// number of evicted entries.
func (e *Emitter) CacheCleared(entries int) {
	e.hub.Broadcast(&Event{
		Type:      "cache.cleared",
		Timestamp: time.Now(),
		Data:      map[string]int{"entries": entries},
	})
}

// GraphRendered announces a completed render with its layout method.
func (e *Emitter) GraphRendered(schema, method string) {
	e.hub.Broadcast(&Event{
		Type:      "graph.rendered",
		Timestamp: time.Now(),
		Schema:    schema,
		Data:      map[string]string{"layout_method": method},
	})
}
