package dashboard

import "github.com/mnemoverse/mnemoscope/internal/observability"

// Dashboard ties together all dashboard components.
type Dashboard struct {
	Server  *Server
	Cache   *Cache
	Hub     *Hub
	Emitter *Emitter
}

// New creates a fully wired dashboard over the given repository.
func New(config *Config, repo Repository) *Dashboard {
	cache := NewCache(config.CacheTTL)
	cache.OnHit(observability.CacheHit)
	cache.OnMiss(observability.CacheMiss)

	hub := NewHub()
	server := NewServer(config, repo, cache, hub)

	return &Dashboard{
		Server:  server,
		Cache:   cache,
		Hub:     hub,
		Emitter: server.emitter,
	}
}
