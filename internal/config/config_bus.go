package config

// BusConfig controls the in-process message bus that fans inbound channel
// traffic out to the pipeline and routes pipeline output back to channels.
type BusConfig struct {
	// InboundBuffer is the capacity of the inbound queue. A full queue
	// rejects new publishes with backpressure rather than blocking the
	// channel adapter that produced the message.
	InboundBuffer int `yaml:"inbound_buffer"`

	// OutboundBuffer is the capacity of the outbound queue.
	OutboundBuffer int `yaml:"outbound_buffer"`

	// MaxConcurrentSessions bounds how many sessions can have an in-flight
	// pipeline run at once.
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions"`
}

func applyBusDefaults(cfg *BusConfig) {
	if cfg.InboundBuffer <= 0 {
		cfg.InboundBuffer = 256
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = 256
	}
	if cfg.MaxConcurrentSessions <= 0 {
		cfg.MaxConcurrentSessions = 32
	}
}
