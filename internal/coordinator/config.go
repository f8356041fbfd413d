package coordinator

// Config enumerates the coordinator's recognized options, injected at
// construction rather than read from a global.
type Config struct {
	// BatchSize is the size-driven flush trigger: once total buffered
	// events across every shard reaches this count, a flush runs
	// immediately instead of waiting for the alarm.
	BatchSize int

	// BatchTimeoutMs is the time-driven flush trigger: an alarm set for
	// this many milliseconds after the first event buffered since the
	// last flush.
	BatchTimeoutMs int

	// MaxBufferedEvents bounds the coordinator's pending queue; a cdc
	// message whose events would exceed it is refused with
	// error{overload}.
	MaxBufferedEvents int

	// SessionGraceMs is how many milliseconds a session lingers in draining state after
	// an unexpected transport close before its registration is dropped.
	SessionGraceMs int
}

// DefaultConfig matches §4.8 and §9's defaults: 1000-event soft limit,
// 100ms batch alarm.
func DefaultConfig() Config {
	return Config{
		BatchSize:         1000,
		BatchTimeoutMs:    100,
		MaxBufferedEvents: 1000,
		SessionGraceMs:    2000,
	}
}

