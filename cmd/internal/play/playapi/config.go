package playapi

// Config controls request handling around the protocol.
type Config struct {
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy   bool
	MaxBodyBytes int64

	// RateLimitRPS <= 0 disables per-client rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   256 << 10, // replays can be large; 256 KiB
		RateLimitRPS:   5,
		RateLimitBurst: 20,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		c.RateLimitBurst = d.RateLimitBurst
	}
	return c
}
