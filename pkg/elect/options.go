package elect

import "time"

type Option func(*Config)

type Config struct {
	ID             string
	Key            string
	UpdateInterval time.Duration
	PollInterval   time.Duration
}

func WithUpdateInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.UpdateInterval = interval
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = interval
	}
}
