package reminder

import "time"

type Config struct {
	// RunInterval is the tick cadence. Zero means the hourly default.
	RunInterval time.Duration
	// LockTTL bounds how long a crashed instance holds the shared lock.
	LockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = time.Hour
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Minute
	}
	return c
}
