package room

import "time"

// Config controls room persistence behaviour.
type Config struct {
	// PersistInterval is the throttle window between durable snapshot
	// saves. Mutations inside one window coalesce into a single save.
	PersistInterval time.Duration `yaml:"persist_interval"`

	// OnSaveError, when set, is invoked for every background snapshot save
	// that fails. The failure is already slog'd and swallowed by the
	// throttle; the hook exists so the host can record it elsewhere (the
	// event log). It must not block. Flush errors are returned to the
	// caller and do not pass through the hook.
	OnSaveError func(roomID string, err error) `yaml:"-"`
}

func (c *Config) defaults() {
	if c.PersistInterval <= 0 {
		c.PersistInterval = 10 * time.Second
	}
}
