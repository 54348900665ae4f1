package prefstore

import (
	"fmt"
)

// Config controls store behavior that callers may want to tune.
type Config struct {
	// RemoveConcurrency bounds the parallel backend removes issued by DeleteMany.
	RemoveConcurrency int `yaml:"removeConcurrency"`

	// ClearListenersOnRemoveAll drops every listener registered on a store
	// after Clear succeeds. Mounted bindings stop receiving notifications
	// until they bind again.
	ClearListenersOnRemoveAll bool `yaml:"clearListenersOnRemoveAll"`

	// RollbackOnFailedSet makes a binding re-read the durable value when its
	// optimistic Set fails to persist.
	RollbackOnFailedSet bool `yaml:"rollbackOnFailedSet"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		RemoveConcurrency:         8,
		ClearListenersOnRemoveAll: true,
		RollbackOnFailedSet:       true,
	}
}

// Validate ensures config values are safe.
func (c Config) Validate() error {
	if c.RemoveConcurrency <= 0 {
		return fmt.Errorf("RemoveConcurrency must be >0")
	}
	return nil
}
