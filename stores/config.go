package stores

import (
	"fmt"

	"github.com/suyash-sneo/prefstore"
)

// Config extends the per-store settings with the identifiers of the two
// application stores.
type Config struct {
	prefstore.Config `yaml:",inline"`

	DeviceStoreID  string `yaml:"deviceStoreID"`
	AccountStoreID string `yaml:"accountStoreID"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Config:         prefstore.DefaultConfig(),
		DeviceStoreID:  "device",
		AccountStoreID: "account",
	}
}

// Validate ensures config values are safe.
func (c Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if err := prefstore.ValidateStoreID(c.DeviceStoreID); err != nil {
		return fmt.Errorf("DeviceStoreID invalid: %w", err)
	}
	if err := prefstore.ValidateStoreID(c.AccountStoreID); err != nil {
		return fmt.Errorf("AccountStoreID invalid: %w", err)
	}
	if c.DeviceStoreID == c.AccountStoreID {
		return fmt.Errorf("DeviceStoreID and AccountStoreID must differ")
	}
	return nil
}
