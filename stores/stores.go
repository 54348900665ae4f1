// Package stores defines the two application stores: per-device data and
// per-account data, sharing one backend.
package stores

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/suyash-sneo/prefstore"
	"github.com/suyash-sneo/prefstore/backend"
)

// Stores holds the device and account stores. Build it once at startup with
// Open and pass it to whatever needs persistence.
type Stores struct {
	Device  *prefstore.Store[Device]
	Account *prefstore.Store[Account]

	logger prefstore.Logger
}

// Open builds both stores over b. cfg selects the store identifiers; opts
// supply logger, metrics and clock.
func Open(b backend.Store, cfg Config, opts ...prefstore.Option) (*Stores, error) {
	if b == nil {
		return nil, prefstore.ErrNilBackend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stores: %w", err)
	}
	all := append([]prefstore.Option{prefstore.WithConfig(cfg.Config)}, opts...)

	dev, err := prefstore.New[Device](cfg.DeviceStoreID, 0, b, all...)
	if err != nil {
		return nil, fmt.Errorf("stores: device: %w", err)
	}
	acc, err := prefstore.New[Account](cfg.AccountStoreID, 1, b, all...)
	if err != nil {
		return nil, fmt.Errorf("stores: account: %w", err)
	}
	return &Stores{Device: dev, Account: acc, logger: dev.Logger()}, nil
}

// ClearAll wipes both stores, as on logout. Both are attempted even when the
// first fails.
func (s *Stores) ClearAll(ctx context.Context) error {
	err := multierr.Append(
		s.Device.Clear(ctx),
		s.Account.Clear(ctx),
	)
	if err != nil {
		s.logger.Warn("clear all failed", prefstore.Field{Key: "err", Value: err})
	}
	return err
}

// ForgetAccount removes every account field stored for accountID, leaving
// other accounts untouched.
func (s *Stores) ForgetAccount(ctx context.Context, accountID string) error {
	if accountID == "" {
		return errors.New("stores: empty account id")
	}
	return s.Account.RemoveFields(ctx, []string{accountID}, AccountFields()...)
}

// LanguagePrefs binds the app language, falling back to the device locale.
func (s *Stores) LanguagePrefs(ctx context.Context) (*LanguagePrefs, error) {
	return NewLanguagePrefs(ctx, s.Device, DeviceLanguage())
}

// RecordSearch prepends query to the account's search history, dropping an
// older duplicate and keeping at most limit entries (limit<=0 means no cap).
func (s *Stores) RecordSearch(ctx context.Context, accountID, query string, limit int) ([]string, error) {
	if query == "" {
		return nil, errors.New("stores: empty search query")
	}
	prev, _, err := SearchHistory.Get(ctx, s.Account, accountID)
	if err != nil {
		return nil, err
	}
	next := make([]string, 0, len(prev)+1)
	next = append(next, query)
	for _, q := range prev {
		if q != query {
			next = append(next, q)
		}
	}
	if limit > 0 && len(next) > limit {
		next = next[:limit]
	}
	if err := SearchHistory.Set(ctx, s.Account, next, accountID); err != nil {
		return nil, err
	}
	return next, nil
}
