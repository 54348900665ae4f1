package main

import (
	"encoding/json"
	"fmt"

	"github.com/suyash-sneo/prefstore/stores"
)

// checkers reject values that would not decode as the field's type, so the
// CLI never writes a record the app would read back as absent.
var checkers = map[string]func([]byte) error{
	stores.AppLanguage.Key():       checkLanguage,
	stores.HasSeenOnboarding.Key(): check[bool],
	stores.LastSyncTimestamp.Key(): check[int64],
	stores.DevicePreferences.Key(): check[stores.Preferences],
	stores.LastViewedHouseID.Key(): check[string],
	stores.TaskFilterState.Key():   check[stores.TaskFilters],
	stores.SearchHistory.Key():     check[[]string],
}

func checkValue(field string, raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("value for %s is not valid JSON", field)
	}
	c, ok := checkers[field]
	if !ok {
		return nil
	}
	if err := c(raw); err != nil {
		return fmt.Errorf("value for %s: %w", field, err)
	}
	return nil
}

func check[T any](raw []byte) error {
	var v T
	return json.Unmarshal(raw, &v)
}

func checkLanguage(raw []byte) error {
	var l stores.Language
	if err := json.Unmarshal(raw, &l); err != nil {
		return err
	}
	if !l.Valid() {
		return fmt.Errorf("unsupported language %q", l)
	}
	return nil
}
