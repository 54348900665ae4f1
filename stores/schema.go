package stores

import (
	"github.com/suyash-sneo/prefstore"
)

// Device is the schema for data specific to this device, independent of the
// signed-in account.
type Device struct{}

// Account is the schema for data specific to one account on this device.
// Every path carries the account identifier as its single scope segment.
type Account struct{}

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Preferences holds device-level UI preferences.
type Preferences struct {
	Theme                Theme `json:"theme"`
	NotificationsEnabled bool  `json:"notificationsEnabled"`
}

// TaskFilters is the per-account task list filter state. A nil
// SelectedRoomID means no room filter.
type TaskFilters struct {
	ShowCompleted  bool    `json:"showCompleted"`
	SelectedRoomID *string `json:"selectedRoomId"`
}

// Device fields.
var (
	AppLanguage       = prefstore.NewField[Device, Language]("appLanguage")
	HasSeenOnboarding = prefstore.NewField[Device, bool]("hasSeenOnboarding")
	// LastSyncTimestamp is unix milliseconds.
	LastSyncTimestamp = prefstore.NewField[Device, int64]("lastSyncTimestamp")
	DevicePreferences = prefstore.NewField[Device, Preferences]("preferences")
)

// Account fields.
var (
	LastViewedHouseID = prefstore.NewField[Account, string]("lastViewedHouseId")
	TaskFilterState   = prefstore.NewField[Account, TaskFilters]("taskFilters")
	SearchHistory     = prefstore.NewField[Account, []string]("searchHistory")
)

// DeviceFields lists every device field.
func DeviceFields() []prefstore.FieldKey[Device] {
	return []prefstore.FieldKey[Device]{AppLanguage, HasSeenOnboarding, LastSyncTimestamp, DevicePreferences}
}

// AccountFields lists every account field.
func AccountFields() []prefstore.FieldKey[Account] {
	return []prefstore.FieldKey[Account]{LastViewedHouseID, TaskFilterState, SearchHistory}
}

// DeviceFieldKeys returns the field keys of the device schema.
func DeviceFieldKeys() []string {
	return keysOf(DeviceFields())
}

// AccountFieldKeys returns the field keys of the account schema.
func AccountFieldKeys() []string {
	return keysOf(AccountFields())
}

func keysOf[S any](fields []prefstore.FieldKey[S]) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key()
	}
	return out
}
