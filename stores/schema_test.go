package stores_test

import (
	"context"
	"testing"

	"github.com/suyash-sneo/prefstore"
	"github.com/suyash-sneo/prefstore/internal/fakestore"
	"github.com/suyash-sneo/prefstore/stores"
)

// The exported field variables keep their typed-key types for callers
// outside the package.
var (
	_ prefstore.TypedField[stores.Device, stores.Language]     = stores.AppLanguage
	_ prefstore.TypedField[stores.Device, bool]                = stores.HasSeenOnboarding
	_ prefstore.TypedField[stores.Device, int64]               = stores.LastSyncTimestamp
	_ prefstore.TypedField[stores.Device, stores.Preferences]  = stores.DevicePreferences
	_ prefstore.TypedField[stores.Account, string]             = stores.LastViewedHouseID
	_ prefstore.TypedField[stores.Account, stores.TaskFilters] = stores.TaskFilterState
	_ prefstore.TypedField[stores.Account, []string]           = stores.SearchHistory
	_ prefstore.FieldKey[stores.Device]                        = stores.AppLanguage
	_ prefstore.FieldKey[stores.Account]                       = stores.SearchHistory
)

func TestTypedFieldFromOutsidePackage(t *testing.T) {
	st, err := stores.Open(fakestore.New(), stores.DefaultConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	var house prefstore.TypedField[stores.Account, string] = stores.LastViewedHouseID
	if err := house.Set(ctx, st.Account, "h3", "u9"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := house.Get(ctx, st.Account, "u9")
	if err != nil || !ok || got != "h3" {
		t.Fatalf("unexpected get %q ok=%v err=%v", got, ok, err)
	}
	if p := house.Path("u9"); p.String() != "u9:lastViewedHouseId" {
		t.Fatalf("unexpected path %q", p.String())
	}

	custom := prefstore.NewField[stores.Device, string]("nickname")
	if err := custom.Set(ctx, st.Device, "kitchen tablet"); err != nil {
		t.Fatalf("set custom: %v", err)
	}
	if v, ok, _ := custom.Get(ctx, st.Device); !ok || v != "kitchen tablet" {
		t.Fatalf("unexpected custom value %q ok=%v", v, ok)
	}
}
