package stores

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMatchLanguage(t *testing.T) {
	cases := []struct {
		locales []string
		want    Language
	}{
		{[]string{"en_US.UTF-8"}, English},
		{[]string{"en-GB"}, English},
		{[]string{"es_MX.UTF-8"}, Spanish},
		{[]string{"fr_FR"}, Spanish},
		{[]string{"not a locale"}, Spanish},
		{nil, Spanish},
		{[]string{"de", "en"}, English},
	}
	for _, tc := range cases {
		if got := MatchLanguage(tc.locales...); got != tc.want {
			t.Fatalf("MatchLanguage(%v) = %q, want %q", tc.locales, got, tc.want)
		}
	}
}

func TestDeviceLanguagePrecedence(t *testing.T) {
	env := map[string]string{
		"LC_ALL":      "",
		"LC_MESSAGES": "en_US.UTF-8",
		"LANG":        "es_ES.UTF-8",
	}
	if got := deviceLanguage(func(k string) string { return env[k] }); got != English {
		t.Fatalf("expected LC_MESSAGES to win, got %q", got)
	}
	env["LC_ALL"] = "C"
	env["LC_MESSAGES"] = ""
	if got := deviceLanguage(func(k string) string { return env[k] }); got != Spanish {
		t.Fatalf("expected LANG, got %q", got)
	}
	if got := deviceLanguage(func(string) string { return "" }); got != DefaultLanguage {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestParseLanguage(t *testing.T) {
	if l, err := ParseLanguage(" EN "); err != nil || l != English {
		t.Fatalf("unexpected %q %v", l, err)
	}
	if _, err := ParseLanguage("fr"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber(1234567.5, English); got != "1,234,567.5" {
		t.Fatalf("english: %q", got)
	}
	if got := FormatNumber(1234567.5, Spanish); got != "1.234.567,5" {
		t.Fatalf("spanish: %q", got)
	}
}

func TestLanguagePrefsFallback(t *testing.T) {
	s, _ := openStores(t)
	ctx := context.Background()

	prefs, err := NewLanguagePrefs(ctx, s.Device, English)
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	defer prefs.Close()
	<-prefs.Ready()

	if prefs.Current() != English || prefs.Stored() {
		t.Fatalf("expected fallback english, got %q stored=%v", prefs.Current(), prefs.Stored())
	}

	var (
		mu   sync.Mutex
		seen []Language
	)
	unsubscribe := prefs.Subscribe(func(l Language) {
		mu.Lock()
		seen = append(seen, l)
		mu.Unlock()
	})
	defer unsubscribe()

	if err := prefs.Change(ctx, Spanish); err != nil {
		t.Fatalf("change: %v", err)
	}
	if prefs.Current() != Spanish || !prefs.Stored() {
		t.Fatalf("expected spanish after change")
	}
	if v, ok, _ := AppLanguage.Get(ctx, s.Device); !ok || v != Spanish {
		t.Fatalf("change not persisted: %q", v)
	}
	if err := prefs.Change(ctx, "fr"); err == nil {
		t.Fatalf("expected error for unsupported language")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		last := Language("")
		if n > 0 {
			last = seen[n-1]
		}
		mu.Unlock()
		if n >= 2 && last == Spanish {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscriber never saw the change: %v", seen)
}

func TestLanguagePrefsIgnoresUnsupportedStoredValue(t *testing.T) {
	s, b := openStores(t)
	ctx := context.Background()
	b.Raw("device:appLanguage", []byte(`{"data":"fr"}`))

	prefs, err := NewLanguagePrefs(ctx, s.Device, "xx")
	if err != nil {
		t.Fatalf("prefs: %v", err)
	}
	defer prefs.Close()
	<-prefs.Ready()

	if prefs.Current() != DefaultLanguage {
		t.Fatalf("expected default language, got %q", prefs.Current())
	}
}
