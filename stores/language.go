package stores

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/suyash-sneo/prefstore"
)

// Language is a UI language the app ships translations for.
type Language string

const (
	Spanish Language = "es"
	English Language = "en"
)

// DefaultLanguage is used when neither a stored preference nor the device
// locale yields a supported language.
const DefaultLanguage = Spanish

// LanguageInfo describes a supported language for pickers.
type LanguageInfo struct {
	Code        Language
	Label       string
	NativeLabel string
}

// SupportedLanguages in preference order; the first entry is the default.
var SupportedLanguages = []LanguageInfo{
	{Code: Spanish, Label: "Spanish", NativeLabel: "Español"},
	{Code: English, Label: "English", NativeLabel: "English"},
}

var (
	supportedTags = []language.Tag{language.Spanish, language.English}
	matcher       = language.NewMatcher(supportedTags)
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	for _, info := range SupportedLanguages {
		if info.Code == l {
			return true
		}
	}
	return false
}

// Tag returns the BCP 47 tag for l.
func (l Language) Tag() language.Tag {
	if l == English {
		return language.AmericanEnglish
	}
	return language.EuropeanSpanish
}

// ParseLanguage accepts a supported language code.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return l, nil
}

// MatchLanguage picks the supported language that best fits the given locale
// identifiers, in priority order. POSIX forms such as "en_US.UTF-8" are
// accepted. Unknown or unparsable locales fall back to DefaultLanguage.
func MatchLanguage(locales ...string) Language {
	tags := make([]language.Tag, 0, len(locales))
	for _, loc := range locales {
		tag, err := language.Parse(normalizeLocale(loc))
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLanguage
	}
	return SupportedLanguages[idx].Code
}

// DeviceLanguage derives the language from the process locale environment.
func DeviceLanguage() Language {
	return deviceLanguage(os.Getenv)
}

func deviceLanguage(getenv func(string) string) Language {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(name); v != "" && v != "C" && v != "POSIX" {
			return MatchLanguage(v)
		}
	}
	return DefaultLanguage
}

func normalizeLocale(loc string) string {
	loc = strings.TrimSpace(loc)
	if i := strings.IndexAny(loc, ".@"); i >= 0 {
		loc = loc[:i]
	}
	return strings.ReplaceAll(loc, "_", "-")
}

// FormatNumber renders value with l's digit grouping and decimal separator.
func FormatNumber(value float64, l Language) string {
	return message.NewPrinter(l.Tag()).Sprint(number.Decimal(value))
}

// LanguagePrefs tracks the appLanguage device field. While nothing valid is
// stored, Current reports the fallback language.
type LanguagePrefs struct {
	binding  *prefstore.Binding[Language]
	fallback Language
}

// NewLanguagePrefs binds appLanguage on dev. An invalid fallback is replaced
// by DefaultLanguage.
func NewLanguagePrefs(ctx context.Context, dev *prefstore.Store[Device], fallback Language) (*LanguagePrefs, error) {
	if !fallback.Valid() {
		fallback = DefaultLanguage
	}
	b, err := AppLanguage.Bind(ctx, dev, nil, prefstore.WithDefault(fallback))
	if err != nil {
		return nil, err
	}
	return &LanguagePrefs{binding: b, fallback: fallback}, nil
}

// Current returns the stored language, or the fallback.
func (p *LanguagePrefs) Current() Language {
	return p.resolve(p.binding.Value())
}

// Stored reports whether the user picked a language explicitly.
func (p *LanguagePrefs) Stored() bool {
	v, ok := p.binding.Value()
	return ok && v.Valid()
}

// Change persists l as the app language.
func (p *LanguagePrefs) Change(ctx context.Context, l Language) error {
	if !l.Valid() {
		return fmt.Errorf("unsupported language %q", l)
	}
	return p.binding.Set(ctx, l)
}

// Subscribe calls fn with the effective language now and after every change.
func (p *LanguagePrefs) Subscribe(fn func(Language)) func() {
	return p.binding.Subscribe(func(v Language, ok bool) {
		fn(p.resolve(v, ok))
	})
}

// Ready closes once the stored preference has been read.
func (p *LanguagePrefs) Ready() <-chan struct{} { return p.binding.Ready() }

// Close releases the underlying binding.
func (p *LanguagePrefs) Close() { p.binding.Close() }

func (p *LanguagePrefs) resolve(v Language, ok bool) Language {
	if !ok || !v.Valid() {
		return p.fallback
	}
	return v
}
