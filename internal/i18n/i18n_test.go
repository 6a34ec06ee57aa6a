package i18n_test

import (
	"testing"

	"github.com/myrjola/fitfocus/internal/i18n"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		lang i18n.Language
		key  string
		want string
	}{
		{name: "english", lang: i18n.English, key: "muscle.Arms", want: "Arms"},
		{name: "portuguese", lang: i18n.Portuguese, key: "muscle.Arms", want: "Braços"},
		{name: "unsupported falls back", lang: i18n.Language("fi"), key: "nav.stats", want: "Progress"},
		{name: "missing key", lang: i18n.Portuguese, key: "no.such.key", want: "no.such.key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := i18n.Translate(tt.lang, tt.key); got != tt.want {
				t.Errorf("Translate(%s, %s) = %q, want %q", tt.lang, tt.key, got, tt.want)
			}
		})
	}
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   i18n.Language
	}{
		{header: "", want: i18n.English},
		{header: "pt-BR,pt;q=0.9,en;q=0.8", want: i18n.Portuguese},
		{header: "fi-FI, en;q=0.5, pt;q=0.7", want: i18n.Portuguese},
		{header: "de-DE", want: i18n.English},
		{header: "pt;q=bogus, en;q=0.1", want: i18n.English},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := i18n.Negotiate(tt.header); got != tt.want {
				t.Errorf("Negotiate(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestTranslationsComplete(t *testing.T) {
	for _, lang := range i18n.SupportedLanguages() {
		for _, key := range []string{"insight.placeholder", "insight.unavailable", "setup.error.remote"} {
			if got := i18n.Translate(lang, key); got == key {
				t.Errorf("%s: missing translation for %s", lang, key)
			}
		}
	}
}
