package contexthelpers

import (
	"context"

	"github.com/myrjola/fitfocus/internal/i18n"
)

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(CurrentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSPNonce(ctx context.Context) string {
	cspNonce, ok := ctx.Value(CspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return cspNonce
}

// Language returns the language negotiated for the request or [i18n.DefaultLanguage].
func Language(ctx context.Context) i18n.Language {
	lang, ok := ctx.Value(LanguageContextKey).(i18n.Language)
	if !ok {
		return i18n.DefaultLanguage
	}
	return lang
}

// DeviceID returns the anonymous device identifier owning the request's storage namespace.
func DeviceID(ctx context.Context) string {
	deviceID, ok := ctx.Value(DeviceIDContextKey).(string)
	if !ok {
		return ""
	}
	return deviceID
}
