package contexthelpers

import (
	"context"
	"net/http"

	"github.com/myrjola/fitfocus/internal/i18n"
)

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CurrentPathContextKey, currentPath)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, CspNonceContextKey, cspNonce)
	return r.WithContext(ctx)
}

func SetLanguage(r *http.Request, language i18n.Language) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, LanguageContextKey, language)
	return r.WithContext(ctx)
}

func SetDeviceID(r *http.Request, deviceID string) *http.Request {
	return r.WithContext(WithDeviceID(r.Context(), deviceID))
}

// WithDeviceID is the context variant of [SetDeviceID] for code running outside an HTTP request.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, DeviceIDContextKey, deviceID)
}
