package contexthelpers

type contextKey string

const CurrentPathContextKey = contextKey("currentPath")
const CspNonceContextKey = contextKey("cspNonce")
const LanguageContextKey = contextKey("language")
const DeviceIDContextKey = contextKey("deviceID")
