package main

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/myrjola/fitfocus/internal/i18n"
)

const languageCookieMaxAge = 365 * 24 * time.Hour

// sameOriginPath returns the path of referer when it points to this host. It rejects scheme-relative and backslash
// paths to prevent open redirects.
func sameOriginPath(referer, host string) (string, bool) {
	if referer == "" {
		return "", false
	}
	u, err := url.Parse(referer)
	if err != nil {
		return "", false
	}
	if u.Host != "" && u.Host != host {
		return "", false
	}
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(u.Path, `\`) {
		return "", false
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p, true
}

// setLanguagePOST stores the language preference in a cookie and sends the user back where they came from.
func (app *application) setLanguagePOST(w http.ResponseWriter, r *http.Request) {
	lang := i18n.Language(r.PostFormValue("language"))
	if !i18n.IsSupported(lang) {
		http.Error(w, "Invalid language", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     languageCookieName,
		Value:    string(lang),
		Path:     "/",
		MaxAge:   int(languageCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	target, ok := sameOriginPath(r.Header.Get("Referer"), r.Host)
	if !ok {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
