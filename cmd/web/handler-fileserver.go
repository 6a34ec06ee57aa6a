package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// fileServerHandler serves ui/static and renders the not found page for everything else.
func (app *application) fileServerHandler(middleware func(http.Handler) http.Handler) (http.Handler, error) {
	fileRoot, err := resolveUIPath("static")
	if err != nil {
		return nil, fmt.Errorf("resolve static dir: %w", err)
	}
	var stat os.FileInfo
	if stat, err = os.Stat(fileRoot); err != nil || !stat.IsDir() {
		return nil, fmt.Errorf("file server root %s does not exist or is not a directory", fileRoot)
	}
	fileServer := http.FileServer(http.Dir(fileRoot))

	return middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := filepath.Clean(r.URL.Path)
		if strings.Contains(cleanPath, "..") || strings.HasSuffix(r.URL.Path, "/") {
			app.notFound(w, r)
			return
		}
		if _, statErr := os.Stat(filepath.Join(fileRoot, cleanPath)); statErr != nil {
			app.notFound(w, r)
			return
		}
		cacheForever(fileServer).ServeHTTP(w, r)
	})), nil
}
