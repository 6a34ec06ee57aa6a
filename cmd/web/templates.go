package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/fitfocus/internal/contexthelpers"
	"github.com/myrjola/fitfocus/internal/errors"
	"github.com/myrjola/fitfocus/internal/i18n"
	"github.com/myrjola/fitfocus/internal/tracker"
)

// formatFloat formats a float to remove trailing zeros and unnecessary precision.
// This handles the floating point rounding errors like 60.900000000000006.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// baseTemplateFuncs declares the template functions before parsing. Context-dependent functions are replaced in
// contextTemplateFuncs before execution.
func (app *application) baseTemplateFuncs() template.FuncMap {
	return app.contextTemplateFuncs(context.Background())
}

// contextTemplateFuncs returns the template functions bound to the request context.
func (app *application) contextTemplateFuncs(ctx context.Context) template.FuncMap {
	nonce := fmt.Sprintf("nonce=%q", contexthelpers.CSPNonce(ctx))
	lang := contexthelpers.Language(ctx)
	return template.FuncMap{
		"nonce": func() template.HTMLAttr {
			return template.HTMLAttr(nonce) //nolint:gosec // we trust the nonce since it's not provided by user.
		},
		"mdToHTML": func(markdown string) template.HTML {
			return app.renderMarkdownToHTML(ctx, markdown)
		},
		"t": func(key string) string {
			return i18n.Translate(lang, key)
		},
		"muscle": func(g tracker.MuscleGroup) string {
			return i18n.Translate(lang, "muscle."+string(g))
		},
		"lang": func() string {
			return string(lang)
		},
		"languages":   i18n.SupportedLanguages,
		"currentPath": func() string { return contexthelpers.CurrentPath(ctx) },
		"formatFloat": formatFloat,
		"inc":         func(i int) int { return i + 1 },
	}
}

// renderMarkdownToHTML converts LLM produced markdown to HTML. Raw HTML in the input is dropped by goldmark.
func (app *application) renderMarkdownToHTML(ctx context.Context, markdown string) template.HTML {
	var buf bytes.Buffer
	if err := app.markdown.Convert([]byte(markdown), &buf); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "render markdown", errors.SlogError(err))
		return template.HTML(template.HTMLEscapeString(markdown)) //nolint:gosec // escaped.
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark omits raw HTML by default.
}

// pageTemplate returns a template for the given page name.
//
// pageName corresponds to directory inside ui/templates/pages folder. It has to include a template named "page".
func (app *application) pageTemplate(pageName string) (*template.Template, error) {
	t := template.New(pageName).Funcs(app.baseTemplateFuncs())
	t, err := t.ParseFS(app.templateFS, "base.gohtml", fmt.Sprintf("pages/%s/*.gohtml", pageName))
	if err != nil {
		return nil, fmt.Errorf("new template: %w", err)
	}
	return t, nil
}

func (app *application) renderToBuf(ctx context.Context, pageName, templateName string, data any) (*bytes.Buffer, error) {
	t, err := app.pageTemplate(pageName)
	if err != nil {
		return nil, fmt.Errorf("retrieve page template %s: %w", pageName, err)
	}

	buf := new(bytes.Buffer)
	t.Funcs(app.contextTemplateFuncs(ctx))
	if err = t.ExecuteTemplate(buf, templateName, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", pageName, err)
	}
	return buf, nil
}

// render renders the page residing in ui/templates/pages/{pageName} inside the base layout.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, pageName string, data any) {
	buf, err := app.renderToBuf(r.Context(), pageName, "base", data)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFragment renders only the "page" template of pageName without the layout.
func (app *application) renderFragment(w http.ResponseWriter, r *http.Request, status int, pageName string, data any) {
	buf, err := app.renderToBuf(r.Context(), pageName, "page", data)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
