// Package views renders the HTML pages. Pages are html/template files
// embedded in the binary and exposed as templ components, so handlers render
// them with Component.Render like any other templ view.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	markdown  = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitizer = bluemonday.UGCPolicy()
)

// requestFuncs are replaced per render with versions bound to the request
// context. The stubs only exist so the templates parse.
var requestFuncs = template.FuncMap{
	"T":    func(string) string { return "" },
	"Td":   func(string, ...any) string { return "" },
	"Tp":   func(string, int) string { return "" },
	"path": func(string) string { return "" },
	"csrf": func() string { return "" },
	"lang": func() string { return "" },
}

var staticFuncs = template.FuncMap{
	"join":     strings.Join,
	"inc":      func(i int) int { return i + 1 },
	"pct":      func(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) },
	"contains": func(list []string, s string) bool { return slices.Contains(list, s) },
	"markdown": Markdown,
	"slotID":   func(k model.DocumentKind) string { return "Slot_" + string(k) },
}

var pages = map[string]*template.Template{}

func init() {
	for _, page := range []string{"form.html", "report.html", "chat.html", "error.html"} {
		t := template.New("layout.html").Funcs(requestFuncs).Funcs(staticFuncs)
		pages[page] = template.Must(t.ParseFS(templateFS, "templates/layout.html", "templates/"+page))
	}
}

func bindFuncs(ctx context.Context) template.FuncMap {
	bp := model.BasePathFromContext(ctx)
	return template.FuncMap{
		"T": func(id string) string { return appI18n.T(ctx, id) },
		"Td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				data[fmt.Sprint(kv[i])] = kv[i+1]
			}
			return appI18n.Td(ctx, id, data)
		},
		"Tp":   func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"path": func(p string) string { return bp + p },
		"csrf": func() string { return model.CSRFTokenFromContext(ctx) },
		"lang": func() string { return appI18n.LanguageFromContext(ctx).String() },
	}
}

// page returns a component that renders the named page with data.
// The parsed page is cloned per render because its request functions are
// bound to the render context.
func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := pages[name].Clone()
		if err != nil {
			return fmt.Errorf("clone %s: %w", name, err)
		}
		t.Funcs(bindFuncs(ctx))
		return templ.FromGoHTML(t, data).Render(ctx, w)
	})
}

// Markdown renders model-written markdown to sanitized HTML.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

// FormPage renders the exam configuration and upload form.
func FormPage(f Form) templ.Component { return page("form.html", f) }

// ReportPage renders the analysis report.
func ReportPage(r ReportPageData) templ.Component { return page("report.html", r) }

// ChatPage renders the follow-up chat.
func ChatPage(c Chat) templ.Component { return page("chat.html", c) }

// ErrorPage renders a full-page error message.
func ErrorPage(status int, message string) templ.Component {
	return page("error.html", struct {
		Status  int
		Message string
	}{status, message})
}
