package view

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/civic-registry/console/internal/shared"
	"github.com/civic-registry/console/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	// Canonical is the URL the browser should show; set when it differs
	// from the requested one.
	Canonical string
	Nav       []NavItem
	Data      any
}

// NavItem is one entry of the screen navigation.
type NavItem struct {
	Title  string
	Href   string
	Active bool
}

var printer = message.NewPrinter(language.MustParse("en-IN"))

// FormatNumber groups the digits of a numeric string; other text is
// returned unchanged.
func FormatNumber(text string) string {
	if text == "" {
		return ""
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return printer.Sprintf("%d", n)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return printer.Sprintf("%.2f", f)
	}
	return text
}

// Stars renders a 0-5 rating.
func Stars(text string) string {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	n := int(f + 0.5)
	n = max(0, min(5, n))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// SortArrow renders a sort indicator name.
func SortArrow(indicator string) string {
	switch indicator {
	case "asc":
		return "▲"
	case "desc":
		return "▼"
	default:
		return ""
	}
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formatNumber": FormatNumber,
		"stars":        Stars,
		"sortArrow":    SortArrow,
		"add":          func(delta, n int) int { return n + delta },
		"yesNo": func(text string) string {
			switch text {
			case "true":
				return "Yes"
			case "false":
				return "No"
			}
			return text
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders into a buffer first so a template failure does not
// leave a half-written page behind a 200.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf strings.Builder
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := io.WriteString(w, buf.String())
	return err
}
