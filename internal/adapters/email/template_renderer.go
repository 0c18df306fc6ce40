package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"eventhub/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// AppInfo is exposed to every template as .App.
type AppInfo struct {
	Name string
	URL  string
}

// templateData is the root object templates execute against.
type templateData struct {
	App  AppInfo
	Data any
}

var funcs = map[string]any{
	// inZone formats a UTC instant in the named IANA zone, falling back to UTC.
	"inZone": func(t time.Time, tz string) string {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			loc = time.UTC
		}
		return t.In(loc).Format("Mon, 02 Jan 2006 15:04 MST")
	},
}

// templateRenderer implements domain.EmailTemplateRenderer using embedded template files.
type templateRenderer struct {
	app AppInfo
}

// NewTemplateRenderer returns an EmailTemplateRenderer that loads templates from the embedded templates folder.
func NewTemplateRenderer(app AppInfo) domain.EmailTemplateRenderer {
	return &templateRenderer{app: app}
}

// Render executes the named template (e.g. "welcome") with data and returns subject, html, and text bodies.
func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	root := templateData{App: r.app, Data: data}
	subject, err = r.renderFile(templateName+"_subject.txt", root, false)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err = r.renderFile(templateName+".html", root, true)
	if err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	textBody, err = r.renderFile(templateName+".txt", root, false)
	if err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func (r *templateRenderer) renderFile(name string, data templateData, html bool) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", err
	}
	tmplStr := string(raw)
	var buf bytes.Buffer
	if html {
		t, err := template.New(name).Funcs(template.FuncMap(funcs)).Option("missingkey=error").Parse(tmplStr)
		if err != nil {
			return "", err
		}
		if err := t.Execute(&buf, data); err != nil {
			return "", err
		}
	} else {
		t, err := texttemplate.New(name).Funcs(texttemplate.FuncMap(funcs)).Option("missingkey=error").Parse(tmplStr)
		if err != nil {
			return "", err
		}
		if err := t.Execute(&buf, data); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
