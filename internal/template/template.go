package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Context holds all variables available to a notification template.
type Context struct {
	Checker     string
	Section     string
	Description string
	Severity    string
	Status      string
	RunID       string
	SiteURL     string

	// Failure fields are empty for success and error notifications.
	FailureText    string
	FailureSubtext string

	// Exception holds the error text of an errored run.
	Exception string

	// Vars carries extra values such as failure data.
	Vars map[string]string
}

// CheckerURL links to the checker on the status site.
func (c *Context) CheckerURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/api/checkers/" + c.Checker
}

// RunURL links to the run on the status site.
func (c *Context) RunURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/api/runs/" + c.RunID
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.Checker}}, {{.Vars.table}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	// Fast path: no template delimiters means no work to do.
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts a Markdown document to HTML.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("template: markdown: %w", err)
	}
	return buf.String(), nil
}
