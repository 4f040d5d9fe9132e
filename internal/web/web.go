// Package web holds the HTML templates of the registration form.
package web

import (
	"embed"
	"html/template"
)

// Template names.
const (
	TimetableTemplate = "timetable.html"
	StatusTemplate    = "status.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}
