package api

import (
	"embed"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the embedded HTML templates.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"zip5": func(z int) string {
			return formatZip5(z)
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
