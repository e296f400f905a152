package html

import (
	"embed"
	"html/template"
	"io"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/bjarke-xyz/course-applications/internal/form"
)

//go:embed pages/*.html
var files embed.FS

var (
	listTemplate   = parse("pages/list.html")
	formTemplate   = parse("pages/form.html")
	deleteTemplate = parse("pages/delete.html")
	loginTemplate  = parse("pages/login.html")
)

type ListParams struct {
	Title        string
	Error        string
	Applications []domain.Application
}

func ListPage(w io.Writer, p ListParams) error {
	return listTemplate.Execute(w, p)
}

type QuarterOption struct {
	Value    string
	Label    string
	Selected bool
}

type FormParams struct {
	Title       string
	Action      string
	SubmitLabel string
	Form        form.Application
	Errors      map[string]string
	Quarters    []QuarterOption
}

func FormPage(w io.Writer, p FormParams) error {
	if p.Quarters == nil {
		p.Quarters = quarterOptions(p.Form.Quarter)
	}
	return formTemplate.Execute(w, p)
}

type DeleteParams struct {
	Title       string
	Action      string
	Application domain.Application
}

func DeletePage(w io.Writer, p DeleteParams) error {
	return deleteTemplate.Execute(w, p)
}

type LoginParams struct {
	Title string
	Error string
	Next  string
}

func LoginPage(w io.Writer, p LoginParams) error {
	return loginTemplate.Execute(w, p)
}

func quarterOptions(selected string) []QuarterOption {
	opts := make([]QuarterOption, 0, 4)
	for _, q := range domain.Quarters() {
		value := q.Code()
		opts = append(opts, QuarterOption{
			Value:    value,
			Label:    q.String(),
			Selected: value == selected,
		})
	}
	return opts
}

func parse(file string) *template.Template {
	return template.Must(
		template.New("layout.html").ParseFS(files, "pages/layout.html", file))
}
