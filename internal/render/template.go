package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"sitegen/internal/domain/config"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

const (
	headTemplate = "head.tmpl"
	footTemplate = "foot.tmpl"
)

// Template is the literal boilerplate every page is wrapped in. It is
// rendered once per build so pages only concatenate strings.
type Template struct {
	Head string
	Foot string
}

// LoadTemplate renders head.tmpl and foot.tmpl for site. An empty dir uses
// the embedded defaults.
func LoadTemplate(dir string, site config.SiteConfig) (Template, error) {
	var (
		tpl *template.Template
		err error
	)
	if strings.TrimSpace(dir) == "" {
		tpl, err = template.New("").Funcs(templateFuncs()).ParseFS(defaultTemplates, "templates/*.tmpl")
	} else {
		if err := CheckTemplates(dir); err != nil {
			return Template{}, err
		}
		tpl, err = template.New("").Funcs(templateFuncs()).ParseFS(os.DirFS(dir), "*.tmpl")
	}
	if err != nil {
		return Template{}, fmt.Errorf("parse templates: %w", err)
	}

	view := HeadView{Site: site}
	head, err := exec(tpl, headTemplate, view)
	if err != nil {
		return Template{}, err
	}
	foot, err := exec(tpl, footTemplate, view)
	if err != nil {
		return Template{}, err
	}
	return Template{Head: head, Foot: foot}, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

func exec(tpl *template.Template, name string, data any) (string, error) {
	t := tpl.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// CheckTemplates reports the first required template missing from dir.
func CheckTemplates(dir string) error {
	for _, name := range []string{headTemplate, footTemplate} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("missing template: %s", name)
			}
			return err
		}
	}
	return nil
}
