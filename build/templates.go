package build

import (
	"bytes"
	"path"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"hinc/config"
)

// OutputNameValues is a struct that holds variables we make available for
// output name template expansion.
type OutputNameValues struct {
	RelPath string // source path relative to the source root, slash separated
	Dir     string // directory part of RelPath, "." for the root
	Base    string // file name with extension
	Stem    string // file name without extension
	Ext     string // extension including the dot
}

func parseOutputNameTemplate(text string) (*template.Template, error) {
	if text == "" {
		text = "{{ .RelPath }}"
	}
	funcs := sprig.FuncMap()
	funcs["cleanName"] = config.CleanFileName
	return template.New("output_name_template").Funcs(funcs).Parse(text)
}

func renderOutputName(tmpl *template.Template, rel string) (string, error) {
	base := path.Base(rel)
	ext := path.Ext(base)
	v := OutputNameValues{
		RelPath: rel,
		Dir:     path.Dir(rel),
		Base:    base,
		Stem:    strings.TrimSuffix(base, ext),
		Ext:     ext,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
