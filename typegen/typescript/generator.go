// Package typescript is the second-generation TypeScript backend. Proxy
// types are classes extending ProxyObject and every capability whose
// receiver is a proxy is also mounted as a method on that class:
//
//	const redis = await builder.addTestRedis("cache", 6379)
package typescript

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/typegen"
	tsutil "github.com/teranos/capgen/typegen/util"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"join":  strings.Join,
	"quote": tsutil.Quote,
	"doc":   tsutil.DocLine,
}).ParseFS(templateFS, "templates/*.tmpl"))

func init() {
	typegen.Register(NewGenerator())
}

// Generator implements typegen.Generator with text/template rendering
type Generator struct{}

// NewGenerator creates a new TypeScript generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Name returns "typescript"
func (g *Generator) Name() string {
	return "typescript"
}

// Mount is a proxy class and the capabilities added to its prototype
type Mount struct {
	ClassName string
	Bindings  []typegen.Binding
}

type document struct {
	*typegen.Render
	Mounts []Mount
}

// Generate renders the fixed file set
func (g *Generator) Generate(model *appmodel.ApplicationModel, opts typegen.Options) (typegen.FileSet, error) {
	fixed, err := typegen.Fixed(opts)
	if err != nil {
		return nil, err
	}
	doc := document{Render: typegen.NewRender(model)}
	doc.Mounts = Mounts(doc.Render)

	files := fixed
	for _, out := range []struct{ path, tmpl string }{
		{typegen.CapabilitiesFile, "capabilities.ts.tmpl"},
		{typegen.TypesFile, "types.ts.tmpl"},
	} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, out.tmpl, doc); err != nil {
			return nil, errors.Wrapf(err, "failed to render %s", out.path)
		}
		files = append(files, typegen.File{Path: out.path, Data: buf.Bytes()})
	}
	return typegen.NewFileSet(files...)
}

// Mounts groups the bindings whose receiver is a proxy class by that class.
// A binding is not mounted when the class already has a member of that
// name, or when several bindings would mount the same name on the class;
// those stay callable as free functions.
func Mounts(r *typegen.Render) []Mount {
	members := make(map[string]map[string]bool, len(r.Proxies))
	classes := make(map[string]string, len(r.Proxies))
	for _, p := range r.Proxies {
		names := map[string]bool{}
		for _, prop := range p.Properties {
			names[prop.Name] = true
			if prop.Setter != "" {
				names[prop.Setter] = true
			}
		}
		for _, m := range p.Methods {
			names[m.Name] = true
		}
		members[p.ClassName] = names
		classes[p.TypeID] = p.ClassName
	}

	claims := make(map[string]int)
	for _, b := range r.Bindings {
		if class, ok := classes[b.ReceiverID]; ok {
			claims[class+"."+b.Member]++
		}
	}

	byClass := make(map[string]*Mount)
	for _, b := range r.Bindings {
		class, ok := classes[b.ReceiverID]
		if !ok || members[class][b.Member] || claims[class+"."+b.Member] > 1 {
			continue
		}
		m, ok := byClass[class]
		if !ok {
			m = &Mount{ClassName: class}
			byClass[class] = m
		}
		m.Bindings = append(m.Bindings, b)
	}

	// Proxies are already sorted by class name; keep that order
	var out []Mount
	for _, p := range r.Proxies {
		if m, ok := byClass[p.ClassName]; ok {
			out = append(out, *m)
		}
	}
	return out
}
