// Package legacy is the first-generation TypeScript backend. Proxy types are
// declared as interfaces backed by plain objects and capabilities are free
// functions invoked with an explicit receiver:
//
//	await addTestRedis.call(builder, "cache", 6379)
package legacy

import (
	"fmt"
	"strings"

	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/typegen"
	tsutil "github.com/teranos/capgen/typegen/util"
)

func init() {
	typegen.Register(NewGenerator())
}

// Generator implements typegen.Generator with strings.Builder rendering
type Generator struct{}

// NewGenerator creates a new legacy generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Name returns "legacy"
func (g *Generator) Name() string {
	return "legacy"
}

// Generate renders the fixed file set
func (g *Generator) Generate(model *appmodel.ApplicationModel, opts typegen.Options) (typegen.FileSet, error) {
	fixed, err := typegen.Fixed(opts)
	if err != nil {
		return nil, err
	}
	r := typegen.NewRender(model)
	return typegen.NewFileSet(append(fixed,
		typegen.File{Path: typegen.CapabilitiesFile, Data: []byte(GenerateBindings(r))},
		typegen.File{Path: typegen.TypesFile, Data: []byte(GenerateTypes(r))},
	)...)
}

func header(sb *strings.Builder) {
	sb.WriteString("/* eslint-disable */\n")
	sb.WriteString("// Generated by capgen. Do not edit.\n\n")
}

// GenerateBindings renders capabilities.ts: one exported function per capability
func GenerateBindings(r *typegen.Render) string {
	var sb strings.Builder
	header(&sb)
	sb.WriteString("import { invokeCapability } from \"./transport\";\n")
	if len(r.Refs) > 0 {
		sb.WriteString(fmt.Sprintf("import type { %s } from \"./types\";\n", strings.Join(r.Refs, ", ")))
	}

	for _, b := range r.Bindings {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("/** %s (%s) */\n", tsutil.DocLine(b.ID), tsutil.DocLine(b.Source)))

		params := "this: " + b.Receiver
		if sig := b.Signature(); sig != "" {
			params += ", " + sig
		}
		sb.WriteString(fmt.Sprintf("export async function %s(%s): Promise<%s> {\n", b.Name, params, b.Result))
		sb.WriteString(fmt.Sprintf("  return invokeCapability<%s>(%s, [%s]);\n",
			b.Result, tsutil.Quote(b.ID), strings.Join(b.Args, ", ")))
		sb.WriteString("}\n")
	}
	return sb.String()
}

// GenerateTypes renders types.ts: an interface per proxy type plus the
// factory that backs it with invokeMember calls
func GenerateTypes(r *typegen.Render) string {
	var sb strings.Builder
	header(&sb)
	sb.WriteString("import { invokeMember, registerProxy } from \"./transport\";\n")
	sb.WriteString("import type { Handle } from \"./transport\";\n")

	for _, p := range r.Proxies {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("/** %s */\n", tsutil.DocLine(p.FullName)))
		sb.WriteString(fmt.Sprintf("export interface %s {\n", p.ClassName))
		sb.WriteString("  readonly handle: Handle;\n")
		sb.WriteString("  toJSON(): Handle;\n")
		for _, prop := range p.Properties {
			sb.WriteString(fmt.Sprintf("  %s(): Promise<%s>;\n", prop.Name, prop.Type))
			if prop.Setter != "" {
				sb.WriteString(fmt.Sprintf("  %s(value: %s): Promise<void>;\n", prop.Setter, prop.Type))
			}
		}
		for _, m := range p.Methods {
			sb.WriteString(fmt.Sprintf("  %s(%s): Promise<%s>;\n", m.Name, m.Signature(), m.Result))
		}
		sb.WriteString("}\n\n")

		sb.WriteString(fmt.Sprintf("registerProxy(%s, (handle: Handle): %s => ({\n", tsutil.Quote(p.TypeID), p.ClassName))
		sb.WriteString("  handle,\n")
		sb.WriteString("  toJSON: () => handle,\n")
		for _, prop := range p.Properties {
			member := tsutil.Quote(prop.MemberName)
			sb.WriteString(fmt.Sprintf("  %s: () => invokeMember<%s>(handle, %s, \"get\", []),\n", prop.Name, prop.Type, member))
			if prop.Setter != "" {
				sb.WriteString(fmt.Sprintf("  %s: (value: %s) => invokeMember<void>(handle, %s, \"set\", [value]),\n",
					prop.Setter, prop.Type, member))
			}
		}
		for _, m := range p.Methods {
			sb.WriteString(fmt.Sprintf("  %s: (%s) => invokeMember<%s>(handle, %s, \"call\", [%s]),\n",
				m.Name, m.Signature(), m.Result, tsutil.Quote(m.MemberName), strings.Join(m.Args, ", ")))
		}
		sb.WriteString("}));\n")
	}
	return sb.String()
}
