package appmodel

import (
	"sort"

	"github.com/teranos/capgen/ats"
)

// Summary counts what a run discovered
type Summary struct {
	Capabilities int            `json:"capabilities"`
	ProxyTypes   int            `json:"proxyTypes"`
	Skipped      int            `json:"skipped"`
	Dropped      int            `json:"dropped"`
	ByModule     map[string]int `json:"byModule"`
	ByNamespace  map[string]int `json:"byNamespace"`
}

// Summary returns capability counts per module and per namespace
func (m *ApplicationModel) Summary() Summary {
	s := Summary{
		Capabilities: len(m.ordered),
		ProxyTypes:   m.graph.Len(),
		Skipped:      len(m.Skipped),
		Dropped:      len(m.graph.Dropped),
		ByModule:     make(map[string]int),
		ByNamespace:  make(map[string]int),
	}
	for _, mod := range m.Modules {
		s.ByModule[mod] = 0
	}
	for _, c := range m.ordered {
		s.ByModule[c.Module]++
		s.ByNamespace[c.Namespace]++
	}
	return s
}

// ParameterView is the serializable form of a parameter
type ParameterView struct {
	Name     string `json:"name"`
	TypeID   string `json:"atsTypeId"`
	Optional bool   `json:"isOptional"`
}

// CapabilityView is the serializable form of a capability
type CapabilityView struct {
	ID                string          `json:"capabilityId"`
	MethodName        string          `json:"methodName"`
	ExportName        string          `json:"exportName"`
	Module            string          `json:"module"`
	Source            string          `json:"source"`
	ConstraintTypeID  string          `json:"constraintTypeId"`
	ReturnTypeID      string          `json:"returnTypeId"`
	Parameters        []ParameterView `json:"parameters"`
	IsContextProperty bool            `json:"isContextProperty"`
}

// PropertyView is the serializable form of a proxy property
type PropertyView struct {
	Name     string `json:"name"`
	TypeID   string `json:"atsTypeId"`
	Writable bool   `json:"writable,omitempty"`
}

// MethodView is the serializable form of a proxy method
type MethodView struct {
	Name         string          `json:"name"`
	ReturnTypeID string          `json:"returnTypeId"`
	Parameters   []ParameterView `json:"parameters"`
}

// ProxyView is the serializable form of a proxy type
type ProxyView struct {
	ClassName  string         `json:"proxyClassName"`
	TypeID     string         `json:"typeId"`
	Properties []PropertyView `json:"properties"`
	Methods    []MethodView   `json:"methods"`
}

// View is the serializable form of the whole model, in emission order
type View struct {
	Summary      Summary          `json:"summary"`
	Capabilities []CapabilityView `json:"capabilities"`
	ProxyTypes   []ProxyView      `json:"proxyTypes"`
}

func param(name string, t ats.Type, optional bool) ParameterView {
	return ParameterView{Name: name, TypeID: t.ID(), Optional: optional}
}

// View renders the model for `capgen inspect --json`
func (m *ApplicationModel) View() View {
	v := View{Summary: m.Summary()}
	for _, c := range m.ordered {
		cv := CapabilityView{
			ID:                c.ID,
			MethodName:        c.MethodName,
			ExportName:        c.ExportName,
			Module:            c.Module,
			Source:            c.Source,
			ConstraintTypeID:  c.ConstraintTypeID(),
			ReturnTypeID:      c.ReturnTypeID(),
			Parameters:        []ParameterView{},
			IsContextProperty: c.IsContextProperty,
		}
		for _, p := range c.Parameters {
			cv.Parameters = append(cv.Parameters, param(p.Name, p.Type, p.Optional))
		}
		v.Capabilities = append(v.Capabilities, cv)
	}
	for _, p := range m.ProxyTypes() {
		pv := ProxyView{ClassName: p.ClassName, TypeID: p.TypeID(), Properties: []PropertyView{}, Methods: []MethodView{}}
		for _, prop := range p.Properties {
			pv.Properties = append(pv.Properties, PropertyView{Name: prop.Name, TypeID: prop.Type.ID(), Writable: prop.Writable})
		}
		for _, meth := range p.Methods {
			mv := MethodView{Name: meth.Name, ReturnTypeID: meth.Return.ID(), Parameters: []ParameterView{}}
			for _, mp := range meth.Parameters {
				mv.Parameters = append(mv.Parameters, param(mp.Name, mp.Type, mp.Optional))
			}
			pv.Methods = append(pv.Methods, mv)
		}
		v.ProxyTypes = append(v.ProxyTypes, pv)
	}
	sort.SliceStable(v.ProxyTypes, func(i, j int) bool { return v.ProxyTypes[i].ClassName < v.ProxyTypes[j].ClassName })
	return v
}
