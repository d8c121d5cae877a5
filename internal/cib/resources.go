package cib

import (
	"log/slog"
	"strconv"

	"github.com/beevik/etree"
)

// maxCloneMax bounds the number of instances synthesized for one clone.
const maxCloneMax = 4096

// buildResources walks configuration/resources in document order. Templates
// are not instantiable and are collected separately.
func (b *builder) buildResources() []*Resource {
	managed := b.config.IsManagedDefault() && !b.config.MaintenanceMode()
	out := []*Resource{}
	for _, el := range b.root.FindElements("./configuration/resources/*") {
		switch Kind(el.Tag) {
		case KindPrimitive, KindGroup, KindClone, KindMultiState:
			out = append(out, b.resource(el, managed, nil, false))
		case "template":
		default:
			b.unknownResource(el)
		}
	}
	return out
}

// resource builds one node of the tree. cloneMax is non-nil inside a clone or
// master; multiState is set below a master.
func (b *builder) resource(el *etree.Element, managed bool, cloneMax *int, multiState bool) *Resource {
	r := &Resource{
		ID:            el.SelectAttrValue("id", ""),
		Kind:          Kind(el.Tag),
		Attributes:    make(map[string]string),
		Managed:       managed,
		ManagedSource: ManagedInherited,
		State:         StateUnknown,
	}
	b.byID[r.ID] = r

	for _, nv := range el.FindElements("./meta_attributes/nvpair") {
		r.Attributes[nv.SelectAttrValue("name", "")] = nv.SelectAttrValue("value", "")
	}
	if v, ok := r.Attributes["is-managed"]; ok {
		r.Managed = parseBool(v, true)
		r.ManagedSource = ManagedExplicit
	}
	if v, ok := r.Attributes["maintenance"]; ok && parseBool(v, false) {
		r.Managed = false
		r.ManagedSource = ManagedMaintenance
	}

	if r.Kind == KindPrimitive {
		r.Agent = &Agent{
			Class:    el.SelectAttrValue("class", ""),
			Provider: el.SelectAttrValue("provider", ""),
			Type:     el.SelectAttrValue("type", ""),
			Template: el.SelectAttrValue("template", ""),
		}
		for _, op := range el.FindElements("./operations/op") {
			r.Operations = append(r.Operations, OpDef{
				Name:     op.SelectAttrValue("name", ""),
				Interval: op.SelectAttrValue("interval", ""),
				OnFail:   op.SelectAttrValue("on-fail", ""),
			})
		}
		r.Instances = make(map[InstanceKey]*Instance)
		if cloneMax != nil {
			r.InClone = true
			r.CloneMax = *cloneMax
		}
		r.MultiState = multiState
		return r
	}

	r.Children = []*Resource{}
	if r.Kind == KindClone || r.Kind == KindMultiState {
		n := len(b.nodes)
		if nv := el.FindElement("./meta_attributes/nvpair[@name='clone-max']"); nv != nil {
			n = min(max(atoi(nv.SelectAttrValue("value", "")), 0), maxCloneMax)
		}
		cloneMax = &n
		multiState = multiState || r.Kind == KindMultiState
	}

	if prims := el.SelectElements(string(KindPrimitive)); len(prims) > 0 {
		for _, p := range prims {
			r.Children = append(r.Children, b.resource(p, r.Managed, cloneMax, multiState))
		}
	} else if g := el.SelectElement(string(KindGroup)); g != nil {
		r.Children = append(r.Children, b.resource(g, r.Managed, cloneMax, multiState))
	} else {
		slog.Debug("container without primitive or group child", "id", r.ID, "kind", r.Kind)
		b.diag(KindEmptyContainer, SeverityWarning, map[string]string{"id": r.ID, "kind": string(r.Kind)})
	}
	return r
}

func (b *builder) unknownResource(el *etree.Element) {
	id := el.SelectAttrValue("id", "")
	slog.Debug("unknown resource element", "id", id, "element", el.Tag)
	b.diag(KindUnknownResource, SeverityWarning, map[string]string{"id": id, "element": el.Tag})
}

func (b *builder) buildTemplates() []Template {
	out := []Template{}
	for _, el := range b.root.FindElements("./configuration/resources/template") {
		out = append(out, Template{
			ID:       el.SelectAttrValue("id", ""),
			Class:    el.SelectAttrValue("class", ""),
			Provider: el.SelectAttrValue("provider", ""),
			Type:     el.SelectAttrValue("type", ""),
		})
	}
	return out
}

// atoi parses the leading decimal digits of s (after an optional sign),
// returning 0 when there are none. CIB numeric attributes are read this way
// so that values such as "1000ms" still yield a number.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0
	}
	return n
}
