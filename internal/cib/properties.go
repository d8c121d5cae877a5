package cib

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/beevik/etree"
)

// Property is a single name/value pair from a property set.
type Property struct {
	Name  string
	Value string
}

// Properties is an ordered property bag. Setting an existing name replaces
// its value in place.
type Properties struct {
	items []Property
	index map[string]int
}

// NewProperties returns a bag seeded with defaults, in the given order.
func NewProperties(defaults ...Property) *Properties {
	p := &Properties{index: make(map[string]int)}
	for _, d := range defaults {
		p.set(d.Name, d.Value)
	}
	return p
}

func (p *Properties) set(name, value string) {
	if i, ok := p.index[name]; ok {
		p.items[i].Value = value
		return
	}
	p.index[name] = len(p.items)
	p.items = append(p.items, Property{Name: name, Value: value})
}

// Get returns the value of name and whether it is present.
func (p *Properties) Get(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	i, ok := p.index[name]
	if !ok {
		return "", false
	}
	return p.items[i].Value, true
}

// Value returns the value of name, or "" when absent.
func (p *Properties) Value(name string) string {
	v, _ := p.Get(name)
	return v
}

// Bool interprets name as a pacemaker boolean, returning dflt when the
// property is absent or not a recognizable boolean.
func (p *Properties) Bool(name string, dflt bool) bool {
	v, ok := p.Get(name)
	if !ok {
		return dflt
	}
	return parseBool(v, dflt)
}

// Items returns a copy of the properties in order.
func (p *Properties) Items() []Property {
	if p == nil {
		return nil
	}
	out := make([]Property, len(p.items))
	copy(out, p.items)
	return out
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// MarshalJSON writes the bag as an object, preserving order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if p != nil {
		for i, it := range p.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(it.Name)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(it.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ClusterConfig holds the cluster-wide property sets of a CIB.
type ClusterConfig struct {
	CRM         *Properties `json:"crm_config"`
	RscDefaults *Properties `json:"rsc_defaults"`
	OpDefaults  *Properties `json:"op_defaults"`
}

// Properties that are always reported, with their values when unset.
var crmDefaults = []Property{
	{"cluster-infrastructure", "Unknown"},
	{"dc-version", "Unknown"},
	{"stonith-enabled", "true"},
	{"symmetric-cluster", "true"},
	{"no-quorum-policy", "stop"},
}

// StonithEnabled reports whether fencing is enabled.
func (c *ClusterConfig) StonithEnabled() bool { return c.CRM.Bool("stonith-enabled", true) }

// MaintenanceMode reports whether the whole cluster is in maintenance.
func (c *ClusterConfig) MaintenanceMode() bool { return c.CRM.Bool("maintenance-mode", false) }

// IsManagedDefault reports the cluster-wide default for is-managed.
func (c *ClusterConfig) IsManagedDefault() bool { return c.CRM.Bool("is-managed-default", true) }

// extractConfig reads crm_config, rsc_defaults and op_defaults. Every nvpair
// below each section is taken, across all of its property sets.
func extractConfig(root *etree.Element) *ClusterConfig {
	cfg := &ClusterConfig{
		CRM:         NewProperties(crmDefaults...),
		RscDefaults: NewProperties(),
		OpDefaults:  NewProperties(),
	}
	collect := func(dst *Properties, path string) {
		for _, nv := range root.FindElements(path) {
			dst.set(nv.SelectAttrValue("name", ""), nv.SelectAttrValue("value", ""))
		}
	}
	collect(cfg.CRM, "./configuration/crm_config//nvpair")
	collect(cfg.RscDefaults, "./configuration/rsc_defaults//nvpair")
	collect(cfg.OpDefaults, "./configuration/op_defaults//nvpair")
	return cfg
}

// parseBool follows pacemaker's crm_is_true / crm_str_to_boolean.
func parseBool(v string, dflt bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "yes", "y", "1":
		return true
	case "false", "off", "no", "n", "0":
		return false
	}
	return dflt
}

// truthy matches the values accepted for node standby and maintenance
// attributes.
func truthy(v string) bool {
	switch v {
	case "true", "yes", "1", "on":
		return true
	}
	return false
}
