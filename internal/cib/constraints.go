package cib

import "github.com/beevik/etree"

func (b *builder) buildConstraints() []*Constraint {
	out := []*Constraint{}
	for _, el := range b.root.FindElements("./configuration/constraints/*") {
		out = append(out, constraint(el))
	}
	return out
}

// constraint copies an element and its descendants verbatim. Rule-style
// constraints nest arbitrarily deep.
func constraint(el *etree.Element) *Constraint {
	c := &Constraint{
		Type:       el.Tag,
		Attributes: make(map[string]string, len(el.Attr)),
	}
	for _, a := range el.Attr {
		c.Attributes[a.Key] = a.Value
	}
	for _, child := range el.ChildElements() {
		c.Children = append(c.Children, constraint(child))
	}
	return c
}

func (b *builder) buildTags() []Tag {
	out := []Tag{}
	for _, el := range b.root.FindElements("./configuration/tags/tag") {
		t := Tag{ID: el.SelectAttrValue("id", ""), Refs: []string{}}
		for _, ref := range el.SelectElements("obj_ref") {
			t.Refs = append(t.Refs, ref.SelectAttrValue("id", ""))
		}
		out = append(out, t)
	}
	return out
}
