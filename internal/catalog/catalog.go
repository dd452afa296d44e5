package catalog

import (
	"fmt"
	"slices"

	"github.com/roach88/connectlab/internal/ir"
)

// Catalog maps tags to descriptors. A catalog is filled at startup and only
// read afterwards; Clone before registering into a shared one.
type Catalog struct {
	descs map[Tag]Descriptor
	order []Tag
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{descs: make(map[Tag]Descriptor)}
}

// Register adds a descriptor. Registering a tag twice is an error.
func (c *Catalog) Register(d Descriptor) error {
	if d.Tag == "" || d.Kind == 0 {
		return fmt.Errorf("register: descriptor was not built with NewDescriptor")
	}
	if _, ok := c.descs[d.Tag]; ok {
		return fmt.Errorf("register: tag %s already registered", d.Tag)
	}
	c.descs[d.Tag] = d
	c.order = append(c.order, d.Tag)
	return nil
}

// Lookup returns the descriptor for tag or an UnknownGateType error.
func (c *Catalog) Lookup(tag Tag) (Descriptor, error) {
	d, ok := c.descs[tag]
	if !ok {
		return Descriptor{}, ir.NewUnknownGateType(string(tag))
	}
	return d, nil
}

// LookupKind is Lookup restricted to one node kind, so that a switch tag
// cannot be placed as a gate.
func (c *Catalog) LookupKind(tag Tag, kind ir.Kind) (Descriptor, error) {
	d, err := c.Lookup(tag)
	if err != nil {
		return Descriptor{}, err
	}
	if d.Kind != kind {
		e := ir.NewUnknownGateType(string(tag))
		e.Message = fmt.Sprintf("tag is a %s, not a %s", d.Kind, kind)
		return Descriptor{}, e
	}
	return d, nil
}

// Tags returns all tags in registration order.
func (c *Catalog) Tags() []Tag {
	return slices.Clone(c.order)
}

// TagsOf returns the tags of one kind in registration order.
func (c *Catalog) TagsOf(kind ir.Kind) []Tag {
	var out []Tag
	for _, t := range c.order {
		if c.descs[t].Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of registered descriptors.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Clone returns an independent copy. Descriptors are immutable and shared.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		descs: make(map[Tag]Descriptor, len(c.descs)),
		order: slices.Clone(c.order),
	}
	for t, d := range c.descs {
		out.descs[t] = d
	}
	return out
}
