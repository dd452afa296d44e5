package catalog

import (
	"strings"

	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Builtin tags.
const (
	AND  Tag = "AND"
	NAND Tag = "NAND"
	NOR  Tag = "NOR"
	NOT  Tag = "NOT"
	OR   Tag = "OR"
	XNOR Tag = "XNOR"
	XOR  Tag = "XOR"

	Switch Tag = "SWITCH"
	LEDRed Tag = "LED_RED"
)

// Node extents shared by every builtin type.
const (
	NodeWidth  = 88
	NodeHeight = 50
)

var (
	twoInputSlots = []SlotTemplate{
		{Name: "A", Offset: geom.Pt(0, 15), Dir: ir.DirIn},
		{Name: "B", Offset: geom.Pt(0, 35), Dir: ir.DirIn},
		{Name: "C", Offset: geom.Pt(88, 25), Dir: ir.DirOut},
	}
	notSlots = []SlotTemplate{
		{Name: "In", Offset: geom.Pt(0, 25), Dir: ir.DirIn},
		{Name: "Out", Offset: geom.Pt(88, 25), Dir: ir.DirOut},
	}
	switchSlots = []SlotTemplate{
		{Name: "A", Offset: geom.Pt(70, 25), Dir: ir.DirOut},
	}
	ledSlots = []SlotTemplate{
		{Name: "A", Offset: geom.Pt(0, 25), Dir: ir.DirIn},
	}
)

func builtinDescriptors() []Descriptor {
	gate := func(tag Tag, slots []SlotTemplate, op Op) Descriptor {
		d, err := NewDescriptor(tag, ir.KindGate, NodeWidth, NodeHeight, slots, op)
		if err != nil {
			panic(err)
		}
		return d
	}
	node := func(tag Tag, kind ir.Kind, slots []SlotTemplate) Descriptor {
		d, err := NewDescriptor(tag, kind, NodeWidth, NodeHeight, slots, nil)
		if err != nil {
			panic(err)
		}
		return d
	}

	return []Descriptor{
		gate(AND, twoInputSlots, func(in []bool) bool { return in[0] && in[1] }),
		gate(NAND, twoInputSlots, func(in []bool) bool { return !(in[0] && in[1]) }),
		gate(NOR, twoInputSlots, func(in []bool) bool { return !(in[0] || in[1]) }),
		gate(NOT, notSlots, func(in []bool) bool { return !in[0] }),
		gate(OR, twoInputSlots, func(in []bool) bool { return in[0] || in[1] }),
		gate(XNOR, twoInputSlots, func(in []bool) bool { return in[0] == in[1] }),
		gate(XOR, twoInputSlots, func(in []bool) bool { return in[0] != in[1] }),
		node(Switch, ir.KindInput, switchSlots),
		node(LEDRed, ir.KindOutput, ledSlots),
	}
}

// Builtin returns a fresh catalog holding the builtin gates, the switch
// input and the red LED output.
func Builtin() *Catalog {
	c := New()
	for _, d := range builtinDescriptors() {
		if err := c.Register(d); err != nil {
			panic(err)
		}
	}
	return c
}

var shortcuts = map[string]Tag{
	"a": AND,
	"d": NAND,
	"r": NOR,
	"n": NOT,
	"o": OR,
	"v": XNOR,
	"x": XOR,
	"s": Switch,
	"l": LEDRed,
}

// Shortcut maps a single-key shortcut (case-insensitive) to the tag it
// places.
func Shortcut(key string) (Tag, bool) {
	t, ok := shortcuts[strings.ToLower(key)]
	return t, ok
}
