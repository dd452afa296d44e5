package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// =============================================================================
// Builtin truth tables
// =============================================================================

func TestBuiltinTwoInputTruthTables(t *testing.T) {
	// Rows are (A, B) = 00, 01, 10, 11.
	tables := map[Tag][4]bool{
		AND:  {false, false, false, true},
		OR:   {false, true, true, true},
		NAND: {true, true, true, false},
		NOR:  {true, false, false, false},
		XOR:  {false, true, true, false},
		XNOR: {true, false, false, true},
	}
	c := Builtin()

	for tag, want := range tables {
		t.Run(string(tag), func(t *testing.T) {
			d, err := c.Lookup(tag)
			require.NoError(t, err)
			assert.Equal(t, ir.KindGate, d.Kind)
			assert.Equal(t, 2, d.NumIn())

			for row := 0; row < 4; row++ {
				a, b := row&2 != 0, row&1 != 0
				assert.Equal(t, want[row], d.Eval([]bool{a, b}), "row A=%v B=%v", a, b)
			}
		})
	}
}

func TestBuiltinNOT(t *testing.T) {
	d, err := Builtin().Lookup(NOT)
	require.NoError(t, err)

	assert.Equal(t, 1, d.NumIn())
	assert.True(t, d.Eval([]bool{false}))
	assert.False(t, d.Eval([]bool{true}))
	assert.True(t, d.Eval(nil), "unconnected in reads false")
}

func TestBuiltinSlotTemplates(t *testing.T) {
	c := Builtin()

	and, err := c.Lookup(AND)
	require.NoError(t, err)
	assert.Equal(t, []SlotTemplate{
		{Name: "A", Offset: geom.Pt(0, 15), Dir: ir.DirIn},
		{Name: "B", Offset: geom.Pt(0, 35), Dir: ir.DirIn},
		{Name: "C", Offset: geom.Pt(88, 25), Dir: ir.DirOut},
	}, and.Slots())

	sw, err := c.Lookup(Switch)
	require.NoError(t, err)
	assert.Equal(t, ir.KindInput, sw.Kind)
	require.Len(t, sw.Slots(), 1)
	assert.Equal(t, ir.DirOut, sw.Slots()[0].Dir)

	led, err := c.Lookup(LEDRed)
	require.NoError(t, err)
	assert.Equal(t, ir.KindOutput, led.Kind)
	require.Len(t, led.Slots(), 1)
	assert.Equal(t, ir.DirIn, led.Slots()[0].Dir)
}

func TestSlotsReturnsCopy(t *testing.T) {
	d, err := Builtin().Lookup(AND)
	require.NoError(t, err)

	s := d.Slots()
	s[0].Name = "mutated"
	assert.Equal(t, "A", d.Slots()[0].Name)
}

// =============================================================================
// Lookup and registration
// =============================================================================

func TestLookupUnknownTag(t *testing.T) {
	_, err := Builtin().Lookup("FLUX_CAPACITOR")
	require.Error(t, err)
	assert.True(t, ir.IsUnknownGateType(err))
}

func TestLookupKindRejectsWrongKind(t *testing.T) {
	c := Builtin()

	_, err := c.LookupKind(Switch, ir.KindGate)
	require.Error(t, err)
	assert.True(t, ir.IsUnknownGateType(err))

	d, err := c.LookupKind(Switch, ir.KindInput)
	require.NoError(t, err)
	assert.Equal(t, Switch, d.Tag)
}

func TestRegisterDuplicate(t *testing.T) {
	c := Builtin()
	d, err := c.Lookup(AND)
	require.NoError(t, err)

	assert.Error(t, c.Register(d))
	assert.Error(t, c.Register(Descriptor{}))
}

func TestCloneIsIndependent(t *testing.T) {
	base := Builtin()
	clone := base.Clone()

	d, err := NewDescriptor("BUF", ir.KindGate, 40, 40,
		[]SlotTemplate{{Name: "I", Dir: ir.DirIn}, {Name: "O", Offset: geom.Pt(40, 20), Dir: ir.DirOut}},
		func(in []bool) bool { return in[0] })
	require.NoError(t, err)
	require.NoError(t, clone.Register(d))

	assert.Equal(t, base.Len()+1, clone.Len())
	_, err = base.Lookup("BUF")
	assert.True(t, ir.IsUnknownGateType(err))
}

func TestTagsOrder(t *testing.T) {
	c := Builtin()
	assert.Equal(t, []Tag{AND, NAND, NOR, NOT, OR, XNOR, XOR, Switch, LEDRed}, c.Tags())
	assert.Equal(t, []Tag{Switch}, c.TagsOf(ir.KindInput))
	assert.Equal(t, []Tag{LEDRed}, c.TagsOf(ir.KindOutput))
}

// =============================================================================
// Descriptor validation
// =============================================================================

func TestNewDescriptorValidation(t *testing.T) {
	in := SlotTemplate{Name: "A", Dir: ir.DirIn}
	out := SlotTemplate{Name: "C", Dir: ir.DirOut}
	id := func(in []bool) bool { return in[0] }

	tests := []struct {
		name  string
		tag   Tag
		kind  ir.Kind
		slots []SlotTemplate
		op    Op
	}{
		{"empty tag", "", ir.KindGate, []SlotTemplate{in, out}, id},
		{"lower-case tag", "buf", ir.KindGate, []SlotTemplate{in, out}, id},
		{"gate without op", "BUF", ir.KindGate, []SlotTemplate{in, out}, nil},
		{"gate without in", "BUF", ir.KindGate, []SlotTemplate{out}, id},
		{"gate with two outs", "BUF", ir.KindGate, []SlotTemplate{in, out, {Name: "D", Dir: ir.DirOut}}, id},
		{"input with in slot", "SW", ir.KindInput, []SlotTemplate{in, out}, nil},
		{"output with out slot", "LED", ir.KindOutput, []SlotTemplate{out}, nil},
		{"duplicate slot names", "BUF", ir.KindGate, []SlotTemplate{in, {Name: "A", Dir: ir.DirOut}}, id},
		{"slot without direction", "BUF", ir.KindGate, []SlotTemplate{in, {Name: "C"}}, id},
		{"annotation kind", "NOTE", ir.KindAnnotation, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDescriptor(tt.tag, tt.kind, 10, 10, tt.slots, tt.op)
			assert.Error(t, err)
		})
	}

	_, err := NewDescriptor("BUF", ir.KindGate, 0, 10, []SlotTemplate{in, out}, id)
	assert.Error(t, err, "zero width")
}

func TestTruthTable(t *testing.T) {
	// Three-input majority: index bits are A B C from most significant.
	maj := TruthTable([]bool{false, false, false, true, false, true, true, true})

	assert.False(t, maj([]bool{true, false, false}))
	assert.True(t, maj([]bool{true, true, false}))
	assert.True(t, maj([]bool{false, true, true}))
	assert.True(t, maj([]bool{true, true, true}))
}

func TestShortcut(t *testing.T) {
	tag, ok := Shortcut("A")
	assert.True(t, ok)
	assert.Equal(t, AND, tag)

	tag, ok = Shortcut("l")
	assert.True(t, ok)
	assert.Equal(t, LEDRed, tag)

	_, ok = Shortcut("q")
	assert.False(t, ok)
}
