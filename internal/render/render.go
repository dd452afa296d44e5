// Package render draws an engine.Scene as a PNG image.
//
// The renderer is a pure function of the scene: it reads the view produced
// by engine.Session.Scene and never touches the session itself, so it can
// run on any goroutine once the scene has been copied out of the loop.
//
// Drawing order, back to front:
//
//	connections  (the one being drawn is dashed)
//	gates and terminals
//	slots        (filled by the value they carry)
//	annotations
package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Palette holds the colours used for each part of the scene.
type Palette struct {
	Background color.RGBA
	Ink        color.RGBA // outlines and text
	Gate       color.RGBA
	Low        color.RGBA // a false signal
	High       color.RGBA // a true signal
	Lit        color.RGBA // an output that is on
	Selection  color.RGBA
	Candidate  color.RGBA
}

// DefaultPalette is the palette used unless WithPalette is given.
var DefaultPalette = Palette{
	Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	Ink:        color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff},
	Gate:       color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff},
	Low:        color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff},
	High:       color.RGBA{R: 0x2e, G: 0xcc, B: 0x40, A: 0xff},
	Lit:        color.RGBA{R: 0xff, G: 0x41, B: 0x36, A: 0xff},
	Selection:  color.RGBA{R: 0x00, G: 0x74, B: 0xd9, A: 0xff},
	Candidate:  color.RGBA{R: 0xff, G: 0xdc, B: 0x00, A: 0xff},
}

// PNG renders scenes to PNG. The zero value is not usable; call New.
type PNG struct {
	scale   float64
	padding float64
	palette Palette
}

var _ engine.Renderer = (*PNG)(nil)

// Option configures a PNG renderer.
type Option func(*PNG)

// WithScale multiplies every coordinate by s. Default: 1.
func WithScale(s float64) Option {
	return func(p *PNG) {
		if s > 0 {
			p.scale = s
		}
	}
}

// WithPadding sets the margin around the content when the scene has no
// canvas. Default: 16.
func WithPadding(px float64) Option {
	return func(p *PNG) {
		if px >= 0 {
			p.padding = px
		}
	}
}

// WithPalette replaces the colours.
func WithPalette(pal Palette) Option {
	return func(p *PNG) {
		p.palette = pal
	}
}

// New creates a PNG renderer.
func New(opts ...Option) *PNG {
	p := &PNG{scale: 1, padding: 16, palette: DefaultPalette}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render draws sc and writes it to w as PNG.
func (p *PNG) Render(w io.Writer, sc engine.Scene) error {
	frame := p.frame(sc)
	width := int(frame.W*p.scale + 0.5)
	height := int(frame.H*p.scale + 0.5)
	if width < 1 || height < 1 {
		return fmt.Errorf("render: empty frame %vx%v", frame.W, frame.H)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(p.palette.Background)
	dc.Clear()
	dc.Scale(p.scale, p.scale)
	dc.Translate(-frame.Pos.X, -frame.Pos.Y)
	dc.SetFontFace(basicfont.Face7x13)

	for _, c := range sc.Connections {
		p.drawConnection(dc, c, sc.Selected)
	}
	for _, g := range sc.Gates {
		p.drawGate(dc, g, sc.Selected)
	}
	for _, t := range sc.Terminals {
		p.drawTerminal(dc, t, sc.Selected)
	}
	for _, s := range sc.Slots {
		p.drawSlot(dc, s, sc.Candidate)
	}
	for _, a := range sc.Annotations {
		p.drawAnnotation(dc, a, sc.Selected)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("render: encode png: %w", err)
	}
	return nil
}

// frame returns the document region the image covers: the canvas when the
// scene has one, otherwise everything drawn plus padding.
func (p *PNG) frame(sc engine.Scene) geom.Box {
	if !sc.Canvas.Empty() {
		return sc.Canvas
	}

	var content geom.Box
	seen := false
	add := func(b geom.Box) {
		if !seen {
			content, seen = b, true
			return
		}
		content = content.Union(b)
	}
	for _, g := range sc.Gates {
		add(g.Bounds)
	}
	for _, t := range sc.Terminals {
		add(t.Bounds)
	}
	for _, s := range sc.Slots {
		add(geom.Centered(s.Pos, 2*s.Radius, 2*s.Radius))
	}
	for _, c := range sc.Connections {
		add(geom.NewBox(c.From, 0, 0))
		add(geom.NewBox(c.To, 0, 0))
	}
	for _, a := range sc.Annotations {
		add(a.Bounds)
	}

	pad := p.padding
	if !seen {
		return geom.NewBox(geom.Pt(0, 0), 2*pad+1, 2*pad+1)
	}
	return geom.NewBox(
		geom.Pt(content.Pos.X-pad, content.Pos.Y-pad),
		content.W+2*pad, content.H+2*pad,
	)
}

func (p *PNG) signal(v bool) color.RGBA {
	if v {
		return p.palette.High
	}
	return p.palette.Low
}

func (p *PNG) drawConnection(dc *gg.Context, c engine.ConnectionView, selected ir.ID) {
	dc.Push()
	defer dc.Pop()

	dc.SetLineWidth(2)
	dc.SetColor(p.signal(c.Value))
	if c.ID == selected {
		dc.SetLineWidth(4)
		dc.SetColor(p.palette.Selection)
	}
	if !c.Bound {
		dc.SetColor(p.palette.Ink)
		dc.SetDash(6, 4)
	}
	dc.DrawLine(c.From.X, c.From.Y, c.To.X, c.To.Y)
	dc.Stroke()
}

func (p *PNG) drawGate(dc *gg.Context, g engine.GateView, selected ir.ID) {
	b := g.Bounds
	dc.SetColor(p.palette.Gate)
	dc.DrawRectangle(b.Pos.X, b.Pos.Y, b.W, b.H)
	dc.Fill()

	p.outline(dc, b, g.ID == selected)

	c := b.Center()
	dc.SetColor(p.palette.Ink)
	dc.DrawStringAnchored(string(g.Tag), c.X, c.Y, 0.5, 0.5)
}

// drawTerminal fills an input by its switch state and an output by whether
// it is lit, and labels it underneath.
func (p *PNG) drawTerminal(dc *gg.Context, t engine.TerminalView, selected ir.ID) {
	b := t.Bounds
	fill := p.palette.Low
	switch {
	case t.Kind == ir.KindInput && t.On:
		fill = p.palette.High
	case t.Kind == ir.KindOutput && t.On:
		fill = p.palette.Lit
	}
	dc.SetColor(fill)
	dc.DrawRectangle(b.Pos.X, b.Pos.Y, b.W, b.H)
	dc.Fill()

	p.outline(dc, b, t.ID == selected)

	dc.SetColor(p.palette.Ink)
	dc.DrawStringAnchored(string(t.Tag), b.Center().X, b.Pos.Y+b.H+2, 0.5, 1)
}

func (p *PNG) outline(dc *gg.Context, b geom.Box, selected bool) {
	dc.SetLineWidth(1)
	dc.SetColor(p.palette.Ink)
	if selected {
		dc.SetLineWidth(3)
		dc.SetColor(p.palette.Selection)
	}
	dc.DrawRectangle(b.Pos.X, b.Pos.Y, b.W, b.H)
	dc.Stroke()
}

func (p *PNG) drawSlot(dc *gg.Context, s engine.SlotView, candidate ir.ID) {
	dc.SetColor(p.signal(s.Value))
	dc.DrawCircle(s.Pos.X, s.Pos.Y, s.Radius)
	dc.Fill()

	dc.SetLineWidth(1)
	dc.SetColor(p.palette.Ink)
	if s.ID == candidate {
		dc.SetLineWidth(3)
		dc.SetColor(p.palette.Candidate)
	}
	dc.DrawCircle(s.Pos.X, s.Pos.Y, s.Radius)
	dc.Stroke()
}

// drawAnnotation writes the text at its top-left corner. The style is kept
// in the document but the renderer draws every annotation in one face.
func (p *PNG) drawAnnotation(dc *gg.Context, a engine.AnnotationView, selected ir.ID) {
	if a.ID == selected {
		p.outline(dc, a.Bounds, true)
	}
	dc.SetColor(p.palette.Ink)
	dc.DrawStringAnchored(a.Text, a.Bounds.Pos.X, a.Bounds.Pos.Y, 0, 1)
}
