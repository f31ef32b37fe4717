// Package gotext implements the layout engine's Shaper on top of
// go-text/typesetting: HarfBuzz shaping, script segmentation and UAX#14 line
// wrapping. Per-line widths come from the clip path's band intervals, so
// wrapped lines flow around exclusion holes.
package gotext

import (
	"bytes"
	"errors"
	"math"
	"os"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/textframe/textframe"
	"github.com/textframe/textframe/attr"
)

// ErrNoFace is returned when neither the text attributes nor the shaper's
// fallback list yield a usable font face.
var ErrNoFace = errors.New("gotext: no font face available")

// DefaultSize is the font size used for spans that carry none.
const DefaultSize = 12.0

// Shaper shapes and wraps attributed text with HarfBuzz. It is safe for
// concurrent use; the underlying go-text state is guarded by a mutex.
type Shaper struct {
	mu       sync.Mutex
	shaper   shaping.HarfbuzzShaper
	wrapper  shaping.LineWrapper
	splitter shaping.Segmenter
	faces    []*font.Face
}

// New returns a Shaper with the given fallback faces, tried in order when a
// span's own face misses a rune.
func New(faces ...*font.Face) *Shaper {
	s := &Shaper{faces: faces}
	s.shaper.SetFontCacheSize(32)
	return s
}

// LoadFontFile parses a TTF/OTF font file into a face usable in
// attr.Attributes.Face and as a fallback face.
func LoadFontFile(path string) (*font.Face, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFont(b)
}

// ParseFont parses TTF/OTF font data.
func ParseFont(b []byte) (*font.Face, error) {
	return font.ParseTTF(bytes.NewReader(b))
}

// faceMap resolves faces per rune, preferring the span's own face.
type faceMap struct {
	preferred *font.Face
	faces     []*font.Face
}

func (m *faceMap) ResolveFace(r rune) *font.Face {
	if m.preferred != nil {
		if _, ok := m.preferred.NominalGlyph(r); ok {
			return m.preferred
		}
	}
	for _, f := range m.faces {
		if _, ok := f.NominalGlyph(r); ok {
			return f
		}
	}
	if m.preferred != nil {
		return m.preferred
	}
	if len(m.faces) > 0 {
		return m.faces[0]
	}
	return nil
}

func fromFixed(f fixed.Int26_6) float64 {
	return float64(f) / 64.0
}

func toFixed(f float64) fixed.Int26_6 {
	return fixed.Int26_6(f * 64.0)
}

// lineBreakRune reports mandatory break characters.
func lineBreakRune(r rune) bool {
	switch r {
	case '\n', '\r', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// paragraphs splits rng into paragraph ranges, each including its trailing
// break characters (CRLF stays one pair).
func paragraphs(runes []rune, rng attr.Range) []attr.Range {
	var out []attr.Range
	start := rng.Start
	i := rng.Start
	for i < rng.End {
		if lineBreakRune(runes[i]) {
			end := i + 1
			if runes[i] == '\r' && end < rng.End && runes[end] == '\n' {
				end++
			}
			out = append(out, attr.Range{Start: start, End: end})
			start, i = end, end
			continue
		}
		i++
	}
	if start < rng.End {
		out = append(out, attr.Range{Start: start, End: rng.End})
	}
	return out
}

// spanDirection resolves a span's shaping direction from its attribute
// override, the writing axis and the paragraph's base direction.
func spanDirection(d attr.Direction, vertical bool, paragraph []rune) di.Direction {
	if vertical {
		return di.DirectionTTB
	}
	switch d {
	case attr.DirectionLTR:
		return di.DirectionLTR
	case attr.DirectionRTL:
		return di.DirectionRTL
	}
	var p bidi.Paragraph
	if _, err := p.SetString(string(paragraph)); err == nil && !p.IsLeftToRight() {
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

// metrics aggregates line metrics over a paragraph's shaped outputs.
type metrics struct {
	ascent, descent, gap float64
}

func (m *metrics) observe(o *shaping.Output) {
	m.ascent = math.Max(m.ascent, fromFixed(o.LineBounds.Ascent))
	m.descent = math.Max(m.descent, math.Abs(fromFixed(o.LineBounds.Descent)))
	m.gap = math.Max(m.gap, math.Abs(fromFixed(o.LineBounds.Gap)))
}

func (m *metrics) height() float64 {
	return m.ascent + m.descent
}

// shapeParagraph shapes one paragraph into outputs with paragraph-relative
// rune offsets, one or more outputs per attribute span.
func (s *Shaper) shapeParagraph(text *attr.Text, para attr.Range, vertical bool) ([]shaping.Output, metrics, error) {
	runes := text.Runes()[para.Start:para.End]
	var outs []shaping.Output
	var m metrics
	for _, sp := range text.Spans() {
		r := sp.Range.Intersect(para)
		if r.Len() == 0 {
			continue
		}
		dir := spanDirection(sp.Attrs.Direction, vertical, runes)
		if att := sp.Attrs.Attachment; att != nil {
			o := attachmentOutput(att, r, para.Start, dir)
			m.observe(&o)
			outs = append(outs, o)
			continue
		}
		size := sp.Attrs.Size
		if size <= 0.0 {
			size = DefaultSize
		}
		in := shaping.Input{
			Text:      runes,
			RunStart:  r.Start - para.Start,
			RunEnd:    r.End - para.Start,
			Direction: dir,
			Size:      toFixed(size),
			Language:  language.DefaultLanguage(),
		}
		preferred, _ := sp.Attrs.Face.(*font.Face)
		fm := &faceMap{preferred: preferred, faces: s.faces}
		for _, split := range s.splitter.Split(in, fm) {
			if split.Face == nil {
				return nil, metrics{}, ErrNoFace
			}
			o := s.shaper.Shape(split)
			m.observe(&o)
			outs = append(outs, o)
		}
	}
	return outs, m, nil
}

// attachmentOutput synthesizes a single placeholder glyph whose advance
// reserves the attachment's box in the text flow.
func attachmentOutput(att *attr.Attachment, r attr.Range, base int, dir di.Direction) shaping.Output {
	w := att.Width + att.Insets[1] + att.Insets[3]
	h := att.Height + att.Insets[0] + att.Insets[2]
	g := shaping.Glyph{
		ClusterIndex: r.Start - base,
		RuneCount:    r.Len(),
		GlyphCount:   1,
		Width:        toFixed(w),
		Height:       toFixed(h),
		YBearing:     toFixed(h),
	}
	adv := toFixed(w)
	asc := toFixed(h)
	if dir.IsVertical() {
		g.YAdvance = -toFixed(h)
		adv = toFixed(h)
		asc = toFixed(w)
	} else {
		g.XAdvance = toFixed(w)
	}
	return shaping.Output{
		Advance:    adv,
		Runes:      shaping.Range{Offset: r.Start - base, Count: r.Len()},
		Direction:  dir,
		Glyphs:     []shaping.Glyph{g},
		LineBounds: shaping.Bounds{Ascent: asc},
	}
}

// buildLine converts one wrapped go-text line into an engine line positioned
// in shaper space (Cartesian, origin at the clip bounds' bottom-left).
func buildLine(wl shaping.Line, paraRunes []rune, base int, m metrics, inlineStart, bandLo float64, clipB textframe.Rect, vertical bool) textframe.Line {
	ln := textframe.Line{Ascent: m.ascent, Descent: m.descent}
	x := 0.0
	first := true
	for _, o := range wl {
		run := textframe.Run{
			Range:   attr.Range{Start: base + o.Runes.Offset, End: base + o.Runes.Offset + o.Runes.Count},
			RTL:     o.Direction.Progression() == di.TowardTopLeft,
			X:       x,
			Advance: fromFixed(o.Advance),
			Ascent:  fromFixed(o.LineBounds.Ascent),
			Descent: math.Abs(fromFixed(o.LineBounds.Descent)),
			Face:    o.Face,
		}
		for _, g := range o.Glyphs {
			var rr rune
			if 0 <= g.ClusterIndex && g.ClusterIndex < len(paraRunes) {
				rr = paraRunes[g.ClusterIndex]
			}
			run.Glyphs = append(run.Glyphs, textframe.Glyph{
				ID:       uint32(g.GlyphID),
				Cluster:  base + g.ClusterIndex,
				Runes:    g.RuneCount,
				XAdvance: g.XAdvance,
				YAdvance: g.YAdvance,
				XOffset:  g.XOffset,
				YOffset:  g.YOffset,
				Rune:     rr,
			})
		}
		if first {
			ln.Range = run.Range
			first = false
		} else {
			if run.Range.Start < ln.Range.Start {
				ln.Range.Start = run.Range.Start
			}
			if run.Range.End > ln.Range.End {
				ln.Range.End = run.Range.End
			}
		}
		x += run.Advance
		ln.Runs = append(ln.Runs, run)
	}
	ln.Width = x

	// layout-space baseline origin, then into shaper space
	var origin textframe.Point
	if vertical {
		origin = textframe.Point{X: bandLo + m.descent, Y: inlineStart}
	} else {
		origin = textframe.Point{X: inlineStart, Y: bandLo + m.ascent}
	}
	ln.Origin = textframe.Point{X: origin.X - clipB.X, Y: clipB.Y + clipB.H - origin.Y}
	return ln
}

// Typeset implements textframe.Shaper. A nil clip shapes the range as a
// single unconstrained line.
func (s *Shaper) Typeset(text *attr.Text, rng attr.Range, clip *textframe.Path, frame textframe.FrameAttributes) ([]textframe.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runes := text.Runes()
	rng = rng.Intersect(attr.Range{Start: 0, End: len(runes)})
	if clip == nil {
		ln, err := s.singleLine(text, rng, frame.VerticalForm)
		if err != nil {
			return nil, err
		}
		return []textframe.Line{ln}, nil
	}

	b := clip.Bounds()
	vertical := frame.VerticalForm
	rowSpace := b.H
	if vertical {
		rowSpace = b.W
	}

	cfg := shaping.WrapConfig{BreakPolicy: shaping.WhenNecessary}
	var lines []textframe.Line
	cursor := 0.0

	for _, para := range paragraphs(runes, rng) {
		outs, m, err := s.shapeParagraph(text, para, vertical)
		if err != nil {
			return nil, err
		}
		if len(outs) == 0 {
			continue
		}
		paraRunes := runes[para.Start:para.End]
		s.wrapper.Prepare(cfg, paraRunes, shaping.NewSliceIterator(outs))

		done := false
		for !done {
			if cursor+m.height() > rowSpace+textframe.Epsilon {
				return lines, nil // ran out of perpendicular space
			}
			var lo, hi float64
			if vertical {
				hi = b.X + b.W - cursor
				lo = hi - m.height()
			} else {
				lo = b.Y + cursor
				hi = lo + m.height()
			}
			ivals := clip.BandIntervals(vertical, lo, hi, frame.FillRule)
			for _, iv := range ivals {
				width := iv[1] - iv[0]
				if width < 1.0 {
					continue
				}
				wl, d := s.wrapper.WrapNextLine(int(width))
				done = d
				if len(wl.Line) > 0 {
					lines = append(lines, buildLine(wl.Line, paraRunes, para.Start, m, iv[0], lo, b, vertical))
				}
				if done {
					break
				}
			}
			cursor += m.height() + m.gap
		}
	}
	return lines, nil
}

// singleLine shapes rng as one unwrapped line at the shaper-space origin.
func (s *Shaper) singleLine(text *attr.Text, rng attr.Range, vertical bool) (textframe.Line, error) {
	outs, m, err := s.shapeParagraph(text, rng, vertical)
	if err != nil {
		return textframe.Line{}, err
	}
	runes := text.Runes()[rng.Start:rng.End]
	ln := buildLine(shaping.Line(outs), runes, rng.Start, m, 0.0, 0.0, textframe.Rect{}, vertical)
	ln.Range = rng
	return ln, nil
}

// Truncate implements textframe.Shaper by shaping the token unconstrained and
// splicing it with the engine's cluster-level trimming.
func (s *Shaper) Truncate(line textframe.Line, token *attr.Text, maxExtent float64, side textframe.TruncationType) (textframe.Line, error) {
	s.mu.Lock()
	tok, err := s.singleLine(token, attr.Range{Start: 0, End: token.Len()}, line.Vertical)
	s.mu.Unlock()
	if err != nil {
		return textframe.Line{}, err
	}
	return textframe.TruncateLine(line, tok, maxExtent, side), nil
}
