// Package sfnt implements the layout engine's Shaper directly on SFNT font
// tables, without HarfBuzz. Shaping is naive: one glyph per rune with cmap
// lookup, horizontal advances and pair kerning. It handles bidi reordering
// via the Unicode bidi algorithm and line breaking via UAX#14 opportunities,
// which makes it a dependency-light fallback for Latin-like scripts.
package sfnt

import (
	"errors"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"github.com/tdewolff/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/textframe/textframe"
	"github.com/textframe/textframe/attr"
)

// ErrNoFace is returned when neither the text attributes nor the shaper's
// fallback provide a usable font.
var ErrNoFace = errors.New("sfnt: no font available")

// DefaultSize is the font size used for spans that carry none.
const DefaultSize = 12.0

// LoadFontFile parses the first font of a TTF/OTF/WOFF file.
func LoadFontFile(path string) (*font.SFNT, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return font.ParseSFNT(b, 0)
}

// ParseFont parses SFNT font data.
func ParseFont(b []byte) (*font.SFNT, error) {
	return font.ParseSFNT(b, 0)
}

// Shaper shapes attributed text with naive per-rune glyph mapping. The
// fallback font serves spans whose attributes carry no *font.SFNT face.
type Shaper struct {
	mu       sync.Mutex
	fallback *font.SFNT
}

// New returns a Shaper with the given fallback font, which may be nil if
// every span carries its own face.
func New(fallback *font.SFNT) *Shaper {
	return &Shaper{fallback: fallback}
}

func (s *Shaper) faceFor(a attr.Attributes) *font.SFNT {
	if f, ok := a.Face.(*font.SFNT); ok && f != nil {
		return f
	}
	return s.fallback
}

// scale converts font units to layout units at the given size.
func scale(sfnt *font.SFNT, size float64) float64 {
	return size / float64(sfnt.Head.UnitsPerEm)
}

func fixedFromFloat(f float64) fixed.Int26_6 {
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

// cluster is one shaped rune in logical order.
type cluster struct {
	offset int // absolute rune offset
	r      rune
	glyph  uint16
	width  float64 // inline advance in layout units
	face   *font.SFNT
	size   float64
	span   int // index into text.Spans()

	canBreakAfter  bool
	mustBreakAfter bool
}

// bidiRun is a directional run in visual order with absolute rune offsets.
type bidiRun struct {
	rng attr.Range
	rtl bool
}

// bidiRuns resolves the paragraph's visual-order directional runs. Errors
// degrade to a single run in the base direction.
func bidiRuns(s string, base int, baseRTL bool) []bidiRun {
	n := utf8.RuneCountInString(s)
	whole := []bidiRun{{attr.Range{Start: base, End: base + n}, baseRTL}}
	var p bidi.Paragraph
	if _, err := p.SetString(s); err != nil {
		return whole
	}
	ord, err := p.Order()
	if err != nil || ord.NumRuns() == 0 {
		return whole
	}
	runs := make([]bidiRun, 0, ord.NumRuns())
	for i := 0; i < ord.NumRuns(); i++ {
		r := ord.Run(i)
		// Pos gives the byte offset of the run's first rune and that offset
		// plus the run's rune count minus one
		start, end := r.Pos()
		runeStart := utf8.RuneCountInString(s[:start])
		runs = append(runs, bidiRun{
			rng: attr.Range{
				Start: base + runeStart,
				End:   base + runeStart + (end - start + 1),
			},
			rtl: r.Direction() == bidi.RightToLeft,
		})
	}
	return runs
}

// markBreaks annotates UAX#14 break opportunities on the paragraph clusters.
func markBreaks(s string, clusters []cluster) {
	pos := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var seg string
		var bound int
		seg, rest, bound, state = uniseg.StepString(rest, state)
		pos += utf8.RuneCountInString(seg)
		if pos-1 < 0 || pos-1 >= len(clusters) {
			continue
		}
		switch bound & uniseg.MaskLine {
		case uniseg.LineCanBreak:
			clusters[pos-1].canBreakAfter = true
		case uniseg.LineMustBreak:
			// uniseg also reports a mandatory break at end of input; the
			// paragraph ends there anyway
			if len(rest) > 0 {
				clusters[pos-1].mustBreakAfter = true
			}
		}
	}
}

// shapeParagraph maps every rune of the paragraph to a glyph cluster with
// advances and kerning, in logical order.
func (s *Shaper) shapeParagraph(text *attr.Text, para attr.Range, vertical bool) ([]cluster, error) {
	runes := text.Runes()
	clusters := make([]cluster, 0, para.Len())
	spans := text.Spans()
	for si, sp := range spans {
		r := sp.Range.Intersect(para)
		if r.Len() == 0 {
			continue
		}
		face := s.faceFor(sp.Attrs)
		if face == nil {
			return nil, ErrNoFace
		}
		size := sp.Attrs.Size
		if size <= 0.0 {
			size = DefaultSize
		}
		f := scale(face, size)
		var prev uint16
		for i := r.Start; i < r.End; i++ {
			if att := sp.Attrs.Attachment; att != nil {
				w := att.Width + att.Insets[1] + att.Insets[3]
				if vertical {
					w = att.Height + att.Insets[0] + att.Insets[2]
				}
				clusters = append(clusters, cluster{
					offset: i, r: runes[i], width: w,
					face: face, size: size, span: si,
				})
				continue
			}
			id := face.GlyphIndex(runes[i])
			var w float64
			if vertical {
				w = f * float64(face.GlyphVerticalAdvance(id))
			} else {
				w = f * float64(face.GlyphAdvance(id))
				if i > r.Start {
					k := f * float64(face.Kerning(prev, id))
					if n := len(clusters); n > 0 {
						clusters[n-1].width += k
					}
				}
			}
			clusters = append(clusters, cluster{
				offset: i, r: runes[i], glyph: id, width: w,
				face: face, size: size, span: si,
			})
			prev = id
		}
	}
	markBreaks(string(runes[para.Start:para.End]), clusters)
	return clusters, nil
}

// paragraphMetrics returns the maximum scaled ascent, descent and line gap
// over the clusters.
func paragraphMetrics(clusters []cluster) (asc, desc, gap float64) {
	for i := range clusters {
		c := &clusters[i]
		f := scale(c.face, c.size)
		a := f * float64(c.face.Hhea.Ascender)
		d := f * float64(-c.face.Hhea.Descender)
		g := f * float64(c.face.Hhea.LineGap)
		if a > asc {
			asc = a
		}
		if d > desc {
			desc = d
		}
		if g > gap {
			gap = g
		}
	}
	return asc, desc, gap
}

// fitLine returns the end offset of the next line starting at from, greedily
// filling width and wrapping at the last break opportunity.
func fitLine(clusters []cluster, paraStart, from int, width float64) int {
	w := 0.0
	lastBreak := -1
	pos := from
	for pos-paraStart < len(clusters) {
		c := &clusters[pos-paraStart]
		w += c.width
		if w > width+textframe.Epsilon && pos > from {
			if lastBreak > from {
				return lastBreak
			}
			return pos // overflow break inside a word
		}
		pos++
		if c.mustBreakAfter {
			return pos
		}
		if c.canBreakAfter {
			lastBreak = pos
		}
	}
	return pos
}

// buildLine assembles the engine line for the logical range [a,b) of the
// paragraph, reordering into visual runs and splitting at attribute span
// boundaries. The origin is emitted in shaper space.
func buildLine(clusters []cluster, runs []bidiRun, paraStart, a, b int, asc, desc float64, inlineStart, bandLo float64, clipB textframe.Rect, vertical bool) textframe.Line {
	ln := textframe.Line{
		Ascent:  asc,
		Descent: desc,
		Range:   attr.Range{Start: a, End: b},
	}
	x := 0.0
	for _, vr := range runs {
		rr := vr.rng.Intersect(attr.Range{Start: a, End: b})
		if rr.Len() == 0 {
			continue
		}
		// split at span boundaries so Run.Face stays uniform
		i := rr.Start
		for i < rr.End {
			j := i
			span := clusters[i-paraStart].span
			for j < rr.End && clusters[j-paraStart].span == span {
				j++
			}
			run := textframe.Run{
				Range: attr.Range{Start: i, End: j},
				RTL:   vr.rtl,
				X:     x,
				Face:  clusters[i-paraStart].face,
			}
			f := scale(clusters[i-paraStart].face, clusters[i-paraStart].size)
			run.Ascent = f * float64(clusters[i-paraStart].face.Hhea.Ascender)
			run.Descent = f * float64(-clusters[i-paraStart].face.Hhea.Descender)
			for k := i; k < j; k++ {
				idx := k
				if vr.rtl {
					idx = j - 1 - (k - i) // visual order within an RTL run
				}
				c := &clusters[idx-paraStart]
				g := textframe.Glyph{
					ID:      uint32(c.glyph),
					Cluster: c.offset,
					Runes:   1,
					Rune:    c.r,
				}
				if vertical {
					g.YAdvance = -fixedFromFloat(c.width)
				} else {
					g.XAdvance = fixedFromFloat(c.width)
				}
				run.Glyphs = append(run.Glyphs, g)
				run.Advance += c.width
			}
			x += run.Advance
			ln.Runs = append(ln.Runs, run)
			i = j
		}
	}
	ln.Width = x

	var origin textframe.Point
	if vertical {
		origin = textframe.Point{X: bandLo + desc, Y: inlineStart}
	} else {
		origin = textframe.Point{X: inlineStart, Y: bandLo + asc}
	}
	ln.Origin = textframe.Point{X: origin.X - clipB.X, Y: clipB.Y + clipB.H - origin.Y}
	return ln
}

// Typeset implements textframe.Shaper. A nil clip shapes the range as one
// unconstrained line.
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

	var lines []textframe.Line
	cursor := 0.0
	for _, para := range paragraphs(runes, rng) {
		clusters, err := s.shapeParagraph(text, para, vertical)
		if err != nil {
			return nil, err
		}
		if len(clusters) == 0 {
			continue
		}
		asc, desc, gap := paragraphMetrics(clusters)
		runs := bidiRuns(string(runes[para.Start:para.End]), para.Start, false)
		lineH := asc + desc

		from := para.Start
		for from < para.End {
			if cursor+lineH > rowSpace+textframe.Epsilon {
				return lines, nil // ran out of perpendicular space
			}
			var lo, hi float64
			if vertical {
				hi = b.X + b.W - cursor
				lo = hi - lineH
			} else {
				lo = b.Y + cursor
				hi = lo + lineH
			}
			ivals := clip.BandIntervals(vertical, lo, hi, frame.FillRule)
			for _, iv := range ivals {
				width := iv[1] - iv[0]
				if width < 1.0 {
					continue
				}
				end := fitLine(clusters, para.Start, from, width)
				if end <= from {
					continue
				}
				lines = append(lines, buildLine(clusters, runs, para.Start, from, end, asc, desc, iv[0], lo, b, vertical))
				from = end
				if from >= para.End {
					break
				}
			}
			cursor += lineH + gap
		}
	}
	return lines, nil
}

// singleLine shapes rng as one unwrapped line at the shaper-space origin.
func (s *Shaper) singleLine(text *attr.Text, rng attr.Range, vertical bool) (textframe.Line, error) {
	clusters, err := s.shapeParagraph(text, rng, vertical)
	if err != nil {
		return textframe.Line{}, err
	}
	asc, desc, _ := paragraphMetrics(clusters)
	runs := bidiRuns(string(text.Runes()[rng.Start:rng.End]), rng.Start, false)
	ln := buildLine(clusters, runs, rng.Start, rng.Start, rng.End, asc, desc, 0.0, 0.0, textframe.Rect{}, vertical)
	return ln, nil
}

// Truncate implements textframe.Shaper via the engine's cluster trimming.
func (s *Shaper) Truncate(line textframe.Line, token *attr.Text, maxExtent float64, side textframe.TruncationType) (textframe.Line, error) {
	s.mu.Lock()
	tok, err := s.singleLine(token, attr.Range{Start: 0, End: token.Len()}, line.Vertical)
	s.mu.Unlock()
	if err != nil {
		return textframe.Line{}, err
	}
	return textframe.TruncateLine(line, tok, maxExtent, side), nil
}
