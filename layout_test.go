package textframe

import (
	"errors"
	"strings"
	"testing"

	"github.com/tdewolff/test"

	"github.com/textframe/textframe/attr"
)

// stubShaper shapes with fixed metrics so geometry is exactly predictable:
// every rune advances 10 units (line breaks are zero-width), ascent 8,
// descent 2, no line gap. Wrapping is greedy per band interval at rune
// granularity. Horizontal form only.
type stubShaper struct{}

const (
	stubAdvance = 10.0
	stubAscent  = 8.0
	stubDescent = 2.0
)

func stubLine(text *attr.Text, r attr.Range, x, y float64) Line {
	runes := text.Runes()
	ln := Line{
		Origin:  Point{x, y},
		Ascent:  stubAscent,
		Descent: stubDescent,
		Range:   r,
	}
	pos := 0.0
	for _, sp := range text.Spans() {
		rr := sp.Range.Intersect(r)
		if rr.Len() == 0 {
			continue
		}
		rn := Run{
			Range:   rr,
			RTL:     sp.Attrs.Direction == attr.DirectionRTL,
			X:       pos,
			Face:    sp.Attrs.Face,
			Ascent:  stubAscent,
			Descent: stubDescent,
		}
		for i := rr.Start; i < rr.End; i++ {
			j := i
			if rn.RTL {
				// glyphs are stored in visual order
				j = rr.End - 1 - (i - rr.Start)
			}
			adv := stubAdvance
			if runes[j] == '\n' {
				adv = 0.0
			}
			rn.Glyphs = append(rn.Glyphs, Glyph{
				ID:       uint32(runes[j]),
				Cluster:  j,
				Runes:    1,
				XAdvance: toI26_6(adv),
				Rune:     runes[j],
			})
			rn.Advance += adv
		}
		pos += rn.Advance
		ln.Width += rn.Advance
		ln.Runs = append(ln.Runs, rn)
	}
	return ln
}

func (s stubShaper) Typeset(text *attr.Text, rng attr.Range, clip *Path, frame FrameAttributes) ([]Line, error) {
	if clip == nil {
		return []Line{stubLine(text, rng, 0.0, 0.0)}, nil
	}
	runes := text.Runes()
	b := clip.Bounds()
	height := stubAscent + stubDescent

	var lines []Line
	cursor := 0.0
	i := rng.Start
	for i < rng.End && cursor+height <= b.H+Epsilon {
		lo, hi := b.Y+cursor, b.Y+cursor+height
		for _, iv := range clip.BandIntervals(false, lo, hi, frame.FillRule) {
			if i >= rng.End {
				break
			}
			end := i
			w := 0.0
			for end < rng.End {
				adv := stubAdvance
				if runes[end] == '\n' {
					adv = 0.0
				}
				if w+adv > iv[1]-iv[0]+Epsilon {
					break
				}
				w += adv
				end++
				if runes[end-1] == '\n' {
					break
				}
			}
			if end == i {
				continue
			}
			lines = append(lines, stubLine(text, attr.Range{Start: i, End: end},
				iv[0]-b.X, (b.Y+b.H)-(lo+stubAscent)))
			i = end
		}
		cursor += height
	}
	return lines, nil
}

func (s stubShaper) Truncate(line Line, token *attr.Text, maxExtent float64, side TruncationType) (Line, error) {
	tok := stubLine(token, attr.Range{Start: 0, End: token.Len()}, 0.0, 0.0)
	return TruncateLine(line, tok, maxExtent, side), nil
}

func plainText(s string) *attr.Text {
	return attr.New(s, attr.Attributes{Size: 10.0})
}

// failShaper always errors, for construction failure paths.
type failShaper struct{}

func (failShaper) Typeset(text *attr.Text, rng attr.Range, clip *Path, frame FrameAttributes) ([]Line, error) {
	return nil, errors.New("shaping failed")
}

func (failShaper) Truncate(line Line, token *attr.Text, maxExtent float64, side TruncationType) (Line, error) {
	return Line{}, errors.New("shaping failed")
}

func mustLayout(t *testing.T, c *Container, txt *attr.Text) *Layout {
	t.Helper()
	l, err := NewLayout(c, txt, attr.Range{Start: 0, End: txt.Len()}, stubShaper{})
	test.Error(t, err)
	return l
}

func TestLayoutEmptyText(t *testing.T) {
	l := mustLayout(t, NewContainer(100.0, 100.0), plainText(""))
	test.T(t, l.LineCount(), 0)
	test.T(t, l.RowCount, 0)
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 0})
	test.That(t, !l.NeedsText, "empty text draws nothing")
}

func TestLayoutFailureLeavesContainerMutable(t *testing.T) {
	c := NewContainer(100.0, 100.0)
	_, err := NewLayout(c, plainText("Hi"), attr.Range{Start: 0, End: 2}, failShaper{})
	test.That(t, err != nil, "typeset failure must surface")

	// a failed construction must not freeze the container
	c.SetSize(50.0, 50.0)
	w, _ := c.Size()
	test.Float(t, w, 50.0)
}

func TestNewLayoutValidation(t *testing.T) {
	txt := plainText("abc")
	c := NewContainer(100.0, 100.0)

	_, err := NewLayout(nil, txt, attr.Range{Start: 0, End: 3}, stubShaper{})
	test.T(t, err, ErrInvalidRange)
	_, err = NewLayout(c, nil, attr.Range{Start: 0, End: 3}, stubShaper{})
	test.T(t, err, ErrInvalidRange)
	_, err = NewLayout(c, txt, attr.Range{Start: 0, End: 4}, stubShaper{})
	test.T(t, err, ErrInvalidRange)
	_, err = NewLayout(c, txt, attr.Range{Start: -1, End: 2}, stubShaper{})
	test.T(t, err, ErrInvalidRange)
	_, err = NewLayout(c, txt, attr.Range{Start: 2, End: 1}, stubShaper{})
	test.T(t, err, ErrInvalidRange)

	_, err = NewLayout(NewContainer(0.0, 0.0), txt, attr.Range{Start: 0, End: 3}, stubShaper{})
	test.T(t, err, ErrEmptyContainer)
}

func TestLayoutSingleLine(t *testing.T) {
	l := mustLayout(t, NewContainer(100.0, 100.0), plainText("Hello"))

	test.T(t, l.LineCount(), 1)
	test.T(t, l.RowCount, 1)
	test.That(t, l.TruncatedLine == nil, "must not be truncated")
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 5})
	test.That(t, l.NeedsText, "must need text")

	ln := l.LineAt(0)
	test.Float(t, ln.Origin.X, 0.0)
	test.Float(t, ln.Origin.Y, 8.0) // baseline sits at the ascent
	test.Float(t, ln.Width, 50.0)
	test.That(t, l.TextBoundingRect.Equals(Rect{0.0, 0.0, 50.0, 10.0}), "bounding rect is", l.TextBoundingRect)
	test.T(t, l.TextBoundingSize, Point{50.0, 10.0})
}

func TestLayoutWraps(t *testing.T) {
	l := mustLayout(t, NewContainer(100.0, 100.0), plainText(strings.Repeat("a", 30)))

	test.T(t, l.LineCount(), 3)
	test.T(t, l.RowCount, 3)
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 30})
	for i := 0; i < 3; i++ {
		ln := l.LineAt(i)
		test.T(t, ln.Range, attr.Range{Start: 10 * i, End: 10 * (i + 1)})
		test.T(t, ln.Row, i)
		test.Float(t, ln.Origin.Y, 8.0+10.0*float64(i))
	}
	test.That(t, l.TextBoundingRect.Equals(Rect{0.0, 0.0, 100.0, 30.0}), "bounding rect is", l.TextBoundingRect)

	// the bounding rect is the union of the line bounds
	var u Rect
	for i := 0; i < l.LineCount(); i++ {
		u = u.Add(l.LineAt(i).Bounds())
	}
	test.That(t, l.TextBoundingRect.Equals(u), "bounding rect must equal the union of line bounds")
}

func TestLayoutInsets(t *testing.T) {
	c := NewContainer(100.0, 40.0)
	c.SetInsets(Insets{Top: 5.0, Left: 10.0, Bottom: 5.0, Right: 10.0})
	l := mustLayout(t, c, plainText(strings.Repeat("x", 16)))

	test.T(t, l.LineCount(), 2)
	test.Float(t, l.LineAt(0).Origin.X, 10.0)
	test.Float(t, l.LineAt(0).Origin.Y, 13.0)
	test.Float(t, l.LineAt(1).Origin.Y, 23.0)
	test.T(t, l.LineAt(0).Range, attr.Range{Start: 0, End: 8})
}

func TestLayoutParagraphBreak(t *testing.T) {
	l := mustLayout(t, NewContainer(100.0, 100.0), plainText("ab\ncd"))

	test.T(t, l.LineCount(), 2)
	test.T(t, l.LineAt(0).Range, attr.Range{Start: 0, End: 3}) // break rune belongs to the line
	test.T(t, l.LineAt(1).Range, attr.Range{Start: 3, End: 5})
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 5})
}

func TestLayoutMaximumRows(t *testing.T) {
	c := NewContainer(100.0, 100.0)
	c.SetMaximumRows(1)
	c.SetTruncationType(TruncationEnd)
	l := mustLayout(t, c, plainText(strings.Repeat("a", 30)))

	test.T(t, l.LineCount(), 1)
	test.T(t, l.RowCount, 1)
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 10})
	test.That(t, l.TruncatedLine != nil, "must be truncated")
	test.T(t, l.LineAt(0), l.TruncatedLine)

	// nine runes survive next to the synthesized token
	tl := l.TruncatedLine
	test.Float(t, tl.Width, 100.0)
	last := tl.Runs[len(tl.Runs)-1]
	test.That(t, last.Token, "last run must be the token")
}

func TestLayoutMaximumRowsNoToken(t *testing.T) {
	c := NewContainer(100.0, 100.0)
	c.SetMaximumRows(2)
	l := mustLayout(t, c, plainText(strings.Repeat("a", 30)))

	test.T(t, l.LineCount(), 2)
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 20})
	test.That(t, l.TruncatedLine == nil, "TruncationNone must not synthesize a token")
}

func TestLayoutRanOutOfSpace(t *testing.T) {
	c := NewContainer(100.0, 25.0)
	c.SetTruncationType(TruncationEnd)
	l := mustLayout(t, c, plainText(strings.Repeat("a", 30)))

	test.T(t, l.LineCount(), 2)
	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 20})
	test.That(t, l.TruncatedLine != nil, "must be truncated when the container runs out of space")
	test.T(t, l.TruncatedLine.Index, 1)
}

func TestLayoutCustomToken(t *testing.T) {
	c := NewContainer(100.0, 100.0)
	c.SetMaximumRows(1)
	c.SetTruncationType(TruncationEnd)
	c.SetTruncationToken(plainText("..")) // two runes, width 20
	l := mustLayout(t, c, plainText(strings.Repeat("a", 30)))

	test.That(t, l.TruncatedLine != nil, "must be truncated")
	test.Float(t, l.TruncatedLine.Width, 100.0) // 8 runes + 2-rune token
}

func TestLayoutExclusionSplitsRow(t *testing.T) {
	c := NewContainer(100.0, 10.0)
	c.SetExclusionPaths([]*Path{Rectangle(40.0, 0.0, 20.0, 10.0)})
	l := mustLayout(t, c, plainText("abcdefgh"))

	test.T(t, l.LineCount(), 2)
	test.T(t, l.RowCount, 1)
	test.T(t, l.LineAt(0).Range, attr.Range{Start: 0, End: 4})
	test.T(t, l.LineAt(1).Range, attr.Range{Start: 4, End: 8})
	test.Float(t, l.LineAt(0).Origin.X, 0.0)
	test.Float(t, l.LineAt(1).Origin.X, 60.0)
	test.T(t, l.LineAt(1).Row, 0)

	first, last := l.linesInRow(0)
	test.T(t, first, 0)
	test.T(t, last, 1)
}

func TestLayoutPathContainer(t *testing.T) {
	c := NewContainerWithPath(Rectangle(10.0, 20.0, 50.0, 30.0))
	l := mustLayout(t, c, plainText("abcd"))

	test.T(t, l.LineCount(), 1)
	test.Float(t, l.LineAt(0).Origin.X, 10.0)
	test.Float(t, l.LineAt(0).Origin.Y, 28.0)
}

func TestLayoutIdempotent(t *testing.T) {
	txt := plainText(strings.Repeat("a", 25))
	c := NewContainer(100.0, 100.0)
	a := mustLayout(t, c, txt)
	b := mustLayout(t, c.Clone(), txt)

	test.T(t, a.LineCount(), b.LineCount())
	test.T(t, a.RowCount, b.RowCount)
	test.That(t, a.TextBoundingRect.Equals(b.TextBoundingRect), "layouts must agree")
	for i := 0; i < a.LineCount(); i++ {
		test.T(t, a.LineAt(i).Range, b.LineAt(i).Range)
		test.That(t, a.LineAt(i).Origin.Equals(b.LineAt(i).Origin), "line origin", i)
	}
}

func TestLayoutLinePositionModifier(t *testing.T) {
	c := NewContainer(100.0, 100.0)
	c.SetLinePositionModifier(func(lines []Line) {
		for i := range lines {
			lines[i].Origin.Y += 2.0
		}
	})
	l := mustLayout(t, c, plainText("Hello"))

	test.Float(t, l.LineAt(0).Origin.Y, 10.0)
	test.That(t, l.TextBoundingRect.Equals(Rect{0.0, 2.0, 50.0, 10.0}), "bounding rect must follow the modifier")
}

func TestLayoutAttachments(t *testing.T) {
	var b attr.Builder
	b.Add("a", attr.Attributes{Size: 10.0})
	b.Add("￼", attr.Attributes{Size: 10.0, Attachment: &attr.Attachment{Content: "img", Width: 10.0, Height: 10.0}})
	b.Add("b", attr.Attributes{Size: 10.0})
	l := mustLayout(t, NewContainer(100.0, 100.0), b.Text())

	test.That(t, l.NeedsAttachment, "must need attachment")
	test.T(t, len(l.Attachments), 1)
	at := l.Attachments[0]
	test.T(t, at.Content.(string), "img")
	test.T(t, at.Range, attr.Range{Start: 1, End: 2})
	test.That(t, at.Rect.Equals(Rect{10.0, 0.0, 10.0, 10.0}), "attachment rect is", at.Rect)
}

func TestLayoutAttributeFlags(t *testing.T) {
	var b attr.Builder
	b.Add("under", attr.Attributes{Size: 10.0, Underline: true})
	b.Add("strike", attr.Attributes{Size: 10.0, Strikethrough: true})
	b.Add("hi", attr.Attributes{Size: 10.0, Highlight: true})
	l := mustLayout(t, NewContainer(200.0, 100.0), b.Text())

	test.That(t, l.NeedsUnderline, "must need underline")
	test.That(t, l.NeedsStrikethrough, "must need strikethrough")
	test.That(t, l.ContainsHighlight, "must contain highlight")
	test.That(t, !l.NeedsShadow, "must not need shadow")
	test.That(t, !l.NeedsAttachment, "must not need attachment")
}

func TestLayoutFlagsRespectVisibleRange(t *testing.T) {
	var b attr.Builder
	b.Add(strings.Repeat("a", 10), attr.Attributes{Size: 10.0})
	b.Add(strings.Repeat("u", 10), attr.Attributes{Size: 10.0, Underline: true})
	c := NewContainer(100.0, 100.0)
	c.SetMaximumRows(1)
	l := mustLayout(t, c, b.Text())

	test.T(t, l.VisibleRange, attr.Range{Start: 0, End: 10})
	test.That(t, !l.NeedsUnderline, "clipped spans must not set flags")
}
