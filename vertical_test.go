package textframe

import (
	"testing"

	"github.com/tdewolff/test"

	"github.com/textframe/textframe/attr"
)

func TestGlyphOrientation(t *testing.T) {
	tests := []struct {
		r rune
		o GlyphOrientation
	}{
		{'a', OrientationHorizontal},
		{'漢', OrientationHorizontal},
		{'（', OrientationRotate},
		{'」', OrientationRotate},
		{'ー', OrientationRotate},
		{'…', OrientationRotate},
		{'，', OrientationRotateMove},
		{'。', OrientationRotateMove},
		{'、', OrientationRotateMove},
	}
	for _, tt := range tests {
		test.T(t, glyphOrientation(Glyph{Rune: tt.r, Runes: 1}), tt.o, "for", string(tt.r))
	}

	// multi-codepoint emoji clusters rotate, including digit-led keycaps
	test.T(t, glyphOrientation(Glyph{Rune: '☝', Runes: 2}), OrientationRotate)
	test.T(t, glyphOrientation(Glyph{Rune: '1', Runes: 3}), OrientationRotate)

	// plain digits and combining-mark clusters stay horizontal
	test.T(t, glyphOrientation(Glyph{Rune: '1', Runes: 1}), OrientationHorizontal)
	test.T(t, glyphOrientation(Glyph{Rune: 'e', Runes: 2}), OrientationHorizontal)
}

func TestClassifyVerticalForm(t *testing.T) {
	runes := []rune{'漢', '（', '字', '，'}
	rn := Run{Range: attr.Range{Start: 0, End: 4}}
	for i, r := range runes {
		rn.Glyphs = append(rn.Glyphs, Glyph{Cluster: i, Runes: 1, Rune: r, YAdvance: toI26_6(-10.0)})
	}
	ln := Line{Runs: []Run{rn}, Range: attr.Range{Start: 0, End: 4}, Vertical: true}

	classifyVerticalForm(&ln)
	rot := ln.Runs[0].Rotations
	test.T(t, len(rot), 4)
	test.T(t, rot[0], GlyphRotationRange{0, 1, OrientationHorizontal})
	test.T(t, rot[1], GlyphRotationRange{1, 2, OrientationRotate})
	test.T(t, rot[2], GlyphRotationRange{2, 3, OrientationHorizontal})
	test.T(t, rot[3], GlyphRotationRange{3, 4, OrientationRotateMove})
}

func TestClassifyVerticalFormGroups(t *testing.T) {
	runes := []rune{'（', '）', '漢', '字'}
	rn := Run{Range: attr.Range{Start: 0, End: 4}}
	for i, r := range runes {
		rn.Glyphs = append(rn.Glyphs, Glyph{Cluster: i, Runes: 1, Rune: r, YAdvance: toI26_6(-10.0)})
	}
	ln := Line{Runs: []Run{rn}, Range: attr.Range{Start: 0, End: 4}, Vertical: true}

	classifyVerticalForm(&ln)
	rot := ln.Runs[0].Rotations
	test.T(t, len(rot), 2) // contiguous glyphs sharing an orientation group
	test.T(t, rot[0], GlyphRotationRange{0, 2, OrientationRotate})
	test.T(t, rot[1], GlyphRotationRange{2, 4, OrientationHorizontal})
}

// verticalLayout builds a two-column layout by hand: columns progress right to
// left, each column holds two runes of 10 units, ascent 8 and descent 2.
func verticalLayout() *Layout {
	txt := plainText("abcd")
	mk := func(r attr.Range, x float64) Line {
		ln := Line{
			Origin:   Point{x, 0.0},
			Ascent:   stubAscent,
			Descent:  stubDescent,
			Width:    20.0,
			Range:    r,
			Vertical: true,
		}
		rn := Run{Range: r, Ascent: stubAscent, Descent: stubDescent, Advance: 20.0}
		for i := r.Start; i < r.End; i++ {
			rn.Glyphs = append(rn.Glyphs, Glyph{
				Cluster:  i,
				Runes:    1,
				YAdvance: toI26_6(-stubAdvance),
				Rune:     txt.Runes()[i],
			})
		}
		ln.Runs = []Run{rn}
		return ln
	}
	l := &Layout{
		Text:         txt,
		Range:        attr.Range{Start: 0, End: 4},
		VisibleRange: attr.Range{Start: 0, End: 4},
		vertical:     true,
		inner:        Rect{80.0, 0.0, 20.0, 20.0},
	}
	l.Lines = []Line{mk(attr.Range{Start: 0, End: 2}, 92.0), mk(attr.Range{Start: 2, End: 4}, 82.0)}
	l.Lines[1].Index = 1
	l.Lines[1].Row = 1
	l.buildRowIndex()
	l.RowCount = len(l.rowEdges)
	for i := range l.Lines {
		l.TextBoundingRect = l.TextBoundingRect.Add(l.Lines[i].Bounds())
	}
	return l
}

func TestVerticalRowIndex(t *testing.T) {
	l := verticalLayout()

	test.T(t, l.RowCount, 2)
	test.T(t, l.RowIndexAt(95.0), 0) // rightmost column is row 0
	test.T(t, l.RowIndexAt(85.0), 1)
	test.T(t, l.RowIndexAt(70.0), -1)
	test.T(t, l.ClosestRowIndexAt(70.0), 1)
	test.T(t, l.ClosestRowIndexAt(110.0), 0)
}

func TestVerticalCaretRect(t *testing.T) {
	l := verticalLayout()

	r := l.CaretRectForPosition(TextPosition{1, Forward})
	test.That(t, r.Equals(Rect{90.0, 10.0, 10.0, 0.0}), "caret rect is", r)
	test.Float(t, r.H, 0.0) // zero thickness along the column
}

func TestVerticalClosestPosition(t *testing.T) {
	l := verticalLayout()

	pos, ok := l.ClosestPositionToPoint(Point{93.0, 9.0})
	test.That(t, ok, "must resolve")
	test.T(t, pos.Offset, 1)

	// second column
	pos, _ = l.ClosestPositionToPoint(Point{85.0, 12.0})
	test.T(t, pos.Offset, 3)
}

func TestVerticalSelectionRects(t *testing.T) {
	l := verticalLayout()

	rects := l.SelectionRects(NewTextRange(TextPosition{1, Forward}, TextPosition{3, Forward}))
	test.T(t, len(rects), 4)
	test.That(t, rects[2].Rect.Equals(Rect{90.0, 10.0, 10.0, 10.0}), "first column fill is", rects[2].Rect)
	test.That(t, rects[3].Rect.Equals(Rect{80.0, 0.0, 10.0, 10.0}), "second column fill is", rects[3].Rect)
}

func TestVerticalExtendAcrossColumns(t *testing.T) {
	l := verticalLayout()

	// Left moves one column further in reading order
	r := l.TextRangeByExtendingInDirection(TextPosition{1, Forward}, DirectionLeft, 1)
	test.T(t, r.Start.Offset, 1)
	test.T(t, r.End.Offset, 3)

	// Down walks runes within the column
	r = l.TextRangeByExtendingInDirection(TextPosition{0, Forward}, DirectionDown, 2)
	test.T(t, r.End.Offset, 2)

	// Right from the first column clamps
	r = l.TextRangeByExtendingInDirection(TextPosition{1, Forward}, DirectionRight, 1)
	test.That(t, r.IsCaret(), "clamped move must not extend")
}
