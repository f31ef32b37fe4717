package textframe

import (
	"testing"

	"github.com/tdewolff/test"

	"github.com/textframe/textframe/attr"
)

func TestLineBounds(t *testing.T) {
	ln := stubLine(plainText("abc"), attr.Range{Start: 0, End: 3}, 0.0, 0.0)
	ln.Origin = Point{5.0, 20.0}
	test.That(t, ln.Bounds().Equals(Rect{5.0, 12.0, 30.0, 10.0}), "bounds are", ln.Bounds())

	ln.Vertical = true
	test.That(t, ln.Bounds().Equals(Rect{3.0, 20.0, 10.0, 30.0}), "vertical bounds are", ln.Bounds())
}

func TestCaretInline(t *testing.T) {
	ln := stubLine(plainText("abc"), attr.Range{Start: 0, End: 3}, 0.0, 0.0)

	for i := 0; i <= 3; i++ {
		x, ok := ln.caretInline(i, false)
		test.That(t, ok, "caret must exist at", i)
		test.Float(t, x, 10.0*float64(i))
	}
	_, ok := ln.caretInline(7, false)
	test.That(t, !ok, "caret outside the line must not exist")
}

func TestCaretInlineBidiBoundary(t *testing.T) {
	// an LTR run followed by an RTL run; offset 2 is shared between them
	var b attr.Builder
	b.Add("ab", attr.Attributes{Size: 10.0})
	b.Add("cd", attr.Attributes{Size: 10.0, Direction: attr.DirectionRTL})
	ln := stubLine(b.Text(), attr.Range{Start: 0, End: 4}, 0.0, 0.0)

	// trailing picks the end of the earlier content, leading the start of the
	// later run; here both sit at x=20 and x=40 respectively
	x, ok := ln.caretInline(2, true)
	test.That(t, ok, "caret must exist")
	test.Float(t, x, 20.0)
	x, _ = ln.caretInline(2, false)
	test.Float(t, x, 40.0)
}

func TestIndexForInline(t *testing.T) {
	ln := stubLine(plainText("abc"), attr.Range{Start: 0, End: 3}, 0.0, 0.0)

	idx, rtl := ln.indexForInline(14.0)
	test.T(t, idx, 1)
	test.That(t, !rtl, "LTR run")
	idx, _ = ln.indexForInline(-5.0)
	test.T(t, idx, 0)
	idx, _ = ln.indexForInline(500.0)
	test.T(t, idx, 3)
}

func TestRtlAt(t *testing.T) {
	var b attr.Builder
	b.Add("ab", attr.Attributes{Size: 10.0})
	b.Add("cd", attr.Attributes{Size: 10.0, Direction: attr.DirectionRTL})
	ln := stubLine(b.Text(), attr.Range{Start: 0, End: 4}, 0.0, 0.0)

	test.That(t, !ln.rtlAt(0), "offset 0 is LTR")
	test.That(t, ln.rtlAt(2), "offset 2 is RTL")
	test.That(t, ln.rtlAt(9), "past the line end falls back to the last run")
}

func TestTruncateLineEnd(t *testing.T) {
	ln := stubLine(plainText("abcdefghij"), attr.Range{Start: 0, End: 10}, 0.0, 0.0)
	tok := stubLine(plainText("…"), attr.Range{Start: 0, End: 1}, 0.0, 0.0)

	out := TruncateLine(ln, tok, 50.0, TruncationEnd)
	test.Float(t, out.Width, 50.0) // four runes plus the token
	test.T(t, len(out.Runs), 2)
	test.T(t, out.Runs[0].Range, attr.Range{Start: 0, End: 4})
	test.That(t, !out.Runs[0].Token, "kept content is not a token run")
	test.That(t, out.Runs[1].Token, "token run must be flagged")
	test.Float(t, out.Runs[1].X, 40.0)
}

func TestTruncateLineStart(t *testing.T) {
	ln := stubLine(plainText("abcdefghij"), attr.Range{Start: 0, End: 10}, 0.0, 0.0)
	tok := stubLine(plainText("…"), attr.Range{Start: 0, End: 1}, 0.0, 0.0)

	out := TruncateLine(ln, tok, 50.0, TruncationStart)
	test.Float(t, out.Width, 50.0)
	test.T(t, len(out.Runs), 2)
	test.That(t, out.Runs[0].Token, "token leads the line")
	test.T(t, out.Runs[1].Range, attr.Range{Start: 6, End: 10})
	test.Float(t, out.Runs[1].X, 10.0)
}

func TestTruncateLineMiddle(t *testing.T) {
	ln := stubLine(plainText("abcdefghij"), attr.Range{Start: 0, End: 10}, 0.0, 0.0)
	tok := stubLine(plainText("…"), attr.Range{Start: 0, End: 1}, 0.0, 0.0)

	out := TruncateLine(ln, tok, 50.0, TruncationMiddle)
	test.Float(t, out.Width, 50.0)
	test.T(t, len(out.Runs), 3)
	test.T(t, out.Runs[0].Range, attr.Range{Start: 0, End: 2})
	test.That(t, out.Runs[1].Token, "token sits in the middle")
	test.T(t, out.Runs[2].Range, attr.Range{Start: 8, End: 10})
}

func TestTruncateLineNone(t *testing.T) {
	ln := stubLine(plainText("abcdefghij"), attr.Range{Start: 0, End: 10}, 0.0, 0.0)
	tok := stubLine(plainText("…"), attr.Range{Start: 0, End: 1}, 0.0, 0.0)

	out := TruncateLine(ln, tok, 50.0, TruncationNone)
	test.Float(t, out.Width, 100.0)
	test.T(t, len(out.Runs), 1)
}

func TestTruncateLineTokenTooWide(t *testing.T) {
	ln := stubLine(plainText("abcdefghij"), attr.Range{Start: 0, End: 10}, 0.0, 0.0)
	tok := stubLine(plainText("xxxxxxxx"), attr.Range{Start: 0, End: 8}, 0.0, 0.0)

	// the token alone exceeds the budget; no content survives
	out := TruncateLine(ln, tok, 50.0, TruncationEnd)
	test.T(t, len(out.Runs), 1)
	test.That(t, out.Runs[0].Token, "only the token survives")
}

func TestTruncateLineMetrics(t *testing.T) {
	ln := stubLine(plainText("abcdefghij"), attr.Range{Start: 0, End: 10}, 0.0, 0.0)
	tok := stubLine(plainText("…"), attr.Range{Start: 0, End: 1}, 0.0, 0.0)
	tok.Ascent = 12.0

	out := TruncateLine(ln, tok, 50.0, TruncationEnd)
	test.Float(t, out.Ascent, 12.0) // the taller token wins
	test.Float(t, out.Descent, 2.0)
}

func TestGlyphAdvance(t *testing.T) {
	g := Glyph{XAdvance: toI26_6(12.5), YAdvance: toI26_6(-10.0)}
	test.Float(t, g.Advance(false), 12.5)
	test.Float(t, g.Advance(true), 10.0) // vertical advances are negative, reported as magnitude
}
