package textframe

import "unicode"

// rotateRunes are CJK-context punctuation and symbols that rotate 90°
// clockwise in vertical form.
var rotateRunes = map[rune]bool{
	'：': true, '；': true, '≤': true, '≥': true, '≦': true, '≧': true,
	'＜': true, '＞': true, '＝': true, '～': true, '—': true, '–': true,
	'‐': true, '＿': true, '…': true, '‥': true, '︙': true, 'ー': true,
	'↑': true, '↓': true, '→': true, '←': true,
	'（': true, '）': true, '［': true, '］': true, '｛': true, '｝': true,
	'｟': true, '｠': true, '〈': true, '〉': true, '《': true, '》': true,
	'「': true, '」': true, '『': true, '』': true, '【': true, '】': true,
	'〔': true, '〕': true, '〖': true, '〗': true, '〘': true, '〙': true,
	'〚': true, '〛': true, '〜': true, '｜': true, 'ｰ': true, '％': true,
}

// rotateMoveRunes additionally shift towards the flow after rotating, so
// ideographic commas and periods sit in the corner of their em box.
var rotateMoveRunes = map[rune]bool{
	'，': true, '。': true, '、': true, '．': true, '｡': true, '､': true,
}

// emojiBase reports runes that can lead a multi-codepoint emoji sequence:
// pictographic symbols, keycap bases and regional indicators.
func emojiBase(r rune) bool {
	if unicode.Is(unicode.S, r) {
		return true
	}
	return '0' <= r && r <= '9' || r == '#' || r == '*'
}

// glyphOrientation classifies a single glyph for vertical form. Any glyph
// belonging to a multi-codepoint emoji-style cluster always rotates.
func glyphOrientation(g Glyph) GlyphOrientation {
	if g.Runes > 1 && emojiBase(g.Rune) {
		return OrientationRotate
	}
	if rotateMoveRunes[g.Rune] {
		return OrientationRotateMove
	}
	if rotateRunes[g.Rune] {
		return OrientationRotate
	}
	return OrientationHorizontal
}

// classifyVerticalForm fills each run's Rotations with contiguous groups of
// glyphs sharing one orientation, consumed by the renderer to rotate (and
// shift) glyph sub-ranges.
func classifyVerticalForm(ln *Line) {
	for ri := range ln.Runs {
		rn := &ln.Runs[ri]
		rn.Rotations = nil
		if len(rn.Glyphs) == 0 {
			continue
		}
		start := 0
		cur := glyphOrientation(rn.Glyphs[0])
		for i := 1; i < len(rn.Glyphs); i++ {
			o := glyphOrientation(rn.Glyphs[i])
			if o == cur {
				continue
			}
			rn.Rotations = append(rn.Rotations, GlyphRotationRange{start, i, cur})
			start, cur = i, o
		}
		rn.Rotations = append(rn.Rotations, GlyphRotationRange{start, len(rn.Glyphs), cur})
	}
}
