package japanese

import (
	"html"
	"strings"
)

// Segment is a run of text with the furigana that annotates it. Reading is
// empty when the text needs no annotation.
type Segment struct {
	Text    string `json:"text"`
	Reading string `json:"reading"`
}

type kanaGroup struct {
	isKana bool
	text   []rune
	norm   []rune
}

// DistributeFurigana splits term into segments and assigns each kanji run
// the part of reading it spells. Kana runs anchor the split. When the
// reading cannot be aligned unambiguously the whole term is returned as a
// single segment carrying the whole reading.
func DistributeFurigana(term, reading string) []Segment {
	if reading == term {
		return []Segment{{Text: term}}
	}

	var groups []*kanaGroup
	var last *kanaGroup
	for _, r := range term {
		kana := IsKana(r)
		if last != nil && last.isKana == kana {
			last.text = append(last.text, r)
			continue
		}
		last = &kanaGroup{isKana: kana, text: []rune{r}}
		groups = append(groups, last)
	}
	for _, g := range groups {
		if g.isKana {
			g.norm = []rune(ToHiragana(string(g.text)))
		}
	}

	readingRunes := []rune(reading)
	readingNorm := []rune(ToHiragana(reading))
	segments, ok := segmentize(readingRunes, readingNorm, groups, 0)
	if !ok {
		return []Segment{{Text: term, Reading: reading}}
	}
	return segments
}

func segmentize(reading, readingNorm []rune, groups []*kanaGroup, start int) ([]Segment, bool) {
	remaining := len(groups) - start
	if remaining <= 0 {
		return []Segment{}, len(reading) == 0
	}

	g := groups[start]
	n := len(g.text)
	if g.isKana {
		if !hasRunePrefix(readingNorm, g.norm) {
			return nil, false
		}
		tail, ok := segmentize(reading[n:], readingNorm[n:], groups, start+1)
		if !ok {
			return nil, false
		}
		var head []Segment
		if hasRunePrefix(reading, g.text) {
			head = []Segment{{Text: string(g.text)}}
		} else {
			head = kanaSegments(g.text, reading)
		}
		return append(head, tail...), true
	}

	var result []Segment
	found := false
	for i := len(reading); i >= n; i-- {
		tail, ok := segmentize(reading[i:], readingNorm[i:], groups, start+1)
		if ok {
			if found {
				// more than one way to split the tail
				return nil, false
			}
			result = append([]Segment{{Text: string(g.text), Reading: string(reading[:i])}}, tail...)
			found = true
		}
		if remaining == 1 {
			break
		}
	}
	return result, found
}

// kanaSegments handles kana text whose reading differs only in script
// (e.g. katakana text with a hiragana reading).
func kanaSegments(text, reading []rune) []Segment {
	same := func(i int) bool { return i < len(reading) && reading[i] == text[i] }
	var out []Segment
	start := 0
	state := same(0)
	emit := func(end int) {
		seg := Segment{Text: string(text[start:end])}
		if !state && start < len(reading) {
			seg.Reading = string(reading[start:min(end, len(reading))])
		}
		out = append(out, seg)
	}
	for i := 1; i < len(text); i++ {
		next := same(i)
		if next == state {
			continue
		}
		emit(i)
		state = next
		start = i
	}
	emit(len(text))
	return out
}

// DistributeFuriganaInflected distributes furigana over source, an inflected
// form of term (e.g. 会わせて for 会わせる). The shared stem gets furigana from
// the dictionary reading; the inflected remainder is appended without
// annotation.
func DistributeFuriganaInflected(term, reading, source string) []Segment {
	termNorm := []rune(ToHiragana(term))
	readingNorm := []rune(ToHiragana(reading))
	sourceNorm := []rune(ToHiragana(source))
	src := []rune(source)
	mainText := []rune(term)
	readingRunes := []rune(reading)

	stem := stemLength(termNorm, sourceNorm)
	// the source may be written in kana from the reading rather than the term
	if readingStem := stemLength(readingNorm, sourceNorm); readingStem > 0 && readingStem >= stem {
		mainText = readingRunes
		stem = readingStem
		readingRunes = concatRunes(src[:stem], readingRunes[stem:])
	}

	var segments []Segment
	if stem > 0 {
		mainText = concatRunes(src[:stem], mainText[stem:])
		consumed := 0
		for _, seg := range DistributeFurigana(string(mainText), string(readingRunes)) {
			start := consumed
			consumed += len([]rune(seg.Text))
			if consumed < stem {
				segments = append(segments, seg)
				continue
			}
			if consumed == stem {
				segments = append(segments, seg)
			} else if start < stem {
				segments = append(segments, Segment{Text: string(mainText[start:stem])})
			}
			break
		}
	}

	if stem < len(src) {
		remainder := string(src[stem:])
		if n := len(segments); n > 0 && segments[n-1].Reading == "" {
			segments[n-1].Text += remainder
		} else {
			segments = append(segments, Segment{Text: remainder})
		}
	}
	return segments
}

// SegmentsToHTML renders segments as ruby markup. Text is HTML escaped.
func SegmentsToHTML(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if s.Reading == "" {
			b.WriteString(html.EscapeString(s.Text))
			continue
		}
		b.WriteString("<ruby>")
		b.WriteString(html.EscapeString(s.Text))
		b.WriteString("<rt>")
		b.WriteString(html.EscapeString(s.Reading))
		b.WriteString("</rt></ruby>")
	}
	return b.String()
}

// SegmentsToPlain renders segments in the Anki bracket notation
// (漢字[かんじ]). A space separates an annotated segment from preceding text.
func SegmentsToPlain(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		if s.Reading == "" {
			b.WriteString(s.Text)
			continue
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
		b.WriteByte('[')
		b.WriteString(s.Reading)
		b.WriteByte(']')
	}
	return strings.TrimLeft(b.String(), " ")
}

func stemLength(a, b []rune) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func hasRunePrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}

func concatRunes(a, b []rune) []rune {
	out := make([]rune, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
