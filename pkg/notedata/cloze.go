package notedata

import (
	"strings"

	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/japanese"
)

// Cloze splits the lookup sentence around the looked-up text.
// Prefix + Body + Suffix always equals Sentence.
type Cloze struct {
	Sentence string `json:"sentence"`
	Prefix   string `json:"prefix"`
	Body     string `json:"body"`
	BodyKana string `json:"bodyKana"`
	Suffix   string `json:"suffix"`
}

// NewCloze splits sentence at the rune offset, taking bodyLength runes as the
// body. Offsets and lengths outside the sentence are clamped. term and
// reading produce BodyKana; when empty, BodyKana equals Body.
func NewCloze(sentence string, offset, bodyLength int, term, reading string) Cloze {
	runes := []rune(sentence)
	start := min(max(offset, 0), len(runes))
	end := min(start+max(bodyLength, 0), len(runes))
	body := string(runes[start:end])

	var kana strings.Builder
	for _, seg := range japanese.DistributeFuriganaInflected(term, reading, body) {
		if seg.Reading != "" {
			kana.WriteString(seg.Reading)
		} else {
			kana.WriteString(seg.Text)
		}
	}

	return Cloze{
		Sentence: sentence,
		Prefix:   string(runes[:start]),
		Body:     body,
		BodyKana: kana.String(),
		Suffix:   string(runes[end:]),
	}
}

func entryCloze(entry dictionary.Entry, ctx Context) Cloze {
	var original, term, reading string
	switch e := entry.(type) {
	case *dictionary.TermEntry:
		if len(e.Headwords) > 0 {
			term, reading = e.Headwords[0].Term, e.Headwords[0].Reading
		}
		if src, ok := e.PrimarySource(); ok {
			original = src.OriginalText
		}
	case *dictionary.KanjiEntry:
		original = e.Character
	}
	return NewCloze(ctx.Sentence.Text, ctx.Sentence.Offset, len([]rune(original)), term, reading)
}
