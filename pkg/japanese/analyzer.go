// Package japanese holds Japanese text utilities: kana conversion, furigana
// distribution, morae and pitch categories, and morphological analysis
// backed by kagome.
package japanese

import (
	"context"
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // The pronunciation (katakana, e.g. "イッ")
	PartsOfSpeech []string // Kagome IPA features
	PrimaryPOS    string
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer handles text segmentation.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms.
// Whitespace-only tokens are kept so callers can rebuild the input text.
func (a *Analyzer) Analyze(text string) []Token {
	tokens := a.t.Tokenize(text)
	result := make([]Token, 0, len(tokens))

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}

		// IPA features: 0-3 POS, 4 conjugation type, 5 conjugation form,
		// 6 base form, 7 reading, 8 pronunciation.
		features := token.Features()

		base := token.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primaryPOS := ""
		if len(features) > 0 {
			primaryPOS = features[0]
		}

		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primaryPOS,
		})
	}
	return result
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range SplitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: a.Analyze(s)})
	}
	return result
}

// Furigana annotates every kanji-bearing token of text with its reading.
// readingMode is "hiragana" (default when empty) or "katakana".
func (a *Analyzer) Furigana(text, readingMode string) []Segment {
	if readingMode == "" {
		readingMode = "hiragana"
	}
	var out []Segment
	for _, tok := range a.Analyze(text) {
		if tok.Reading == "" || !ContainsKanji(tok.Surface) {
			out = appendPlain(out, tok.Surface)
			continue
		}
		reading := ToHiragana(tok.Reading)
		for _, seg := range DistributeFurigana(tok.Surface, reading) {
			if seg.Reading == "" {
				out = appendPlain(out, seg.Text)
				continue
			}
			seg.Reading = ConvertReading(seg.Reading, readingMode)
			out = append(out, seg)
		}
	}
	return out
}

// TextFurigana renders text as ruby HTML. It satisfies the furigana
// generator used by the note builder.
func (a *Analyzer) TextFurigana(ctx context.Context, text, readingMode string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return SegmentsToHTML(a.Furigana(text, readingMode)), nil
}

func appendPlain(out []Segment, text string) []Segment {
	if n := len(out); n > 0 && out[n-1].Reading == "" {
		out[n-1].Text += text
		return out
	}
	return append(out, Segment{Text: text})
}

// SplitSentences splits on Japanese sentence delimiters (。！？) and
// newlines. Delimiters stay attached to their sentence, so joining the
// result reproduces text.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

var (
	// (?s) allows dot to match newlines, (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) from HTML so extracted text does not repeat furigana
// (e.g. "漢字" becoming "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}
