package japanese

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerTokens(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	tokens := a.Analyze("猫が走った")
	require.NotEmpty(t, tokens)

	var surfaces []string
	for _, tok := range tokens {
		surfaces = append(surfaces, tok.Surface)
	}
	assert.Equal(t, "猫が走った", strings.Join(surfaces, ""))
	assert.Equal(t, "猫", tokens[0].Surface)
	assert.Equal(t, "ネコ", tokens[0].Reading)
	assert.Equal(t, "名詞", tokens[0].PrimaryPOS)
}

func TestAnalyzeDocumentSkipsBlankSentences(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	sentences := a.AnalyzeDocument("今日は晴れ。\n\n明日は雨！")
	require.Len(t, sentences, 2)
	assert.Equal(t, "今日は晴れ。", sentences[0].Text)
	assert.Equal(t, "明日は雨！", sentences[1].Text)
}

func TestTextFurigana(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	out, err := a.TextFurigana(context.Background(), "漢字を読む", "")
	require.NoError(t, err)
	assert.Contains(t, out, "<ruby>漢字<rt>かんじ</rt></ruby>")
	assert.Contains(t, out, "<ruby>読<rt>よ</rt></ruby>む")

	kata, err := a.TextFurigana(context.Background(), "漢字", "katakana")
	require.NoError(t, err)
	assert.Equal(t, "<ruby>漢字<rt>カンジ</rt></ruby>", kata)
}

func TestSplitSentencesRoundTrip(t *testing.T) {
	text := "一つ。二つ！三つ？\n四つ"
	parts := SplitSentences(text)
	assert.Equal(t, []string{"一つ。", "二つ！", "三つ？", "\n", "四つ"}, parts)
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSanitizeRuby(t *testing.T) {
	in := []byte(`<p><ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby></p>`)
	assert.Equal(t, `<p><ruby>漢字</ruby></p>`, string(SanitizeRuby(in)))
}
