package japanese

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistributeFurigana(t *testing.T) {
	tests := []struct {
		name    string
		term    string
		reading string
		want    []Segment
	}{
		{"identical", "すし", "すし", []Segment{{Text: "すし"}}},
		{"single kanji run", "漢字", "かんじ", []Segment{{Text: "漢字", Reading: "かんじ"}}},
		{"okurigana anchors", "読み方", "よみかた", []Segment{
			{Text: "読", Reading: "よ"}, {Text: "み"}, {Text: "方", Reading: "かた"},
		}},
		{"verb", "会わせる", "あわせる", []Segment{{Text: "会", Reading: "あ"}, {Text: "わせる"}}},
		{"katakana with hiragana reading", "テスト", "てすと", []Segment{{Text: "テスト", Reading: "てすと"}}},
		{"unalignable", "日本", "", []Segment{{Text: "日本", Reading: ""}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DistributeFurigana(tc.term, tc.reading))
		})
	}
}

func TestDistributeFuriganaInflected(t *testing.T) {
	tests := []struct {
		name                  string
		term, reading, source string
		want                  []Segment
	}{
		{"inflected stem", "会わせる", "あわせる", "会わせて", []Segment{{Text: "会", Reading: "あ"}, {Text: "わせて"}}},
		{"short stem", "会う", "あう", "会わせて", []Segment{{Text: "会", Reading: "あ"}, {Text: "わせて"}}},
		{"written in kana", "食べる", "たべる", "たべた", []Segment{{Text: "たべた"}}},
		{"no overlap", "猫", "ねこ", "犬", []Segment{{Text: "犬"}}},
		{"empty source", "猫", "ねこ", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DistributeFuriganaInflected(tc.term, tc.reading, tc.source))
		})
	}
}

func TestSegmentsRendering(t *testing.T) {
	segs := []Segment{{Text: "読", Reading: "よ"}, {Text: "み"}, {Text: "方", Reading: "かた"}}
	assert.Equal(t, "<ruby>読<rt>よ</rt></ruby>み<ruby>方<rt>かた</rt></ruby>", SegmentsToHTML(segs))
	assert.Equal(t, "読[よ]み 方[かた]", SegmentsToPlain(segs))
}

func TestKanaConversion(t *testing.T) {
	assert.Equal(t, "ねこ", ToHiragana("ネコ"))
	assert.Equal(t, "らーめん", ToHiragana("ラーメン"))
	assert.Equal(t, "ネコ", ToKatakana("ねこ"))
	assert.Equal(t, "ネコ", ConvertReading("ねこ", "katakana"))
	assert.Equal(t, "ねこ", ConvertReading("ねこ", ""))
	assert.True(t, ContainsKanji("食べる"))
	assert.False(t, ContainsKanji("たべる"))
}

func TestPitch(t *testing.T) {
	assert.Equal(t, []string{"きょ", "う"}, KanaMorae("きょう"))
	assert.Equal(t, PitchHeiban, PitchCategory("さくら", 0, false))
	assert.Equal(t, PitchAtamadaka, PitchCategory("はし", 1, false))
	assert.Equal(t, PitchOdaka, PitchCategory("はし", 2, false))
	assert.Equal(t, PitchNakadaka, PitchCategory("たべもの", 3, false))
	assert.Equal(t, PitchKifuku, PitchCategory("たべる", 2, true))
	assert.True(t, IsMoraPitchHigh(1, 0))
	assert.False(t, IsMoraPitchHigh(0, 0))
	assert.True(t, IsMoraPitchHigh(0, 1))
	assert.False(t, IsMoraPitchHigh(2, 2))
	assert.True(t, IsVerbOrAdjective([]string{"v5r", "vi"}))
	assert.False(t, IsVerbOrAdjective([]string{"n"}))
}
