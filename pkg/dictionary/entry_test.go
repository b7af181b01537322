package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const termJSON = `{
  "type": "term",
  "isPrimary": true,
  "headwords": [
    {"index": 0, "term": "会わせる", "reading": "あわせる", "wordClasses": ["v1"],
     "sources": [{"originalText": "会わせて", "transformedText": "会わせて", "deinflectedText": "会わせる", "isPrimary": true}]}
  ],
  "definitions": [
    {"index": 0, "headwordIndices": [0], "dictionary": "JMdict", "sequences": [1198180], "isPrimary": true,
     "entries": ["to make (someone) meet", {"type": "structured-content", "content": {"tag": "span", "content": "to introduce"}}]}
  ],
  "pronunciations": [
    {"index": 0, "headwordIndex": 0, "dictionary": "NHK", "pronunciations": [{"type": "pitch-accent", "positions": 3, "tags": []}]}
  ],
  "frequencies": [
    {"index": 0, "headwordIndex": 0, "dictionary": "BCCWJ", "frequency": 1200, "displayValue": "1200㋕"}
  ]
}`

func TestDecodeTermEntry(t *testing.T) {
	e, err := DecodeEntry([]byte(termJSON))
	require.NoError(t, err)
	term, ok := e.(*TermEntry)
	require.True(t, ok)

	assert.Equal(t, EntryTerm, term.EntryType())
	require.Len(t, term.Headwords, 1)
	assert.Equal(t, "会わせる", term.Headwords[0].Term)
	require.Len(t, term.Definitions[0].Entries, 2)
	assert.Equal(t, "to introduce", term.Definitions[0].Entries[1].PlainText())
	assert.Equal(t, 3, term.Pronunciations[0].Pronunciations[0].Positions.Downstep)
	require.NotNil(t, term.Frequencies[0].DisplayValue)
	assert.Equal(t, "1200㋕", *term.Frequencies[0].DisplayValue)

	src, ok := term.PrimarySource()
	require.True(t, ok)
	assert.Equal(t, "会わせて", src.OriginalText)
}

func TestDecodeKanjiEntryAndRoundTrip(t *testing.T) {
	e, err := DecodeEntry([]byte(`{"type":"kanji","character":"猫","dictionary":"KANJIDIC","onyomi":["ビョウ"],"kunyomi":["ねこ"],"definitions":["cat"]}`))
	require.NoError(t, err)
	kanji, ok := e.(*KanjiEntry)
	require.True(t, ok)
	assert.Equal(t, "猫", kanji.Character)

	b, err := EncodeEntry(kanji)
	require.NoError(t, err)
	again, err := DecodeEntry(b)
	require.NoError(t, err)
	assert.Equal(t, kanji, again)
}

func TestDecodeEntryRejectsUnknownType(t *testing.T) {
	_, err := DecodeEntry([]byte(`{"type":"sentence"}`))
	assert.Error(t, err)
}

func TestPitchPositionPattern(t *testing.T) {
	e, err := DecodeEntry([]byte(`{"type":"term","pronunciations":[{"pronunciations":[{"type":"pitch-accent","positions":"LHHL"}]}]}`))
	require.NoError(t, err)
	p := e.(*TermEntry).Pronunciations[0].Pronunciations[0].Positions
	assert.Equal(t, "LHHL", p.Pattern)
}

const jmdictJSON = `{
  "words": [
    {"id": "1", "kanji": [{"text": "犬", "common": true}], "kana": [{"text": "いぬ", "common": true}],
     "sense": [{"gloss": [{"text": "dog"}], "partOfSpeech": ["n"]}]},
    {"id": "2", "kanji": [{"text": "走る", "common": true}], "kana": [{"text": "はしる", "common": true}],
     "sense": [{"gloss": [{"text": "to run"}], "partOfSpeech": ["v5r", "vi"]}]},
    {"id": "3", "kanji": [], "kana": [{"text": "テスト", "common": true}],
     "sense": [{"gloss": [{"text": "test"}], "partOfSpeech": ["n", "vs"]}]}
  ]
}`

func loadTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jmdict.json")
	require.NoError(t, os.WriteFile(path, []byte(jmdictJSON), 0o644))
	entries, err := LoadJMdictSimplified(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	return NewIndex(entries)
}

func TestIndexLookup(t *testing.T) {
	ix := loadTestIndex(t)

	assert.Len(t, ix.Lookup("犬", "犬", "イヌ"), 1)
	assert.Empty(t, ix.Lookup("犬", "犬", "ねこ"))
	assert.Len(t, ix.Lookup("走っ", "走る", ""), 1)
	assert.Len(t, ix.Lookup("テスト", "", "てすと"), 1)
	assert.Empty(t, ix.Lookup("未知", "未知", ""))
}

func TestLookupTermsBuildsEntries(t *testing.T) {
	ix := loadTestIndex(t)

	terms := ix.LookupTerms("走っ", "走る", "")
	require.Len(t, terms, 1)
	term := terms[0]

	require.Len(t, term.Headwords, 1)
	h := term.Headwords[0]
	assert.Equal(t, "走る", h.Term)
	assert.Equal(t, "はしる", h.Reading)
	assert.Equal(t, []string{"v5r", "vi"}, h.WordClasses)
	require.Len(t, h.Sources, 1)
	assert.Equal(t, "走っ", h.Sources[0].OriginalText)
	assert.True(t, h.Sources[0].IsPrimary)
	require.Len(t, h.Tags, 1)
	assert.Equal(t, "popular", h.Tags[0].Category)

	require.Len(t, term.Definitions, 1)
	assert.Equal(t, []int{2}, term.Definitions[0].Sequences)
	assert.Equal(t, "to run", term.Definitions[0].Entries[0].Text)
}

func TestKanaOnlyEntry(t *testing.T) {
	ix := loadTestIndex(t)
	terms := ix.LookupTerms("テスト", "", "")
	require.Len(t, terms, 1)
	assert.Equal(t, "テスト", terms[0].Headwords[0].Term)
	assert.Equal(t, "reading", terms[0].Headwords[0].Sources[0].MatchSource)
}
