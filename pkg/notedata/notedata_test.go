package notedata

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/structured"
)

func strPtr(s string) *string { return &s }

func sampleTerm() *dictionary.TermEntry {
	return &dictionary.TermEntry{
		IsPrimary: true,
		Headwords: []dictionary.Headword{
			{Index: 0, Term: "会わせる", Reading: "あわせる", WordClasses: []string{"v1"},
				Tags:    []dictionary.Tag{{Name: "P", Score: 10}},
				Sources: []dictionary.Source{{OriginalText: "会わせて", TransformedText: "会わせて", DeinflectedText: "会わせる", IsPrimary: true}}},
		},
		Definitions: []dictionary.Definition{
			{HeadwordIndices: []int{0}, Dictionary: "JMdict", Sequences: []int{1198180},
				Entries: []structured.GlossaryEntry{{Type: structured.GlossaryText, Text: "to make (someone) meet"}}},
			{HeadwordIndices: []int{0}, Dictionary: "JMdict", Sequences: []int{1198180},
				Entries: []structured.GlossaryEntry{{Type: structured.GlossaryText, Text: "to introduce"}}},
		},
	}
}

func slicePtr(v any) uintptr { return reflect.ValueOf(v).Pointer() }

func TestCachedComputesOnce(t *testing.T) {
	calls := 0
	c := NewCached(func() []int {
		calls++
		return []int{1, 2}
	})
	assert.False(t, c.Computed())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Get()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.True(t, c.Computed())
	assert.Equal(t, slicePtr(c.Get()), slicePtr(c.Get()))
}

func TestNoteDataMemoization(t *testing.T) {
	n := New("expression", NewCommonData(sampleTerm(), Options{}))

	assert.Same(t, n.Definition(), n.Definition())
	assert.Equal(t, slicePtr(n.UniqueExpressions()), slicePtr(n.UniqueExpressions()))
	assert.Equal(t, slicePtr(n.UniqueReadings()), slicePtr(n.UniqueReadings()))
	assert.Equal(t, slicePtr(n.Pitches()), slicePtr(n.Pitches()))

	d := n.Definition()
	assert.Equal(t, slicePtr(d.Expressions()), slicePtr(d.Expressions()))
	assert.Equal(t, slicePtr(d.Glossary()), slicePtr(d.Glossary()))
	assert.Equal(t, slicePtr(d.FuriganaSegments()), slicePtr(d.FuriganaSegments()))
}

func TestNoteDataDoesNotMutateEntry(t *testing.T) {
	entry := sampleTerm()
	before := sampleTerm()
	n := New("expression", NewCommonData(entry, Options{ResultOutputMode: OutputMerge}))

	d := n.Definition()
	_ = d.Expressions()
	_ = d.Definitions()
	_ = d.Cloze()
	_ = n.Pitches()
	assert.Equal(t, before, entry)
}

func TestBatchKeysAreDistinct(t *testing.T) {
	entry := sampleTerm()
	a := NewCommonData(entry, Options{})
	b := NewCommonData(entry, Options{})
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), a.Key())
}

func TestTermProjection(t *testing.T) {
	n := New("expression", NewCommonData(sampleTerm(), Options{
		Context: Context{URL: "https://example.com", DocumentTitle: "Doc", Query: "会わせて", FullQuery: "会わせてくれた"},
	}))

	assert.Equal(t, "expression", n.Marker())
	assert.Equal(t, []string{"会わせる"}, n.UniqueExpressions())
	assert.Equal(t, []string{"あわせる"}, n.UniqueReadings())
	assert.True(t, n.ModeTermKanji())
	assert.False(t, n.ModeKanji())
	assert.Equal(t, PublicContext{Query: "会わせて", FullQuery: "会わせてくれた", Document: Document{Title: "Doc"}}, n.Context())

	d := n.Definition()
	assert.Equal(t, TypeTerm, d.Type())
	assert.Equal(t, "会わせる", d.Expression())
	assert.Equal(t, "あわせる", d.Reading())
	assert.Equal(t, "会わせて", d.RawSource())
	assert.Equal(t, "会わせる", d.SourceTerm())
	assert.Equal(t, 1198180, d.Sequence())
	assert.Equal(t, []string{"JMdict"}, d.DictionaryNames())
	assert.Len(t, d.Glossary(), 2)
	assert.Equal(t, "https://example.com", d.URL())

	require.Len(t, d.Expressions(), 1)
	expr := d.Expressions()[0]
	assert.Equal(t, TierPopular, expr.TermFrequency)
	assert.Equal(t, "会わせる", expr.SourceTerm)
}

func TestMissingContextDefaults(t *testing.T) {
	n := New("cloze-body", NewCommonData(sampleTerm(), Options{}))
	assert.Equal(t, PublicContext{}, n.Context())
	c := n.Definition().Cloze()
	assert.Equal(t, Cloze{}, c)
}

func TestModes(t *testing.T) {
	kana := &dictionary.TermEntry{Headwords: []dictionary.Headword{{Term: "すし", Reading: "すし"}}}
	assert.True(t, New("x", NewCommonData(kana, Options{})).ModeTermKana())

	kanji := &dictionary.KanjiEntry{Character: "猫"}
	n := New("x", NewCommonData(kanji, Options{ResultOutputMode: OutputGroup, GlossaryLayoutMode: "compact-popup-anki"}))
	assert.True(t, n.ModeKanji())
	assert.True(t, n.Group())
	assert.True(t, n.CompactGlossaries())
	assert.Equal(t, TypeKanji, n.Definition().Type())
	assert.Equal(t, -1, n.Definition().Sequence())
	assert.Empty(t, n.UniqueExpressions())
}

func TestFrequencyStatistics(t *testing.T) {
	freqs := []dictionary.TermFrequency{
		{Dictionary: "A", Frequency: 10},
		{Dictionary: "B", Frequency: 20},
	}
	assert.Equal(t, 13, TermFrequencyHarmonicRank(freqs, -1))
	assert.Equal(t, 15, TermFrequencyAverage(freqs, -1))

	assert.Equal(t, -1, TermFrequencyHarmonicRank(nil, -1))
	assert.Equal(t, -1, TermFrequencyAverage(nil, -1))

	invalid := []dictionary.TermFrequency{
		{Dictionary: "A", Frequency: 0},
		{Dictionary: "B", Frequency: -5, DisplayValue: strPtr("n/a")},
	}
	assert.Equal(t, -1, TermFrequencyHarmonicRank(invalid, -1))
	assert.Equal(t, -1, TermFrequencyAverage(invalid, -1))
}

func TestFrequencyQualifyingSet(t *testing.T) {
	freqs := []dictionary.TermFrequency{
		{Dictionary: "A", Frequency: 10, HeadwordIndex: 0},
		// only the first record of a dictionary counts
		{Dictionary: "A", Frequency: 1000, HeadwordIndex: 0},
		// display value wins, full-width digits fold
		{Dictionary: "B", Frequency: 999, DisplayValue: strPtr("３０㋕"), HeadwordIndex: 0},
		{Dictionary: "C", Frequency: 500, HeadwordIndex: 1},
	}
	assert.Equal(t, 20, TermFrequencyAverage(freqs, 0))
	assert.Equal(t, 15, TermFrequencyHarmonicRank(freqs, 0))
	assert.Equal(t, 500, TermFrequencyAverage(freqs, 1))
}

func TestSequence(t *testing.T) {
	e := sampleTerm()
	assert.Equal(t, 1198180, Sequence(e))

	e.Definitions[1].Sequences = []int{5}
	assert.Equal(t, -1, Sequence(e))

	e = sampleTerm()
	e.Definitions[1].Sequences = nil
	assert.Equal(t, -1, Sequence(e))

	e = sampleTerm()
	e.IsPrimary = false
	assert.Equal(t, -1, Sequence(e))
}

func TestClozeRoundTrip(t *testing.T) {
	sentence := "私はボスに会わせてくれた"
	c := NewCloze(sentence, 5, 4, "会わせる", "あわせる")
	assert.Equal(t, "私はボスに", c.Prefix)
	assert.Equal(t, "会わせて", c.Body)
	assert.Equal(t, "くれた", c.Suffix)
	assert.Equal(t, "あわせて", c.BodyKana)

	n := len([]rune(sentence))
	for offset := -2; offset <= n+2; offset++ {
		for length := 0; length <= n+2; length++ {
			c := NewCloze(sentence, offset, length, "会わせる", "あわせる")
			require.Equal(t, sentence, c.Prefix+c.Body+c.Suffix, "offset %d length %d", offset, length)
		}
	}
}

func TestEntryCloze(t *testing.T) {
	n := New("cloze-body", NewCommonData(sampleTerm(), Options{
		Context: Context{Sentence: Sentence{Text: "私はボスに会わせてくれた", Offset: 5}},
	}))
	c := n.Definition().Cloze()
	assert.Equal(t, "会わせて", c.Body)
	assert.Equal(t, "あわせて", c.BodyKana)

	k := New("cloze-body", NewCommonData(&dictionary.KanjiEntry{Character: "猫"}, Options{
		Context: Context{Sentence: Sentence{Text: "黒い猫", Offset: 2}},
	}))
	assert.Equal(t, "猫", k.Definition().Cloze().Body)
	assert.Equal(t, "猫", k.Definition().Cloze().BodyKana)
}

func pitchEntry() *dictionary.TermEntry {
	pitch := func(n int) dictionary.Pronunciation {
		return dictionary.Pronunciation{Type: dictionary.PronunciationPitchAccent, Positions: dictionary.PitchPosition{Downstep: n}}
	}
	return &dictionary.TermEntry{
		Headwords: []dictionary.Headword{
			{Index: 0, Term: "箸", Reading: "はし"},
			{Index: 1, Term: "橋", Reading: "はし"},
		},
		Pronunciations: []dictionary.TermPronunciation{
			{HeadwordIndex: 0, Dictionary: "NHK", Pronunciations: []dictionary.Pronunciation{pitch(1)}},
			{HeadwordIndex: 1, Dictionary: "NHK", Pronunciations: []dictionary.Pronunciation{pitch(2)}},
			{HeadwordIndex: 0, Dictionary: "Other", Pronunciations: []dictionary.Pronunciation{pitch(1)}},
			{HeadwordIndex: 1, Dictionary: "Other", Pronunciations: []dictionary.Pronunciation{
				pitch(1),
				{Type: dictionary.PronunciationPhonetic, IPA: "haɕi"},
			}},
		},
	}
}

func TestPitchGrouping(t *testing.T) {
	n := New("pitch-accents", NewCommonData(pitchEntry(), Options{}))

	groups := n.Pitches()
	require.Len(t, groups, 2)
	assert.Equal(t, "NHK", groups[0].Dictionary)
	require.Len(t, groups[0].Pitches, 2)
	assert.Equal(t, []string{"箸"}, groups[0].Pitches[0].ExclusiveExpressions)
	assert.Equal(t, []string{"橋"}, groups[0].Pitches[1].ExclusiveExpressions)
	assert.Empty(t, groups[0].Pitches[0].ExclusiveReadings)

	assert.Equal(t, "Other", groups[1].Dictionary)
	require.Len(t, groups[1].Pitches, 1)
	assert.Equal(t, []string{"箸", "橋"}, groups[1].Pitches[0].Expressions)
	assert.Empty(t, groups[1].Pitches[0].ExclusiveExpressions)

	assert.Equal(t, 3, n.PitchCount())

	transcriptions := n.PhoneticTranscriptions()
	require.Len(t, transcriptions, 1)
	assert.Equal(t, "haɕi", transcriptions[0].PhoneticTranscriptions[0].IPA)
	assert.Equal(t, []string{"橋"}, transcriptions[0].PhoneticTranscriptions[0].ExclusiveExpressions)
}

func TestExclusiveReadings(t *testing.T) {
	e := &dictionary.TermEntry{
		Headwords: []dictionary.Headword{
			{Term: "日本", Reading: "にほん"},
			{Term: "日本", Reading: "にっぽん"},
		},
		Pronunciations: []dictionary.TermPronunciation{
			{HeadwordIndex: 1, Dictionary: "NHK", Pronunciations: []dictionary.Pronunciation{{Type: dictionary.PronunciationPitchAccent, Positions: dictionary.PitchPosition{Downstep: 3}}}},
		},
	}
	groups := New("x", NewCommonData(e, Options{})).Pitches()
	require.Len(t, groups, 1)
	p := groups[0].Pitches[0]
	assert.Equal(t, []string{"にっぽん"}, p.ExclusiveReadings)
	assert.Empty(t, p.ExclusiveExpressions)
}

func TestMergedDefinitionsOnly(t *testing.T) {
	e := &dictionary.TermEntry{
		Headwords: []dictionary.Headword{
			{Term: "会う", Reading: "あう"},
			{Term: "逢う", Reading: "あう"},
		},
		Definitions: []dictionary.Definition{
			{HeadwordIndices: []int{0, 1}, Dictionary: "JMdict", Sequences: []int{1}},
			{HeadwordIndices: []int{1}, Dictionary: "JMdict", Sequences: []int{1}},
		},
	}
	d := New("x", NewCommonData(e, Options{ResultOutputMode: OutputMerge, DictionaryStyles: map[string]string{"JMdict": ".x{}"}})).Definition()
	assert.Equal(t, TypeTermMerged, d.Type())
	defs := d.Definitions()
	require.Len(t, defs, 2)
	assert.Empty(t, defs[0].Only)
	assert.Equal(t, []string{"逢う"}, defs[1].Only)
	assert.Equal(t, ".x{}", defs[0].DictScopedStyles)
	assert.Equal(t, ".x{}", d.DictScopedStyles())
}

func TestTermFrequencyTier(t *testing.T) {
	assert.Equal(t, TierRare, TermFrequencyTier([]dictionary.Tag{{Score: -5}}))
	assert.Equal(t, TierNormal, TermFrequencyTier(nil))
	assert.Equal(t, TierPopular, TermFrequencyTier([]dictionary.Tag{{Score: 1}, {Score: 0}}))
}

func TestFrequencyViews(t *testing.T) {
	e := sampleTerm()
	e.Frequencies = []dictionary.TermFrequency{
		{HeadwordIndex: 0, Dictionary: "BCCWJ", Frequency: 1200},
		{HeadwordIndex: 0, Dictionary: "JPDB", Frequency: 300, DisplayValue: strPtr("300㋕")},
	}
	d := New("frequencies", NewCommonData(e, Options{})).Definition()
	freqs := d.Frequencies()
	require.Len(t, freqs, 2)
	assert.Equal(t, "1200", freqs[0].Frequency)
	assert.Equal(t, "300㋕", freqs[1].Frequency)
	assert.Equal(t, "会わせる", freqs[0].Expression)
	assert.Equal(t, 480, d.FrequencyHarmonicRank())
	assert.Equal(t, 750, d.FrequencyAverage())
	assert.True(t, strings.HasPrefix(d.Expressions()[0].Frequencies[1].Frequency, "300"))
}
