package notedata

import (
	"slices"

	"github.com/japaniel/cardsmith/pkg/dictionary"
)

// PitchGroup is the pitch accents one dictionary gives for an entry.
type PitchGroup struct {
	Dictionary      string  `json:"dictionary"`
	DictionaryAlias string  `json:"dictionaryAlias"`
	Pitches         []Pitch `json:"pitches"`
}

// Pitch is one distinct pitch accent and the headwords it applies to.
type Pitch struct {
	Expressions          []string                 `json:"expressions"`
	Reading              string                   `json:"reading"`
	Position             dictionary.PitchPosition `json:"position"`
	NasalPositions       []int                    `json:"nasalPositions"`
	DevoicePositions     []int                    `json:"devoicePositions"`
	Tags                 []Tag                    `json:"tags"`
	ExclusiveExpressions []string                 `json:"exclusiveExpressions"`
	ExclusiveReadings    []string                 `json:"exclusiveReadings"`
}

// TranscriptionGroup is the phonetic transcriptions one dictionary gives.
type TranscriptionGroup struct {
	Dictionary             string          `json:"dictionary"`
	DictionaryAlias        string          `json:"dictionaryAlias"`
	PhoneticTranscriptions []Transcription `json:"phoneticTranscriptions"`
}

// Transcription is one distinct IPA transcription and the headwords it
// applies to.
type Transcription struct {
	Expressions          []string `json:"expressions"`
	Reading              string   `json:"reading"`
	IPA                  string   `json:"ipa"`
	Tags                 []Tag    `json:"tags"`
	ExclusiveExpressions []string `json:"exclusiveExpressions"`
	ExclusiveReadings    []string `json:"exclusiveReadings"`
}

type groupedPronunciation struct {
	pronunciation dictionary.Pronunciation
	reading       string
	terms         []string
}

type dictionaryPronunciations struct {
	dictionary string
	alias      string
	items      []*groupedPronunciation
	// exclusive terms and readings, parallel to items
	exclusiveTerms    [][]string
	exclusiveReadings [][]string
}

// groupPronunciations groups an entry's pronunciations of the given type per
// dictionary, in encounter order. Within a dictionary, records with the same
// reading and an equivalent pronunciation merge and collect their terms.
func groupPronunciations(entry *dictionary.TermEntry, kind string) []dictionaryPronunciations {
	allTerms := uniqueTerms(entry)
	var allReadings []string
	for _, h := range entry.Headwords {
		allReadings = appendUnique(allReadings, h.Reading)
	}

	var groups []*dictionaryPronunciations
	byDictionary := make(map[string]*dictionaryPronunciations)
	for _, tp := range entry.Pronunciations {
		if tp.HeadwordIndex < 0 || tp.HeadwordIndex >= len(entry.Headwords) {
			continue
		}
		h := entry.Headwords[tp.HeadwordIndex]
		for _, p := range tp.Pronunciations {
			if p.Type != kind {
				continue
			}
			g, ok := byDictionary[tp.Dictionary]
			if !ok {
				g = &dictionaryPronunciations{dictionary: tp.Dictionary, alias: tp.DictionaryAlias}
				byDictionary[tp.Dictionary] = g
				groups = append(groups, g)
			}
			item := findGrouped(g.items, h.Reading, p)
			if item == nil {
				item = &groupedPronunciation{pronunciation: p, reading: h.Reading}
				g.items = append(g.items, item)
			}
			item.terms = appendUnique(item.terms, h.Term)
		}
	}

	multipleReadings := len(allReadings) > 1
	out := make([]dictionaryPronunciations, 0, len(groups))
	for _, g := range groups {
		for _, item := range g.items {
			exclusive := []string{}
			if !sameSet(item.terms, allTerms) {
				exclusive = append(exclusive, item.terms...)
			}
			readings := []string{}
			if multipleReadings {
				readings = []string{item.reading}
			}
			g.exclusiveTerms = append(g.exclusiveTerms, exclusive)
			g.exclusiveReadings = append(g.exclusiveReadings, readings)
		}
		out = append(out, *g)
	}
	return out
}

func findGrouped(items []*groupedPronunciation, reading string, p dictionary.Pronunciation) *groupedPronunciation {
	for _, item := range items {
		if item.reading == reading && equivalentPronunciation(item.pronunciation, p) {
			return item
		}
	}
	return nil
}

func equivalentPronunciation(a, b dictionary.Pronunciation) bool {
	if a.Type != b.Type || !sameTagNames(a.Tags, b.Tags) {
		return false
	}
	if a.Type == dictionary.PronunciationPhonetic {
		return a.IPA == b.IPA
	}
	return a.Positions == b.Positions &&
		slices.Equal(a.NasalPositions, b.NasalPositions) &&
		slices.Equal(a.DevoicePositions, b.DevoicePositions)
}

func sameTagNames(a, b []dictionary.Tag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !slices.Contains(b, x) {
			return false
		}
	}
	return true
}

func pitchGroups(entry *dictionary.TermEntry) []PitchGroup {
	out := []PitchGroup{}
	for _, g := range groupPronunciations(entry, dictionary.PronunciationPitchAccent) {
		pg := PitchGroup{Dictionary: g.dictionary, DictionaryAlias: g.alias}
		for i, item := range g.items {
			p := item.pronunciation
			pg.Pitches = append(pg.Pitches, Pitch{
				Expressions:          item.terms,
				Reading:              item.reading,
				Position:             p.Positions,
				NasalPositions:       p.NasalPositions,
				DevoicePositions:     p.DevoicePositions,
				Tags:                 convertTags(p.Tags),
				ExclusiveExpressions: g.exclusiveTerms[i],
				ExclusiveReadings:    g.exclusiveReadings[i],
			})
		}
		out = append(out, pg)
	}
	return out
}

func transcriptionGroups(entry *dictionary.TermEntry) []TranscriptionGroup {
	out := []TranscriptionGroup{}
	for _, g := range groupPronunciations(entry, dictionary.PronunciationPhonetic) {
		tg := TranscriptionGroup{Dictionary: g.dictionary, DictionaryAlias: g.alias}
		for i, item := range g.items {
			tg.PhoneticTranscriptions = append(tg.PhoneticTranscriptions, Transcription{
				Expressions:          item.terms,
				Reading:              item.reading,
				IPA:                  item.pronunciation.IPA,
				Tags:                 convertTags(item.pronunciation.Tags),
				ExclusiveExpressions: g.exclusiveTerms[i],
				ExclusiveReadings:    g.exclusiveReadings[i],
			})
		}
		out = append(out, tg)
	}
	return out
}

func pitchCount(groups []PitchGroup) int {
	n := 0
	for _, g := range groups {
		n += len(g.Pitches)
	}
	return n
}

// ExpressionPitches is the pitch accents one dictionary gives for a single
// headword.
type ExpressionPitches struct {
	Dictionary      string          `json:"dictionary"`
	DictionaryAlias string          `json:"dictionaryAlias"`
	Pitches         []HeadwordPitch `json:"pitches"`
}

// HeadwordPitch is a pitch accent of a single headword.
type HeadwordPitch struct {
	Position         dictionary.PitchPosition `json:"position"`
	NasalPositions   []int                    `json:"nasalPositions"`
	DevoicePositions []int                    `json:"devoicePositions"`
	Tags             []Tag                    `json:"tags"`
}

func headwordPitches(entry *dictionary.TermEntry, headwordIndex int) []ExpressionPitches {
	var out []ExpressionPitches
	for _, tp := range entry.Pronunciations {
		if tp.HeadwordIndex != headwordIndex {
			continue
		}
		ep := ExpressionPitches{Dictionary: tp.Dictionary, DictionaryAlias: tp.DictionaryAlias}
		for _, p := range tp.Pronunciations {
			if p.Type != dictionary.PronunciationPitchAccent {
				continue
			}
			ep.Pitches = append(ep.Pitches, HeadwordPitch{
				Position:         p.Positions,
				NasalPositions:   p.NasalPositions,
				DevoicePositions: p.DevoicePositions,
				Tags:             convertTags(p.Tags),
			})
		}
		if len(ep.Pitches) > 0 {
			out = append(out, ep)
		}
	}
	return out
}
