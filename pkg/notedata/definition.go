package notedata

import (
	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/japanese"
	"github.com/japaniel/cardsmith/pkg/structured"
)

// Definition types.
const (
	TypeTerm        = "term"
	TypeTermGrouped = "termGrouped"
	TypeTermMerged  = "termMerged"
	TypeKanji       = "kanji"
)

// Expression is the template view of one headword.
type Expression struct {
	SourceTerm       string              `json:"sourceTerm"`
	Expression       string              `json:"expression"`
	Reading          string              `json:"reading"`
	TermTags         []Tag               `json:"termTags"`
	Frequencies      []Frequency         `json:"frequencies"`
	Pitches          []ExpressionPitches `json:"pitches"`
	FuriganaSegments []japanese.Segment  `json:"furiganaSegments"`
	TermFrequency    string              `json:"termFrequency"`
	WordClasses      []string            `json:"wordClasses"`
}

// TermDefinition is one glossary of a grouped or merged entry.
type TermDefinition struct {
	Sequence         int                        `json:"sequence"`
	Dictionary       string                     `json:"dictionary"`
	DictionaryAlias  string                     `json:"dictionaryAlias"`
	DictScopedStyles string                     `json:"dictScopedStyles"`
	Glossary         []structured.GlossaryEntry `json:"glossary"`
	DefinitionTags   []Tag                      `json:"definitionTags"`
	// Only lists the terms and readings the glossary is restricted to when
	// it does not apply to every headword.
	Only []string `json:"only"`
}

// Definition is the template view of the whole entry. Getters that do not
// apply to the entry's type return zero values.
type Definition struct {
	typ    string
	common *CommonData
	term   *dictionary.TermEntry
	kanji  *dictionary.KanjiEntry

	dictionaryNames        *Cached[[]string]
	expressions            *Cached[[]Expression]
	glossary               *Cached[[]structured.GlossaryEntry]
	definitionTags         *Cached[[]Tag]
	termTags               *Cached[[]Tag]
	definitions            *Cached[[]TermDefinition]
	frequencies            *Cached[[]Frequency]
	frequencyHarmonicRank  *Cached[int]
	frequencyAverage       *Cached[int]
	pitches                *Cached[[]PitchGroup]
	phoneticTranscriptions *Cached[[]TranscriptionGroup]
	cloze                  *Cached[Cloze]
	furiganaSegments       *Cached[[]japanese.Segment]
	sequence               *Cached[int]
	kanjiTags              *Cached[[]Tag]
}

func newDefinition(c *CommonData, pitches *Cached[[]PitchGroup], transcriptions *Cached[[]TranscriptionGroup]) *Definition {
	d := &Definition{common: c, pitches: pitches, phoneticTranscriptions: transcriptions}
	d.cloze = NewCached(func() Cloze { return entryCloze(c.Entry(), c.Context()) })
	d.glossary = NewCached(func() []structured.GlossaryEntry { return nil })
	d.frequencies = NewCached(func() []Frequency { return nil })
	d.frequencyHarmonicRank = NewCached(func() int { return -1 })
	d.frequencyAverage = NewCached(func() int { return -1 })
	d.dictionaryNames = NewCached(func() []string { return nil })

	switch e := c.Entry().(type) {
	case *dictionary.KanjiEntry:
		d.typ = TypeKanji
		d.kanji = e
		d.glossary = NewCached(func() []structured.GlossaryEntry {
			out := make([]structured.GlossaryEntry, 0, len(e.Definitions))
			for _, s := range e.Definitions {
				out = append(out, structured.GlossaryEntry{Type: structured.GlossaryText, Text: s})
			}
			return out
		})
		d.frequencies = NewCached(func() []Frequency { return kanjiFrequencies(e) })
		d.frequencyHarmonicRank = NewCached(func() int { return harmonicRank(kanjiRecords(e.Frequencies)) })
		d.frequencyAverage = NewCached(func() int { return averageFrequency(kanjiRecords(e.Frequencies)) })
		d.kanjiTags = NewCached(func() []Tag { return convertTags(e.Tags) })
		d.dictionaryNames = NewCached(func() []string { return []string{e.Dictionary} })
	case *dictionary.TermEntry:
		d.term = e
		switch c.ResultOutputMode() {
		case OutputGroup:
			d.typ = TypeTermGrouped
		case OutputMerge:
			d.typ = TypeTermMerged
		default:
			d.typ = TypeTerm
		}
		d.dictionaryNames = NewCached(func() []string {
			var names []string
			for _, def := range e.Definitions {
				names = appendUnique(names, def.Dictionary)
			}
			return names
		})
		d.expressions = NewCached(func() []Expression { return expressions(e) })
		d.glossary = NewCached(func() []structured.GlossaryEntry {
			var out []structured.GlossaryEntry
			for _, def := range e.Definitions {
				out = append(out, def.Entries...)
			}
			return out
		})
		d.definitionTags = NewCached(func() []Tag {
			lists := make([][]dictionary.Tag, 0, len(e.Definitions))
			for _, def := range e.Definitions {
				lists = append(lists, def.Tags)
			}
			return mergeTags(lists...)
		})
		d.termTags = NewCached(func() []Tag {
			lists := make([][]dictionary.Tag, 0, len(e.Headwords))
			for _, h := range e.Headwords {
				lists = append(lists, h.Tags)
			}
			return mergeTags(lists...)
		})
		d.definitions = NewCached(func() []TermDefinition { return termDefinitions(c, e) })
		d.frequencies = NewCached(func() []Frequency { return termFrequencies(e, -1) })
		d.frequencyHarmonicRank = NewCached(func() int { return TermFrequencyHarmonicRank(e.Frequencies, -1) })
		d.frequencyAverage = NewCached(func() int { return TermFrequencyAverage(e.Frequencies, -1) })
		d.furiganaSegments = NewCached(func() []japanese.Segment {
			if len(e.Headwords) == 0 {
				return nil
			}
			return japanese.DistributeFurigana(e.Headwords[0].Term, e.Headwords[0].Reading)
		})
		d.sequence = NewCached(func() int { return Sequence(e) })
	}
	return d
}

func expressions(e *dictionary.TermEntry) []Expression {
	out := make([]Expression, 0, len(e.Headwords))
	for i, h := range e.Headwords {
		sourceTerm := h.Term
		if len(h.Sources) > 0 {
			sourceTerm = h.Sources[0].DeinflectedText
		}
		out = append(out, Expression{
			SourceTerm:       sourceTerm,
			Expression:       h.Term,
			Reading:          h.Reading,
			TermTags:         convertTags(h.Tags),
			Frequencies:      termFrequencies(e, i),
			Pitches:          headwordPitches(e, i),
			FuriganaSegments: japanese.DistributeFurigana(h.Term, h.Reading),
			TermFrequency:    TermFrequencyTier(h.Tags),
			WordClasses:      h.WordClasses,
		})
	}
	return out
}

func termDefinitions(c *CommonData, e *dictionary.TermEntry) []TermDefinition {
	allTerms := uniqueTerms(e)
	allReadings := uniqueReadings(e)
	out := make([]TermDefinition, 0, len(e.Definitions))
	for _, def := range e.Definitions {
		seq := -1
		if len(def.Sequences) > 0 {
			seq = def.Sequences[0]
		}
		var terms, readings []string
		for _, i := range def.HeadwordIndices {
			if i < 0 || i >= len(e.Headwords) {
				continue
			}
			terms = appendUnique(terms, e.Headwords[i].Term)
			readings = appendUnique(readings, e.Headwords[i].Reading)
		}
		only := []string{}
		if !sameSet(terms, allTerms) {
			only = append(only, terms...)
		}
		if !sameSet(readings, allReadings) {
			only = append(only, readings...)
		}
		out = append(out, TermDefinition{
			Sequence:         seq,
			Dictionary:       def.Dictionary,
			DictionaryAlias:  def.DictionaryAlias,
			DictScopedStyles: c.DictionaryStyle(def.Dictionary),
			Glossary:         def.Entries,
			DefinitionTags:   convertTags(def.Tags),
			Only:             only,
		})
	}
	return out
}

// Sequence returns the sequence number shared by every definition of a
// primary entry. Non-primary entries, definitions without a sequence and
// definitions that disagree all yield -1.
func Sequence(e *dictionary.TermEntry) int {
	if !e.IsPrimary {
		return -1
	}
	main := -1
	for i, def := range e.Definitions {
		seq := -1
		if len(def.Sequences) > 0 {
			seq = def.Sequences[0]
		}
		if i == 0 {
			main = seq
			if main == -1 {
				break
			}
			continue
		}
		if seq != main {
			return -1
		}
	}
	return main
}

func (d *Definition) Type() string { return d.typ }

// ID is the database id of the first definition.
func (d *Definition) ID() int {
	if d.term == nil || len(d.term.Definitions) == 0 {
		return 0
	}
	return d.term.Definitions[0].ID
}

func (d *Definition) primarySource() dictionary.Source {
	if d.term == nil {
		return dictionary.Source{}
	}
	if s, ok := d.term.PrimarySource(); ok {
		return s
	}
	for _, h := range d.term.Headwords {
		if len(h.Sources) > 0 {
			return h.Sources[0]
		}
	}
	return dictionary.Source{}
}

// Source is the looked-up text after text transformations.
func (d *Definition) Source() string { return d.primarySource().TransformedText }

// RawSource is the looked-up text as it appeared.
func (d *Definition) RawSource() string { return d.primarySource().OriginalText }

// SourceTerm is the deinflected form of the looked-up text.
func (d *Definition) SourceTerm() string { return d.primarySource().DeinflectedText }

func (d *Definition) InflectionRuleChainCandidates() []dictionary.InflectionRuleChain {
	if d.term == nil {
		return nil
	}
	return d.term.InflectionRuleChainCandidates
}

func (d *Definition) Score() int {
	if d.term == nil {
		return 0
	}
	return d.term.Score
}

func (d *Definition) IsPrimary() bool { return d.term != nil && d.term.IsPrimary }

// Sequence is -1 for kanji entries and when no sequence is shared.
func (d *Definition) Sequence() int {
	if d.sequence == nil {
		return -1
	}
	return d.sequence.Get()
}

func (d *Definition) Dictionary() string {
	switch {
	case d.kanji != nil:
		return d.kanji.Dictionary
	case d.term != nil && len(d.term.Definitions) > 0:
		return d.term.Definitions[0].Dictionary
	}
	return ""
}

func (d *Definition) DictionaryAlias() string {
	switch {
	case d.kanji != nil:
		return d.kanji.DictionaryAlias
	case d.term != nil:
		return d.term.DictionaryAlias
	}
	return ""
}

func (d *Definition) DictionaryOrder() DictionaryOrder {
	switch {
	case d.kanji != nil:
		return DictionaryOrder{Index: d.kanji.DictionaryIndex}
	case d.term != nil:
		return DictionaryOrder{Index: d.term.DictionaryIndex}
	}
	return DictionaryOrder{}
}

func (d *Definition) DictionaryNames() []string { return d.dictionaryNames.Get() }

// Expression is the first headword's term.
func (d *Definition) Expression() string {
	if d.term == nil || len(d.term.Headwords) == 0 {
		return ""
	}
	return d.term.Headwords[0].Term
}

// Reading is the first headword's reading.
func (d *Definition) Reading() string {
	if d.term == nil || len(d.term.Headwords) == 0 {
		return ""
	}
	return d.term.Headwords[0].Reading
}

func (d *Definition) Expressions() []Expression {
	if d.expressions == nil {
		return nil
	}
	return d.expressions.Get()
}

func (d *Definition) Glossary() []structured.GlossaryEntry { return d.glossary.Get() }

func (d *Definition) DefinitionTags() []Tag {
	if d.definitionTags == nil {
		return nil
	}
	return d.definitionTags.Get()
}

func (d *Definition) TermTags() []Tag {
	if d.termTags == nil {
		return nil
	}
	return d.termTags.Get()
}

// Definitions lists each glossary separately, for grouped and merged
// entries.
func (d *Definition) Definitions() []TermDefinition {
	if d.definitions == nil {
		return nil
	}
	return d.definitions.Get()
}

func (d *Definition) Frequencies() []Frequency { return d.frequencies.Get() }

func (d *Definition) FrequencyHarmonicRank() int { return d.frequencyHarmonicRank.Get() }

func (d *Definition) FrequencyAverage() int { return d.frequencyAverage.Get() }

func (d *Definition) Pitches() []PitchGroup {
	if d.term == nil {
		return nil
	}
	return d.pitches.Get()
}

func (d *Definition) PhoneticTranscriptions() []TranscriptionGroup {
	if d.term == nil {
		return nil
	}
	return d.phoneticTranscriptions.Get()
}

func (d *Definition) SourceTermExactMatchCount() int {
	if d.term == nil {
		return 0
	}
	return d.term.SourceTermExactMatchCount
}

// URL is the page the lookup happened on.
func (d *Definition) URL() string { return d.common.Context().URL }

func (d *Definition) Cloze() Cloze { return d.cloze.Get() }

func (d *Definition) FuriganaSegments() []japanese.Segment {
	if d.furiganaSegments == nil {
		return nil
	}
	return d.furiganaSegments.Get()
}

// DictScopedStyles is the stylesheet of the entry's dictionary.
func (d *Definition) DictScopedStyles() string { return d.common.DictionaryStyle(d.Dictionary()) }

func (d *Definition) Character() string {
	if d.kanji == nil {
		return ""
	}
	return d.kanji.Character
}

func (d *Definition) Onyomi() []string {
	if d.kanji == nil {
		return nil
	}
	return d.kanji.Onyomi
}

func (d *Definition) Kunyomi() []string {
	if d.kanji == nil {
		return nil
	}
	return d.kanji.Kunyomi
}

// Tags are the kanji's tags.
func (d *Definition) Tags() []Tag {
	if d.kanjiTags == nil {
		return nil
	}
	return d.kanjiTags.Get()
}

func (d *Definition) Stats() map[string][]dictionary.KanjiStat {
	if d.kanji == nil {
		return nil
	}
	return d.kanji.Stats
}
