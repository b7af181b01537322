package dictionary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/japaniel/cardsmith/pkg/structured"
)

// EntryType discriminates dictionary entry variants.
type EntryType string

const (
	EntryTerm  EntryType = "term"
	EntryKanji EntryType = "kanji"
)

// Entry is a dictionary lookup result: either a *TermEntry or a *KanjiEntry.
type Entry interface {
	EntryType() EntryType
}

// Tag is a dictionary tag attached to headwords, definitions, pronunciations
// or kanji.
type Tag struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Order        int      `json:"order"`
	Score        int      `json:"score"`
	Content      []string `json:"content"`
	Dictionaries []string `json:"dictionaries"`
	Redundant    bool     `json:"redundant"`
}

// Source records how lookup text matched a headword.
type Source struct {
	OriginalText    string `json:"originalText"`
	TransformedText string `json:"transformedText"`
	DeinflectedText string `json:"deinflectedText"`
	MatchType       string `json:"matchType"`
	MatchSource     string `json:"matchSource"`
	IsPrimary       bool   `json:"isPrimary"`
}

// Headword is one written form and reading of a term entry.
type Headword struct {
	Index       int      `json:"index"`
	Term        string   `json:"term"`
	Reading     string   `json:"reading"`
	Sources     []Source `json:"sources"`
	Tags        []Tag    `json:"tags"`
	WordClasses []string `json:"wordClasses"`
}

// Definition is a glossary scoped to a subset of headwords.
type Definition struct {
	Index           int                        `json:"index"`
	HeadwordIndices []int                      `json:"headwordIndices"`
	Dictionary      string                     `json:"dictionary"`
	DictionaryIndex int                        `json:"dictionaryIndex"`
	DictionaryAlias string                     `json:"dictionaryAlias"`
	ID              int                        `json:"id"`
	Score           int                        `json:"score"`
	FrequencyOrder  int                        `json:"frequencyOrder"`
	Sequences       []int                      `json:"sequences"`
	IsPrimary       bool                       `json:"isPrimary"`
	Tags            []Tag                      `json:"tags"`
	Entries         []structured.GlossaryEntry `json:"entries"`
}

// Pronunciation types.
const (
	PronunciationPitchAccent = "pitch-accent"
	PronunciationPhonetic    = "phonetic-transcription"
)

// PitchPosition is either a downstep position or a high/low pattern string
// such as "LHHL".
type PitchPosition struct {
	Downstep int
	Pattern  string
}

func (p *PitchPosition) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		*p = PitchPosition{}
		return json.Unmarshal(b, &p.Pattern)
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("pitch position: %w", err)
	}
	*p = PitchPosition{Downstep: n}
	return nil
}

func (p PitchPosition) MarshalJSON() ([]byte, error) {
	if p.Pattern != "" {
		return json.Marshal(p.Pattern)
	}
	return []byte(strconv.Itoa(p.Downstep)), nil
}

// Pronunciation is a pitch-accent or phonetic-transcription record.
type Pronunciation struct {
	Type             string        `json:"type"`
	Positions        PitchPosition `json:"positions"`
	NasalPositions   []int         `json:"nasalPositions,omitempty"`
	DevoicePositions []int         `json:"devoicePositions,omitempty"`
	IPA              string        `json:"ipa,omitempty"`
	Tags             []Tag         `json:"tags"`
}

// TermPronunciation groups the pronunciations one dictionary gives for one
// headword.
type TermPronunciation struct {
	Index           int             `json:"index"`
	HeadwordIndex   int             `json:"headwordIndex"`
	Dictionary      string          `json:"dictionary"`
	DictionaryIndex int             `json:"dictionaryIndex"`
	DictionaryAlias string          `json:"dictionaryAlias"`
	Pronunciations  []Pronunciation `json:"pronunciations"`
}

// TermFrequency is a frequency rank for one headword.
type TermFrequency struct {
	Index              int     `json:"index"`
	HeadwordIndex      int     `json:"headwordIndex"`
	Dictionary         string  `json:"dictionary"`
	DictionaryIndex    int     `json:"dictionaryIndex"`
	DictionaryAlias    string  `json:"dictionaryAlias"`
	HasReading         bool    `json:"hasReading"`
	Frequency          float64 `json:"frequency"`
	DisplayValue       *string `json:"displayValue"`
	DisplayValueParsed bool    `json:"displayValueParsed"`
}

// InflectionRule names one deinflection step.
type InflectionRule struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// InflectionRuleChain is one candidate chain of rules that produced the
// lookup text from the headword.
type InflectionRuleChain struct {
	Source          string           `json:"source"`
	InflectionRules []InflectionRule `json:"inflectionRules"`
}

// TermEntry is a term lookup result.
type TermEntry struct {
	IsPrimary                     bool                  `json:"isPrimary"`
	InflectionRuleChainCandidates []InflectionRuleChain `json:"inflectionRuleChainCandidates"`
	Score                         int                   `json:"score"`
	FrequencyOrder                int                   `json:"frequencyOrder"`
	DictionaryIndex               int                   `json:"dictionaryIndex"`
	DictionaryAlias               string                `json:"dictionaryAlias"`
	SourceTermExactMatchCount     int                   `json:"sourceTermExactMatchCount"`
	MatchPrimaryReading           bool                  `json:"matchPrimaryReading"`
	MaxOriginalTextLength         int                   `json:"maxOriginalTextLength"`
	Headwords                     []Headword            `json:"headwords"`
	Definitions                   []Definition          `json:"definitions"`
	Pronunciations                []TermPronunciation   `json:"pronunciations"`
	Frequencies                   []TermFrequency       `json:"frequencies"`
}

func (*TermEntry) EntryType() EntryType { return EntryTerm }

// KanjiStat is one statistic of a kanji (stroke count, grade, index number).
type KanjiStat struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Content    string `json:"content"`
	Order      int    `json:"order"`
	Score      int    `json:"score"`
	Dictionary string `json:"dictionary"`
	Value      any    `json:"value"`
}

// KanjiFrequency is a frequency rank for a kanji.
type KanjiFrequency struct {
	Index              int     `json:"index"`
	Dictionary         string  `json:"dictionary"`
	DictionaryIndex    int     `json:"dictionaryIndex"`
	DictionaryAlias    string  `json:"dictionaryAlias"`
	Character          string  `json:"character"`
	Frequency          float64 `json:"frequency"`
	DisplayValue       *string `json:"displayValue"`
	DisplayValueParsed bool    `json:"displayValueParsed"`
}

// KanjiEntry is a kanji lookup result.
type KanjiEntry struct {
	Character       string                 `json:"character"`
	Dictionary      string                 `json:"dictionary"`
	DictionaryIndex int                    `json:"dictionaryIndex"`
	DictionaryAlias string                 `json:"dictionaryAlias"`
	Onyomi          []string               `json:"onyomi"`
	Kunyomi         []string               `json:"kunyomi"`
	Tags            []Tag                  `json:"tags"`
	Stats           map[string][]KanjiStat `json:"stats"`
	Definitions     []string               `json:"definitions"`
	Frequencies     []KanjiFrequency       `json:"frequencies"`
}

func (*KanjiEntry) EntryType() EntryType { return EntryKanji }

// DecodeEntry decodes a JSON entry, dispatching on its "type" field.
func DecodeEntry(data []byte) (Entry, error) {
	var probe struct {
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	var e Entry
	switch probe.Type {
	case EntryTerm:
		e = &TermEntry{}
	case EntryKanji:
		e = &KanjiEntry{}
	default:
		return nil, fmt.Errorf("decode entry: unknown type %q", probe.Type)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s entry: %w", probe.Type, err)
	}
	return e, nil
}

// EncodeEntry encodes e with its "type" discriminator.
func EncodeEntry(e Entry) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(e.EntryType())
	return json.Marshal(fields)
}

// PrimarySource returns the first primary source across headwords.
func (e *TermEntry) PrimarySource() (Source, bool) {
	for _, h := range e.Headwords {
		for _, s := range h.Sources {
			if s.IsPrimary {
				return s, true
			}
		}
	}
	return Source{}, false
}
