// Package dictionary holds the dictionary entry model consumed by the note
// pipeline and a JMdict (jmdict-simplified) source that produces term
// entries from it.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/japaniel/cardsmith/pkg/structured"
)

// JMdictDictionaryName is the dictionary name given to entries converted from
// JMdict.
const JMdictDictionaryName = "JMdict"

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text           string   `json:"text"`
	Common         bool     `json:"common"`
	Tags           []string `json:"tags"`
	AppliesToKanji []string `json:"appliesToKanji,omitempty"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Misc         []string      `json:"misc,omitempty"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// LoadJMdictSimplified reads a jmdict-simplified JSON file, either the full
// release object ({"words": [...]}) or a bare array of entries.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapper struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// TermEntry converts a JMdict entry into a term entry. source describes how
// the lookup text matched; it is attached to every headword whose term or
// reading equals its deinflected text.
func (e JMdictEntry) TermEntry(source Source) *TermEntry {
	var headwords []Headword
	addHeadword := func(term, reading string, common bool) {
		h := Headword{Index: len(headwords), Term: term, Reading: reading}
		if common {
			h.Tags = append(h.Tags, Tag{Name: "P", Category: "popular", Score: 10, Content: []string{"popular term"}, Dictionaries: []string{JMdictDictionaryName}})
		}
		if source.DeinflectedText == term || source.DeinflectedText == reading {
			h.Sources = []Source{source}
		}
		headwords = append(headwords, h)
	}

	if len(e.Kanji) == 0 {
		for _, kana := range e.Kana {
			addHeadword(kana.Text, kana.Text, kana.Common)
		}
	}
	for _, kanji := range e.Kanji {
		for _, kana := range e.Kana {
			if !appliesTo(kana, kanji.Text) {
				continue
			}
			addHeadword(kanji.Text, kana.Text, kanji.Common && kana.Common)
		}
	}

	seq, _ := strconv.Atoi(e.Id)
	all := make([]int, len(headwords))
	for i := range all {
		all[i] = i
	}
	var wordClasses []string
	var definitions []Definition
	for i, s := range e.Sense {
		var glossary []structured.GlossaryEntry
		for _, g := range s.Gloss {
			glossary = append(glossary, structured.GlossaryEntry{Type: structured.GlossaryText, Text: g.Text})
		}
		var tags []Tag
		for _, pos := range s.PartOfSpeech {
			tags = append(tags, Tag{Name: pos, Category: "partOfSpeech", Dictionaries: []string{JMdictDictionaryName}})
			wordClasses = appendUnique(wordClasses, pos)
		}
		for _, misc := range s.Misc {
			tags = append(tags, Tag{Name: misc, Category: "misc", Dictionaries: []string{JMdictDictionaryName}})
		}
		definitions = append(definitions, Definition{
			Index:           i,
			HeadwordIndices: all,
			Dictionary:      JMdictDictionaryName,
			ID:              seq*100 + i,
			Sequences:       []int{seq},
			IsPrimary:       true,
			Tags:            tags,
			Entries:         glossary,
		})
	}
	for i := range headwords {
		headwords[i].WordClasses = wordClasses
	}

	return &TermEntry{
		IsPrimary:             true,
		DictionaryAlias:       JMdictDictionaryName,
		MatchPrimaryReading:   true,
		MaxOriginalTextLength: len([]rune(source.OriginalText)),
		Headwords:             headwords,
		Definitions:           definitions,
	}
}

func appliesTo(kana JMdictElement, kanji string) bool {
	if len(kana.AppliesToKanji) == 0 {
		return true
	}
	for _, k := range kana.AppliesToKanji {
		if k == "*" || k == kanji {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
