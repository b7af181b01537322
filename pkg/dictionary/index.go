package dictionary

import (
	"sort"
	"sync"

	"github.com/japaniel/cardsmith/pkg/japanese"
)

// Index is an in-memory lookup table over JMdict entries keyed by every
// kanji and kana form.
type Index struct {
	// index is read concurrently by lookups; mu guards it for Add.
	mu    sync.RWMutex
	index map[string][]JMdictEntry
}

// NewIndex builds an index of the provided entries.
func NewIndex(entries []JMdictEntry) *Index {
	ix := &Index{index: make(map[string][]JMdictEntry)}
	ix.Add(entries...)
	return ix
}

// Add indexes more entries.
func (ix *Index) Add(entries ...JMdictEntry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range entries {
		for _, k := range e.Kanji {
			ix.index[k.Text] = append(ix.index[k.Text], e)
		}
		for _, k := range e.Kana {
			ix.index[k.Text] = append(ix.index[k.Text], e)
		}
	}
}

// Len returns the number of indexed forms.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.index)
}

// Lookup finds entries matching word (surface form) or lemma (base form). When
// pronunciation is non-empty, only entries with a matching kana reading are
// returned. Results are sorted by entry id.
func (ix *Index) Lookup(word, lemma, pronunciation string) []JMdictEntry {
	candidates := make(map[string]JMdictEntry)

	search := func(term string) {
		if term == "" {
			return
		}
		ix.mu.RLock()
		entries, ok := ix.index[term]
		ix.mu.RUnlock()
		if ok {
			for _, e := range entries {
				candidates[e.Id] = e
			}
		}
	}

	search(word)
	search(lemma)

	var results []JMdictEntry
	for _, entry := range candidates {
		if isMatch(entry, word, lemma, pronunciation) {
			results = append(results, entry)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Id < results[j].Id
	})
	return results
}

// LookupTerms resolves lookup text to term entries. The text is analyzed into
// its base form so inflected input (会わせて) finds the dictionary form; the
// surface text becomes the primary source's original text.
func (ix *Index) LookupTerms(text, baseForm, reading string) []*TermEntry {
	matches := ix.Lookup(text, baseForm, reading)
	deinflected := baseForm
	if deinflected == "" {
		deinflected = text
	}
	out := make([]*TermEntry, 0, len(matches))
	for _, m := range matches {
		src := Source{
			OriginalText:    text,
			TransformedText: text,
			DeinflectedText: deinflected,
			MatchType:       "exact",
			MatchSource:     "term",
			IsPrimary:       true,
		}
		if !containsForm(m.Kanji, deinflected) && containsForm(m.Kana, deinflected) {
			src.MatchSource = "reading"
		}
		out = append(out, m.TermEntry(src))
	}
	return out
}

func containsForm(elements []JMdictElement, text string) bool {
	for _, e := range elements {
		if e.Text == text {
			return true
		}
	}
	return false
}

func isMatch(entry JMdictEntry, word, lemma, pronunciation string) bool {
	// A match needs the text among the entry's forms and, when known, the
	// reading among its kana.
	if !containsForm(entry.Kanji, word) && !containsForm(entry.Kanji, lemma) &&
		!containsForm(entry.Kana, word) && !containsForm(entry.Kana, lemma) {
		return false
	}

	if pronunciation == "" {
		return true
	}

	normalizedPron := japanese.ToHiragana(pronunciation)
	for _, k := range entry.Kana {
		if japanese.ToHiragana(k.Text) == normalizedPron {
			return true
		}
	}
	return false
}
