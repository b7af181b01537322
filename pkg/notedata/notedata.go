package notedata

import (
	"strings"

	"github.com/japaniel/cardsmith/pkg/dictionary"
)

// Modes derived from the entry.
const (
	ModeTermKanji = "term-kanji"
	ModeTermKana  = "term-kana"
	ModeKanji     = "kanji"
)

// PublicContext is the part of the lookup context exposed to templates.
type PublicContext struct {
	Query     string   `json:"query"`
	FullQuery string   `json:"fullQuery"`
	Document  Document `json:"document"`
}

// Document describes the page a lookup happened on.
type Document struct {
	Title string `json:"title"`
}

// NoteData is the read-only view of a CommonData that templates render. Each
// derived value is computed at most once, on first access.
type NoteData struct {
	marker string
	common *CommonData

	definition             *Cached[*Definition]
	uniqueExpressions      *Cached[[]string]
	uniqueReadings         *Cached[[]string]
	pitches                *Cached[[]PitchGroup]
	pitchCount             *Cached[int]
	phoneticTranscriptions *Cached[[]TranscriptionGroup]
	context                *Cached[PublicContext]
	mode                   *Cached[string]
}

// New projects c for the template marker. It never mutates c or its entry.
func New(marker string, c *CommonData) *NoteData {
	n := &NoteData{marker: marker, common: c}
	term, _ := c.Entry().(*dictionary.TermEntry)

	n.uniqueExpressions = NewCached(func() []string {
		if term == nil {
			return []string{}
		}
		return uniqueTerms(term)
	})
	n.uniqueReadings = NewCached(func() []string {
		if term == nil {
			return []string{}
		}
		return uniqueReadings(term)
	})
	n.pitches = NewCached(func() []PitchGroup {
		if term == nil {
			return []PitchGroup{}
		}
		return pitchGroups(term)
	})
	n.pitchCount = NewCached(func() int { return pitchCount(n.pitches.Get()) })
	n.phoneticTranscriptions = NewCached(func() []TranscriptionGroup {
		if term == nil {
			return []TranscriptionGroup{}
		}
		return transcriptionGroups(term)
	})
	n.context = NewCached(func() PublicContext {
		ctx := c.Context()
		return PublicContext{
			Query:     ctx.Query,
			FullQuery: ctx.FullQuery,
			Document:  Document{Title: ctx.DocumentTitle},
		}
	})
	n.definition = NewCached(func() *Definition {
		return newDefinition(c, n.pitches, n.phoneticTranscriptions)
	})
	n.mode = NewCached(func() string { return entryMode(c.Entry()) })
	return n
}

func entryMode(entry dictionary.Entry) string {
	switch e := entry.(type) {
	case *dictionary.KanjiEntry:
		return ModeKanji
	case *dictionary.TermEntry:
		if len(e.Headwords) == 0 {
			return ModeTermKanji
		}
		h := e.Headwords[0]
		if h.Reading == "" || h.Reading == h.Term {
			return ModeTermKana
		}
		return ModeTermKanji
	}
	return ""
}

// Marker is the template marker being rendered.
func (n *NoteData) Marker() string { return n.marker }

// Common returns the wrapped CommonData.
func (n *NoteData) Common() *CommonData { return n.common }

func (n *NoteData) DictionaryEntry() dictionary.Entry { return n.common.Entry() }

func (n *NoteData) Definition() *Definition { return n.definition.Get() }

func (n *NoteData) GlossaryLayoutMode() string { return n.common.GlossaryLayoutMode() }

func (n *NoteData) CompactTags() bool { return n.common.CompactTags() }

func (n *NoteData) Group() bool { return n.common.ResultOutputMode() == OutputGroup }

func (n *NoteData) Merge() bool { return n.common.ResultOutputMode() == OutputMerge }

func (n *NoteData) ModeTermKanji() bool { return n.mode.Get() == ModeTermKanji }

func (n *NoteData) ModeTermKana() bool { return n.mode.Get() == ModeTermKana }

func (n *NoteData) ModeKanji() bool { return n.mode.Get() == ModeKanji }

func (n *NoteData) CompactGlossaries() bool {
	return strings.HasPrefix(n.common.GlossaryLayoutMode(), GlossaryLayoutCompact)
}

func (n *NoteData) UniqueExpressions() []string { return n.uniqueExpressions.Get() }

func (n *NoteData) UniqueReadings() []string { return n.uniqueReadings.Get() }

func (n *NoteData) Pitches() []PitchGroup { return n.pitches.Get() }

func (n *NoteData) PitchCount() int { return n.pitchCount.Get() }

func (n *NoteData) PhoneticTranscriptions() []TranscriptionGroup {
	return n.phoneticTranscriptions.Get()
}

func (n *NoteData) Context() PublicContext { return n.context.Get() }

func (n *NoteData) Media() *Media { return n.common.Media() }

func uniqueTerms(e *dictionary.TermEntry) []string {
	out := []string{}
	for _, h := range e.Headwords {
		out = appendUnique(out, h.Term)
	}
	return out
}

func uniqueReadings(e *dictionary.TermEntry) []string {
	out := []string{}
	for _, h := range e.Headwords {
		out = appendUnique(out, h.Reading)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
