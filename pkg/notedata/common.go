// Package notedata projects a dictionary entry and its lookup context into
// the read-only, lazily computed data that field templates consume.
package notedata

import (
	"github.com/google/uuid"

	"github.com/japaniel/cardsmith/pkg/dictionary"
)

// Result output modes.
const (
	OutputGroup = "group"
	OutputMerge = "merge"
	OutputSplit = "split"
)

// Glossary layout modes.
const (
	GlossaryLayoutDefault = "default"
	GlossaryLayoutCompact = "compact"
)

// BatchKey identifies one CommonData construction. Render batching groups
// requests by this key, never by comparing CommonData values.
type BatchKey string

// Sentence is the sentence a lookup happened in. Offset is the rune index of
// the looked-up text.
type Sentence struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Context describes where a lookup happened.
type Context struct {
	URL           string   `json:"url"`
	DocumentTitle string   `json:"documentTitle"`
	Query         string   `json:"query"`
	FullQuery     string   `json:"fullQuery"`
	Sentence      Sentence `json:"sentence"`
}

// MediaValue is a resolved media reference, usually a stored file name.
type MediaValue struct {
	Value string `json:"value"`
}

// TextFuriganaMedia is furigana generated for a piece of text.
type TextFuriganaMedia struct {
	Text        string     `json:"text"`
	ReadingMode string     `json:"readingMode"`
	Details     MediaValue `json:"details"`
}

// Media holds media injected before rendering. A nil field means the media
// was not requested or could not be acquired.
type Media struct {
	Audio              *MediaValue                      `json:"audio,omitempty"`
	Screenshot         *MediaValue                      `json:"screenshot,omitempty"`
	ClipboardImage     *MediaValue                      `json:"clipboardImage,omitempty"`
	ClipboardText      *MediaValue                      `json:"clipboardText,omitempty"`
	PopupSelectionText *MediaValue                      `json:"popupSelectionText,omitempty"`
	TextFurigana       []TextFuriganaMedia              `json:"textFurigana,omitempty"`
	DictionaryMedia    map[string]map[string]MediaValue `json:"dictionaryMedia,omitempty"`
}

// TextFuriganaFor returns the generated furigana for text, if any.
func (m *Media) TextFuriganaFor(text, readingMode string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, tf := range m.TextFurigana {
		if tf.Text == text && tf.ReadingMode == readingMode {
			return tf.Details.Value, true
		}
	}
	return "", false
}

// DictionaryMediaFile returns the stored file name for a dictionary media
// path, if it was injected.
func (m *Media) DictionaryMediaFile(dict, path string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.DictionaryMedia[dict][path]
	return v.Value, ok
}

// Options are the caller-supplied parts of a CommonData.
type Options struct {
	ResultOutputMode   string
	GlossaryLayoutMode string
	CompactTags        bool
	Context            Context
	Media              *Media
	// DictionaryStyles maps a dictionary name to its stylesheet.
	DictionaryStyles map[string]string
}

// CommonData is the immutable bundle shared by every field of one note
// build. Callers should build one per note and reuse it for every field.
type CommonData struct {
	key   BatchKey
	entry dictionary.Entry
	opts  Options
}

// NewCommonData wraps entry and opts and mints a fresh batch key. Two calls
// with equal arguments produce values that never batch together.
func NewCommonData(entry dictionary.Entry, opts Options) *CommonData {
	if opts.ResultOutputMode == "" {
		opts.ResultOutputMode = OutputSplit
	}
	if opts.GlossaryLayoutMode == "" {
		opts.GlossaryLayoutMode = GlossaryLayoutDefault
	}
	return &CommonData{
		key:   BatchKey(uuid.NewString()),
		entry: entry,
		opts:  opts,
	}
}

// Key returns the batch key minted at construction.
func (c *CommonData) Key() BatchKey { return c.key }

func (c *CommonData) Entry() dictionary.Entry { return c.entry }

func (c *CommonData) ResultOutputMode() string { return c.opts.ResultOutputMode }

func (c *CommonData) GlossaryLayoutMode() string { return c.opts.GlossaryLayoutMode }

func (c *CommonData) CompactTags() bool { return c.opts.CompactTags }

func (c *CommonData) Context() Context { return c.opts.Context }

func (c *CommonData) Media() *Media { return c.opts.Media }

// DictionaryStyle returns the stylesheet registered for dict.
func (c *CommonData) DictionaryStyle(dict string) string {
	return c.opts.DictionaryStyles[dict]
}
