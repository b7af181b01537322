package templates

import (
	"bytes"
	"html"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/japaniel/cardsmith/pkg/japanese"
	"github.com/japaniel/cardsmith/pkg/notedata"
	"github.com/japaniel/cardsmith/pkg/render"
	"github.com/japaniel/cardsmith/pkg/structured"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldhtml.WithHardWraps(),
		goldhtml.WithXHTML(),
	),
)

// renderState collects the requirements raised by one marker render.
type renderState struct {
	media        *notedata.Media
	requirements []render.Requirement
}

func (s *renderState) require(r render.Requirement) {
	s.requirements = render.DedupeRequirements(s.requirements, r)
}

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"join":            func(sep string, items []string) string { return strings.Join(items, sep) },
		"hiragana":        japanese.ToHiragana,
		"katakana":        japanese.ToKatakana,
		"furigana":        japanese.SegmentsToHTML,
		"furiganaPlain":   japanese.SegmentsToPlain,
		"furiganaOf":      func(term, reading string) string { return japanese.SegmentsToHTML(japanese.DistributeFurigana(term, reading)) },
		"pitchCategories": pitchCategories,
		"plainGlossary":   plainGlossary,
		"markdown":        markdown,
		"escape":          html.EscapeString,
	}
}

// stateFuncs returns the helpers bound to one render. With a nil state they
// are placeholders used at parse time.
func stateFuncs(st *renderState) template.FuncMap {
	if st == nil {
		st = &renderState{}
	}
	value := func(v *notedata.MediaValue) string {
		if v == nil {
			return ""
		}
		return v.Value
	}
	return template.FuncMap{
		"audio": func() string {
			st.require(render.Requirement{Type: render.RequirementAudio})
			if st.media == nil || st.media.Audio == nil {
				return ""
			}
			return "[sound:" + st.media.Audio.Value + "]"
		},
		"screenshot": func() string {
			st.require(render.Requirement{Type: render.RequirementScreenshot})
			return imageTag(st.media, func(m *notedata.Media) *notedata.MediaValue { return m.Screenshot })
		},
		"clipboardImage": func() string {
			st.require(render.Requirement{Type: render.RequirementClipboardImage})
			return imageTag(st.media, func(m *notedata.Media) *notedata.MediaValue { return m.ClipboardImage })
		},
		"clipboardText": func() string {
			st.require(render.Requirement{Type: render.RequirementClipboardText})
			if st.media == nil {
				return ""
			}
			return value(st.media.ClipboardText)
		},
		"selectionText": func() string {
			st.require(render.Requirement{Type: render.RequirementPopupSelectionText})
			if st.media == nil {
				return ""
			}
			return value(st.media.PopupSelectionText)
		},
		"textFurigana": func(text, readingMode string) string {
			st.require(render.Requirement{Type: render.RequirementTextFurigana, Text: text, ReadingMode: readingMode})
			if v, ok := st.media.TextFuriganaFor(text, readingMode); ok {
				return v
			}
			return text
		},
		"dictionaryMedia": func(dictionary, path string) string {
			st.require(render.Requirement{Type: render.RequirementDictionaryMedia, Dictionary: dictionary, Path: path})
			v, _ := st.media.DictionaryMediaFile(dictionary, path)
			return v
		},
		"glossary": func(dictionary string, entries []structured.GlossaryEntry) (string, error) {
			r := &structured.Renderer{
				Dictionary: dictionary,
				Images: func(dict, path string) string {
					st.require(render.Requirement{Type: render.RequirementDictionaryMedia, Dictionary: dict, Path: path})
					v, _ := st.media.DictionaryMediaFile(dict, path)
					return v
				},
			}
			return r.RenderGlossary(entries)
		},
	}
}

func imageTag(m *notedata.Media, pick func(*notedata.Media) *notedata.MediaValue) string {
	if m == nil {
		return ""
	}
	v := pick(m)
	if v == nil {
		return ""
	}
	return `<img src="` + html.EscapeString(v.Value) + `" />`
}

func markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func plainGlossary(entries []structured.GlossaryEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if s := e.PlainText(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "; ")
}

// pitchCategories lists the distinct pitch categories of a term definition
// in first-seen order.
func pitchCategories(d *notedata.Definition) []string {
	wordClasses := make(map[string][]string)
	for _, e := range d.Expressions() {
		wordClasses[e.Reading] = append(wordClasses[e.Reading], e.WordClasses...)
	}
	var out []string
	seen := make(map[string]struct{})
	for _, g := range d.Pitches() {
		for _, p := range g.Pitches {
			if p.Position.Pattern != "" {
				continue
			}
			c := japanese.PitchCategory(p.Reading, p.Position.Downstep, japanese.IsVerbOrAdjective(wordClasses[p.Reading]))
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
