// Package structured decodes dictionary structured content (a small markup
// tree of text, ruby, tables, lists, images and links) and renders it to
// HTML.
package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind identifies which variant a Content value holds.
type Kind int

const (
	KindText Kind = iota
	KindList
	KindElement
)

// Content is a node of structured content: a text run, an ordered list of
// content, or a single element.
type Content struct {
	Kind    Kind
	Text    string
	Items   []Content
	Element *Element
}

// Text returns text content.
func Text(s string) Content { return Content{Kind: KindText, Text: s} }

// List returns list content.
func List(items ...Content) Content { return Content{Kind: KindList, Items: items} }

// Tag returns element content with the given children.
func Tag(tag string, children ...Content) Content {
	el := &Element{Tag: tag}
	if len(children) == 1 {
		el.Content = &children[0]
	} else if len(children) > 1 {
		c := List(children...)
		el.Content = &c
	}
	return Content{Kind: KindElement, Element: el}
}

func (c *Content) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = Content{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Text(s)
	case '[':
		var items []Content
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*c = Content{Kind: KindList, Items: items}
	case '{':
		var el Element
		if err := json.Unmarshal(b, &el); err != nil {
			return err
		}
		*c = Content{Kind: KindElement, Element: &el}
	default:
		return fmt.Errorf("structured content: unexpected JSON %q", truncate(b, 16))
	}
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindList:
		if c.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Items)
	case KindElement:
		return json.Marshal(c.Element)
	default:
		return json.Marshal(c.Text)
	}
}

// PlainText concatenates the text of c, skipping ruby annotations.
func (c Content) PlainText() string {
	var b bytes.Buffer
	c.writeText(&b)
	return b.String()
}

func (c Content) writeText(b *bytes.Buffer) {
	switch c.Kind {
	case KindText:
		b.WriteString(c.Text)
	case KindList:
		for _, item := range c.Items {
			item.writeText(b)
		}
	case KindElement:
		switch c.Element.Tag {
		case "rt", "rp", "img":
			return
		case "br":
			b.WriteByte('\n')
			return
		}
		if c.Element.Content != nil {
			c.Element.Content.writeText(b)
		}
	}
}

// Element is a tagged structured-content node.
type Element struct {
	Tag         string            `json:"tag,omitempty"`
	Content     *Content          `json:"content,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	Style       *Style            `json:"style,omitempty"`
	Lang        string            `json:"lang,omitempty"`
	Title       string            `json:"title,omitempty"`
	Href        string            `json:"href,omitempty"`
	Open        bool              `json:"open,omitempty"`
	ColSpan     int               `json:"colSpan,omitempty"`
	RowSpan     int               `json:"rowSpan,omitempty"`
	Path        string            `json:"path,omitempty"`
	Width       float64           `json:"width,omitempty"`
	Height      float64           `json:"height,omitempty"`
	Alt         string            `json:"alt,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Style is the subset of inline style properties structured content may
// carry.
type Style struct {
	FontStyle          string `json:"fontStyle,omitempty"`
	FontWeight         string `json:"fontWeight,omitempty"`
	FontSize           string `json:"fontSize,omitempty"`
	Color              string `json:"color,omitempty"`
	BackgroundColor    string `json:"backgroundColor,omitempty"`
	TextDecorationLine any    `json:"textDecorationLine,omitempty"`
	VerticalAlign      string `json:"verticalAlign,omitempty"`
	TextAlign          string `json:"textAlign,omitempty"`
	MarginTop          any    `json:"marginTop,omitempty"`
	MarginBottom       any    `json:"marginBottom,omitempty"`
	MarginLeft         any    `json:"marginLeft,omitempty"`
	MarginRight        any    `json:"marginRight,omitempty"`
	ListStyleType      string `json:"listStyleType,omitempty"`
}

// Glossary entry types.
const (
	GlossaryText       = "text"
	GlossaryImage      = "image"
	GlossaryStructured = "structured-content"
)

// GlossaryEntry is one item of a definition's glossary: a plain string, an
// image, or a structured-content tree.
type GlossaryEntry struct {
	Type    string
	Text    string
	Image   *Element
	Content *Content
}

func (g *GlossaryEntry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*g = GlossaryEntry{Type: GlossaryText, Text: s}
		return nil
	}

	var raw struct {
		Type    string   `json:"type"`
		Text    string   `json:"text"`
		Content *Content `json:"content"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case GlossaryText:
		*g = GlossaryEntry{Type: GlossaryText, Text: raw.Text}
	case GlossaryStructured:
		*g = GlossaryEntry{Type: GlossaryStructured, Content: raw.Content}
	case GlossaryImage:
		var el Element
		if err := json.Unmarshal(b, &el); err != nil {
			return err
		}
		el.Tag = "img"
		*g = GlossaryEntry{Type: GlossaryImage, Image: &el}
	default:
		return fmt.Errorf("glossary entry: unknown type %q", raw.Type)
	}
	return nil
}

func (g GlossaryEntry) MarshalJSON() ([]byte, error) {
	switch g.Type {
	case GlossaryStructured:
		return json.Marshal(map[string]any{"type": GlossaryStructured, "content": g.Content})
	case GlossaryImage:
		img := *g.Image
		img.Tag = ""
		b, err := json.Marshal(img)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		fields["type"] = GlossaryImage
		return json.Marshal(fields)
	default:
		return json.Marshal(g.Text)
	}
}

// PlainText returns the text of the entry; images yield their description.
func (g GlossaryEntry) PlainText() string {
	switch g.Type {
	case GlossaryStructured:
		if g.Content == nil {
			return ""
		}
		return g.Content.PlainText()
	case GlossaryImage:
		if g.Image == nil {
			return ""
		}
		return g.Image.Description
	default:
		return g.Text
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
