package structured

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ImageResolver maps a dictionary media path to the src attribute used in
// rendered HTML. Returning an empty string omits the src attribute.
type ImageResolver func(dictionary, path string) string

// Renderer turns structured content into HTML fragments. Class names follow
// the gloss-sc-<tag> convention so dictionary stylesheets can target them.
type Renderer struct {
	// Dictionary is the name of the dictionary the content belongs to. It is
	// passed to Images.
	Dictionary string
	Images     ImageResolver
}

// Render renders c as an HTML fragment.
func (r *Renderer) Render(c Content) (string, error) {
	root := &html.Node{Type: html.DocumentNode}
	r.appendContent(root, c, "")
	return renderChildren(root)
}

// RenderGlossary renders glossary entries. A single entry renders inline;
// several render as an unordered list.
func (r *Renderer) RenderGlossary(entries []GlossaryEntry) (string, error) {
	root := &html.Node{Type: html.DocumentNode}
	if len(entries) == 1 {
		r.appendGlossaryEntry(root, entries[0])
		return renderChildren(root)
	}
	ul := element(atom.Ul, "glossary-list")
	root.AppendChild(ul)
	for _, e := range entries {
		li := element(atom.Li, "glossary-item")
		ul.AppendChild(li)
		r.appendGlossaryEntry(li, e)
	}
	return renderChildren(root)
}

func (r *Renderer) appendGlossaryEntry(parent *html.Node, e GlossaryEntry) {
	switch e.Type {
	case GlossaryStructured:
		if e.Content != nil {
			span := element(atom.Span, "structured-content")
			parent.AppendChild(span)
			r.appendContent(span, *e.Content, "")
		}
	case GlossaryImage:
		if e.Image != nil {
			parent.AppendChild(r.image(e.Image))
		}
	default:
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: e.Text})
	}
}

func (r *Renderer) appendContent(parent *html.Node, c Content, language string) {
	switch c.Kind {
	case KindText:
		appendText(parent, c.Text)
	case KindList:
		for _, item := range c.Items {
			r.appendContent(parent, item, language)
		}
	case KindElement:
		if n := r.elementNode(c.Element, language); n != nil {
			parent.AppendChild(n)
		}
	}
}

// appendText splits text on newlines into text and <br> nodes.
func appendText(parent *html.Node, text string) {
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			parent.AppendChild(element(atom.Br, ""))
		}
		if part != "" {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: part})
		}
	}
}

func (r *Renderer) elementNode(el *Element, language string) *html.Node {
	if el.Lang != "" {
		language = el.Lang
	}
	switch el.Tag {
	case "br":
		return element(atom.Br, "gloss-sc-br")
	case "table":
		wrapper := element(atom.Div, "gloss-sc-table-container")
		wrapper.AppendChild(r.container(el, language))
		return wrapper
	case "ruby", "rt", "rp", "thead", "tbody", "tfoot", "tr":
		return r.container(el, language)
	case "td", "th":
		n := r.container(el, language)
		if el.ColSpan > 1 {
			setAttr(n, "colspan", strconv.Itoa(el.ColSpan))
		}
		if el.RowSpan > 1 {
			setAttr(n, "rowspan", strconv.Itoa(el.RowSpan))
		}
		return n
	case "span", "div", "ol", "ul", "li", "summary":
		return r.container(el, language)
	case "details":
		n := r.container(el, language)
		if el.Open {
			setAttr(n, "open", "")
		}
		return n
	case "img":
		return r.image(el)
	case "a":
		n := r.container(el, language)
		setAttr(n, "href", el.Href)
		if strings.HasPrefix(el.Href, "?") {
			setAttr(n, "data-internal", "true")
		} else {
			setAttr(n, "target", "_blank")
			setAttr(n, "rel", "noreferrer noopener")
		}
		return n
	}
	return nil
}

func (r *Renderer) container(el *Element, language string) *html.Node {
	n := element(atom.Lookup([]byte(el.Tag)), "gloss-sc-"+el.Tag)
	n.Data = el.Tag
	if el.Lang != "" {
		setAttr(n, "lang", language)
	}
	if el.Title != "" {
		setAttr(n, "title", el.Title)
	}
	setDataAttrs(n, el.Data)
	if css := el.Style.css(); css != "" {
		setAttr(n, "style", css)
	}
	if el.Content != nil {
		r.appendContent(n, *el.Content, language)
	}
	return n
}

func (r *Renderer) image(el *Element) *html.Node {
	n := element(atom.Img, "gloss-image")
	if r.Images != nil {
		if src := r.Images(r.Dictionary, el.Path); src != "" {
			setAttr(n, "src", src)
		}
	}
	if el.Width > 0 {
		setAttr(n, "width", formatNumber(el.Width))
	}
	if el.Height > 0 {
		setAttr(n, "height", formatNumber(el.Height))
	}
	alt := el.Alt
	if alt == "" {
		alt = el.Description
	}
	if alt != "" {
		setAttr(n, "alt", alt)
	}
	if el.Title != "" {
		setAttr(n, "title", el.Title)
	}
	setDataAttrs(n, el.Data)
	return n
}

func (s *Style) css() string {
	if s == nil {
		return ""
	}
	var parts []string
	add := func(prop string, v any) {
		switch v := v.(type) {
		case nil:
		case string:
			if v != "" {
				parts = append(parts, prop+":"+v)
			}
		case float64:
			parts = append(parts, prop+":"+formatNumber(v)+"em")
		case []any:
			var ss []string
			for _, x := range v {
				ss = append(ss, fmt.Sprint(x))
			}
			parts = append(parts, prop+":"+strings.Join(ss, " "))
		default:
			parts = append(parts, prop+":"+fmt.Sprint(v))
		}
	}
	add("font-style", s.FontStyle)
	add("font-weight", s.FontWeight)
	add("font-size", s.FontSize)
	add("color", s.Color)
	add("background-color", s.BackgroundColor)
	add("text-decoration-line", s.TextDecorationLine)
	add("vertical-align", s.VerticalAlign)
	add("text-align", s.TextAlign)
	add("margin-top", s.MarginTop)
	add("margin-bottom", s.MarginBottom)
	add("margin-left", s.MarginLeft)
	add("margin-right", s.MarginRight)
	add("list-style-type", s.ListStyleType)
	return strings.Join(parts, ";")
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		setAttr(n, "class", class)
	}
	return n
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func setDataAttrs(n *html.Node, data map[string]string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		setAttr(n, "data-sc-"+k, data[k])
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func renderChildren(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
