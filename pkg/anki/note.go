package anki

import "strings"

// Duplicate scopes.
const (
	DuplicateScopeCollection = "collection"
	DuplicateScopeDeck       = "deck"
	DuplicateScopeDeckRoot   = "deck-root"
)

// Note is a note to be added to Anki.
type Note struct {
	Deck    string            `json:"deckName"`
	Model   string            `json:"modelName"`
	Fields  map[string]string `json:"fields"`
	Tags    []string          `json:"tags"`
	Options NoteOptions       `json:"options"`
	// FieldOrder lists the field names in declaration order.
	FieldOrder []string `json:"-"`
}

// NoteOptions controls AnkiConnect's duplicate handling.
type NoteOptions struct {
	AllowDuplicate        bool                  `json:"allowDuplicate"`
	DuplicateScope        string                `json:"duplicateScope"`
	DuplicateScopeOptions DuplicateScopeOptions `json:"duplicateScopeOptions"`
}

// DuplicateScopeOptions narrows the duplicate check.
type DuplicateScopeOptions struct {
	DeckName       *string `json:"deckName"`
	CheckChildren  bool    `json:"checkChildren"`
	CheckAllModels bool    `json:"checkAllModels"`
}

// FirstField returns the first declared field and its value.
func (n *Note) FirstField() (string, string, bool) {
	if len(n.FieldOrder) > 0 {
		name := n.FieldOrder[0]
		return name, n.Fields[name], true
	}
	return "", "", false
}

// RootDeckName returns the top-level deck of a "::" separated deck name.
func RootDeckName(deck string) string {
	if i := strings.Index(deck, "::"); i >= 0 {
		return deck[:i]
	}
	return deck
}

// DuplicateQuery builds the search query used to find existing notes that
// would duplicate n.
func DuplicateQuery(n *Note) string {
	var b strings.Builder
	if !n.Options.DuplicateScopeOptions.CheckAllModels {
		b.WriteString(`"note:` + escapeQuery(n.Model) + `" `)
	}
	if n.Options.DuplicateScope == DuplicateScopeDeck {
		deck := n.Deck
		if d := n.Options.DuplicateScopeOptions.DeckName; d != nil {
			deck = *d
		}
		b.WriteString(`"deck:` + escapeQuery(deck) + `" `)
		if !n.Options.DuplicateScopeOptions.CheckChildren {
			b.WriteString(`-"deck:` + escapeQuery(deck) + `::*" `)
		}
	}
	if name, value, ok := n.FirstField(); ok {
		b.WriteString(`"` + escapeQuery(name) + `:` + escapeQuery(value) + `"`)
	}
	return strings.TrimSpace(b.String())
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
