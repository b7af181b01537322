package notedata

import (
	"strings"

	"github.com/japaniel/cardsmith/pkg/dictionary"
)

// Term frequency tiers.
const (
	TierPopular = "popular"
	TierRare    = "rare"
	TierNormal  = "normal"
)

// Tag is the template view of a dictionary tag.
type Tag struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Notes      string `json:"notes"`
	Order      int    `json:"order"`
	Score      int    `json:"score"`
	Dictionary string `json:"dictionary"`
	Redundant  bool   `json:"redundant"`
}

func convertTag(t dictionary.Tag) Tag {
	dict := ""
	if len(t.Dictionaries) > 0 {
		dict = t.Dictionaries[0]
	}
	return Tag{
		Name:       t.Name,
		Category:   t.Category,
		Notes:      strings.Join(t.Content, "\n"),
		Order:      t.Order,
		Score:      t.Score,
		Dictionary: dict,
		Redundant:  t.Redundant,
	}
}

func convertTags(tags []dictionary.Tag) []Tag {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, convertTag(t))
	}
	return out
}

// mergeTags flattens tag lists, keeping the first tag of each name.
func mergeTags(lists ...[]dictionary.Tag) []Tag {
	seen := make(map[string]bool)
	out := []Tag{}
	for _, list := range lists {
		for _, t := range list {
			if seen[t.Name] {
				continue
			}
			seen[t.Name] = true
			out = append(out, convertTag(t))
		}
	}
	return out
}

// TermFrequencyTier classifies a headword by the summed score of its tags.
func TermFrequencyTier(tags []dictionary.Tag) string {
	total := 0
	for _, t := range tags {
		total += t.Score
	}
	switch {
	case total > 0:
		return TierPopular
	case total < 0:
		return TierRare
	default:
		return TierNormal
	}
}
