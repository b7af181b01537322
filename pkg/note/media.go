package note

import (
	"context"
	"time"

	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/notedata"
	"github.com/japaniel/cardsmith/pkg/render"
)

// MediaInjector acquires the media a note's requirements ask for.
type MediaInjector interface {
	InjectMedia(ctx context.Context, req MediaRequest) (*MediaResult, error)
}

// AudioOptions selects where term audio comes from.
type AudioOptions struct {
	// Sources are URL templates tried in order. {term} and {reading} are
	// replaced with the query-escaped values.
	Sources []string `json:"sources" yaml:"sources"`
}

// ScreenshotOptions describes the screenshot to capture.
type ScreenshotOptions struct {
	Format  string `json:"format" yaml:"format"`
	Quality int    `json:"quality" yaml:"quality"`
}

// ClipboardOptions enables clipboard capture.
type ClipboardOptions struct {
	Image bool `json:"image" yaml:"image"`
	Text  bool `json:"text" yaml:"text"`
}

// MediaOptions configures media injection. Nil members disable the media
// kind.
type MediaOptions struct {
	Audio      *AudioOptions      `json:"audio,omitempty" yaml:"audio"`
	Screenshot *ScreenshotOptions `json:"screenshot,omitempty" yaml:"screenshot"`
	Clipboard  *ClipboardOptions  `json:"clipboard,omitempty" yaml:"clipboard"`
	// SelectionText is the text selected when the lookup happened.
	SelectionText string `json:"selectionText,omitempty" yaml:"-"`
}

// MediaRequest is the input of MediaInjector.InjectMedia.
type MediaRequest struct {
	Timestamp    time.Time
	Details      EntryDetails
	Requirements []render.Requirement
	Options      MediaOptions
}

// MediaResult holds the acquired media and the per-item failures.
type MediaResult struct {
	Media  notedata.Media
	Errors []apierr.Serialized
}

// EntryDetails identifies an entry for media lookup.
type EntryDetails struct {
	Type      dictionary.EntryType
	Character string
	Term      string
	Reading   string
}

// EntryDetailsForNote picks the identifying text of entry. For terms it
// prefers the headword whose primary source deinflects to the term, then to
// the reading, then the first headword.
func EntryDetailsForNote(entry dictionary.Entry) EntryDetails {
	switch e := entry.(type) {
	case *dictionary.KanjiEntry:
		return EntryDetails{Type: dictionary.EntryKanji, Character: e.Character}
	case *dictionary.TermEntry:
		d := EntryDetails{Type: dictionary.EntryTerm}
		if len(e.Headwords) == 0 {
			return d
		}
		best := -1
		bestScore := 0
		for i, h := range e.Headwords {
			for _, s := range h.Sources {
				if !s.IsPrimary {
					continue
				}
				score := 0
				switch s.DeinflectedText {
				case h.Term:
					score = 2
				case h.Reading:
					score = 1
				}
				if score > bestScore {
					best, bestScore = i, score
				}
			}
			if bestScore == 2 {
				break
			}
		}
		if best < 0 {
			best = 0
		}
		d.Term = e.Headwords[best].Term
		d.Reading = e.Headwords[best].Reading
		return d
	}
	return EntryDetails{}
}
