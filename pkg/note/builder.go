// Package note assembles Anki notes from dictionary entries and card
// formats.
package note

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/japaniel/cardsmith/pkg/anki"
	"github.com/japaniel/cardsmith/pkg/apierr"
	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/notedata"
	"github.com/japaniel/cardsmith/pkg/render"
)

// Invalid input errors returned by CreateNote.
var (
	ErrMissingEntry      = errors.New("note: missing dictionary entry")
	ErrMissingCardFormat = errors.New("note: card format needs a deck and a model")
)

// FieldTemplate is one field of a card format. Value holds {marker}
// placeholders.
type FieldTemplate struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// CardFormat describes the note produced for one kind of card.
type CardFormat struct {
	Name   string          `json:"name" yaml:"name"`
	Deck   string          `json:"deck" yaml:"deck"`
	Model  string          `json:"model" yaml:"model"`
	Fields []FieldTemplate `json:"fields" yaml:"fields"`
	Tags   []string        `json:"tags" yaml:"tags"`
}

// Details is the input of CreateNote.
type Details struct {
	Entry      dictionary.Entry
	CardFormat CardFormat
	// Template is the template source markers are rendered from.
	Template string
	Context  notedata.Context

	ResultOutputMode   string
	GlossaryLayoutMode string
	CompactTags        bool
	DictionaryStyles   map[string]string

	// DuplicateScope is collection, deck or deck-root.
	DuplicateScope               string
	DuplicateScopeCheckAllModels bool

	// Requirements from an earlier render pass. Media is injected only when
	// both Requirements and MediaOptions are set.
	Requirements []render.Requirement
	MediaOptions *MediaOptions
}

// Result is the output of CreateNote.
type Result struct {
	Note         *anki.Note
	Errors       []error
	Requirements []render.Requirement
}

// FuriganaGenerator produces ruby markup for free text.
type FuriganaGenerator interface {
	TextFurigana(ctx context.Context, text, readingMode string) (string, error)
}

// Builder creates notes. One Builder shares a render batcher across every
// note it builds.
type Builder struct {
	renderer render.Renderer
	batcher  *render.Batcher

	Media    MediaInjector
	Furigana FuriganaGenerator
	Logger   *slog.Logger
}

// NewBuilder creates a Builder rendering through r.
func NewBuilder(r render.Renderer) *Builder {
	return &Builder{renderer: r, batcher: render.NewBatcher(r)}
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// CreateNote renders every field of the card format and assembles the note.
// Field and media failures are reported in Result.Errors; the returned error
// is non-nil only for invalid input.
func (b *Builder) CreateNote(ctx context.Context, d Details) (*Result, error) {
	if d.Entry == nil {
		return nil, ErrMissingEntry
	}
	if d.CardFormat.Deck == "" || d.CardFormat.Model == "" {
		return nil, ErrMissingCardFormat
	}

	scope, scopeOptions := duplicateOptions(d)

	var errs []error
	media, mediaErrs := b.injectMedia(ctx, d)
	errs = append(errs, mediaErrs...)

	common := notedata.NewCommonData(d.Entry, notedata.Options{
		ResultOutputMode:   d.ResultOutputMode,
		GlossaryLayoutMode: d.GlossaryLayoutMode,
		CompactTags:        d.CompactTags,
		Context:            d.Context,
		Media:              media,
		DictionaryStyles:   d.DictionaryStyles,
	})

	// every marker of every field joins the batch before any is awaited
	pending := make([]*render.PendingField, len(d.CardFormat.Fields))
	for i, f := range d.CardFormat.Fields {
		pending[i] = b.batcher.PrepareField(d.Template, f.Value, common)
	}

	results := make([]render.FieldResult, len(pending))
	var g errgroup.Group
	for i, p := range pending {
		g.Go(func() error {
			results[i] = p.Resolve(ctx)
			return nil
		})
	}
	_ = g.Wait()

	n := &anki.Note{
		Deck:       d.CardFormat.Deck,
		Model:      d.CardFormat.Model,
		Fields:     make(map[string]string, len(results)),
		FieldOrder: make([]string, 0, len(results)),
		Tags:       append([]string{}, d.CardFormat.Tags...),
		Options: anki.NoteOptions{
			AllowDuplicate:        true,
			DuplicateScope:        scope,
			DuplicateScopeOptions: scopeOptions,
		},
	}
	var reqs []render.Requirement
	for i, f := range d.CardFormat.Fields {
		n.Fields[f.Name] = results[i].Value
		n.FieldOrder = append(n.FieldOrder, f.Name)
		errs = append(errs, results[i].Errors...)
		reqs = render.DedupeRequirements(reqs, results[i].Requirements...)
	}
	if reqs == nil {
		reqs = []render.Requirement{}
	}

	b.logger().Debug("note created",
		"deck", n.Deck,
		"model", n.Model,
		"fields", len(n.Fields),
		"errors", len(errs),
		"requirements", len(reqs))
	return &Result{Note: n, Errors: errs, Requirements: reqs}, nil
}

func duplicateOptions(d Details) (string, anki.DuplicateScopeOptions) {
	scope := d.DuplicateScope
	if scope == "" {
		scope = anki.DuplicateScopeCollection
	}
	opts := anki.DuplicateScopeOptions{CheckAllModels: d.DuplicateScopeCheckAllModels}
	if scope == anki.DuplicateScopeDeckRoot {
		scope = anki.DuplicateScopeDeck
		root := anki.RootDeckName(d.CardFormat.Deck)
		opts.DeckName = &root
		opts.CheckChildren = true
	}
	return scope, opts
}

func (b *Builder) injectMedia(ctx context.Context, d Details) (*notedata.Media, []error) {
	var (
		media *notedata.Media
		errs  []error
	)
	if len(d.Requirements) > 0 && d.MediaOptions != nil && b.Media != nil {
		res, err := b.Media.InjectMedia(ctx, MediaRequest{
			Timestamp:    time.Now(),
			Details:      EntryDetailsForNote(d.Entry),
			Requirements: d.Requirements,
			Options:      *d.MediaOptions,
		})
		switch {
		case err != nil:
			errs = append(errs, err)
		case res != nil:
			media = &res.Media
			for _, e := range res.Errors {
				errs = append(errs, apierr.Deserialize(e))
			}
		}
	}

	if b.Furigana == nil {
		return media, errs
	}
	seen := make(map[string]struct{})
	for _, r := range d.Requirements {
		if r.Type != render.RequirementTextFurigana {
			continue
		}
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		html, err := b.Furigana.TextFurigana(ctx, r.Text, r.ReadingMode)
		if err != nil {
			errs = append(errs, apierr.Wrap(err, "Text furigana failed").With("text", r.Text))
			continue
		}
		if media == nil {
			media = &notedata.Media{}
		}
		media.TextFurigana = append(media.TextFurigana, notedata.TextFuriganaMedia{
			Text:        r.Text,
			ReadingMode: r.ReadingMode,
			Details:     notedata.MediaValue{Value: html},
		})
	}
	return media, errs
}

// RenderingDataDetails is the input of GetRenderingData.
type RenderingDataDetails struct {
	Entry              dictionary.Entry
	Marker             string
	Context            notedata.Context
	ResultOutputMode   string
	GlossaryLayoutMode string
	CompactTags        bool
	Media              *notedata.Media
	DictionaryStyles   map[string]string
}

// GetRenderingData returns the data a marker would be rendered with.
func (b *Builder) GetRenderingData(ctx context.Context, d RenderingDataDetails) (*notedata.NoteData, error) {
	if d.Entry == nil {
		return nil, ErrMissingEntry
	}
	common := notedata.NewCommonData(d.Entry, notedata.Options{
		ResultOutputMode:   d.ResultOutputMode,
		GlossaryLayoutMode: d.GlossaryLayoutMode,
		CompactTags:        d.CompactTags,
		Context:            d.Context,
		Media:              d.Media,
		DictionaryStyles:   d.DictionaryStyles,
	})
	return b.renderer.GetModifiedData(ctx, d.Marker, common, render.DataTypeAnkiNote)
}
