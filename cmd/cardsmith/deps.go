package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/japaniel/cardsmith/pkg/anki"
	"github.com/japaniel/cardsmith/pkg/config"
	"github.com/japaniel/cardsmith/pkg/db"
	"github.com/japaniel/cardsmith/pkg/dictionary"
	"github.com/japaniel/cardsmith/pkg/japanese"
	"github.com/japaniel/cardsmith/pkg/media"
	"github.com/japaniel/cardsmith/pkg/note"
	"github.com/japaniel/cardsmith/pkg/notedata"
	"github.com/japaniel/cardsmith/pkg/pagecontext"
	"github.com/japaniel/cardsmith/pkg/templates"
)

func (a *app) ankiClient() *anki.Client {
	c := anki.New(anki.Config{
		Server:            a.cfg.Anki.Server,
		APIKey:            a.cfg.Anki.APIKey,
		Enabled:           !a.cfg.Anki.Disabled,
		Timeout:           a.cfg.Anki.Timeout,
		HandshakeAttempts: a.cfg.Anki.HandshakeAttempts,
		HandshakeDelay:    a.cfg.Anki.HandshakeDelay,
	})
	c.Logger = a.logger
	return c
}

func (a *app) openDB() (*sql.DB, error) {
	conn, err := db.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.Database.Path, err)
	}
	return conn, nil
}

func (a *app) templateSource() (string, error) {
	if a.cfg.Templates.Path == "" {
		return templates.DefaultSource, nil
	}
	b, err := os.ReadFile(a.cfg.Templates.Path)
	if err != nil {
		return "", fmt.Errorf("read templates: %w", err)
	}
	return string(b), nil
}

func (a *app) builder(analyzer *japanese.Analyzer, injector note.MediaInjector) (*note.Builder, error) {
	engine, err := templates.New(a.cfg.Templates.CacheSize)
	if err != nil {
		return nil, err
	}
	engine.Logger = a.logger
	b := note.NewBuilder(engine)
	b.Logger = a.logger
	if analyzer != nil {
		b.Furigana = analyzer
	}
	if injector != nil {
		b.Media = injector
	}
	return b, nil
}

func (a *app) injector(store media.Store, conn *sql.DB) *media.Injector {
	return &media.Injector{
		Store:      store,
		DB:         conn,
		HTTPClient: &http.Client{Timeout: a.cfg.Media.HTTPTimeout},
		Workers:    a.cfg.Media.Workers,
		Logger:     a.logger,
	}
}

// entryOptions are the flags shared by commands that build a note.
type entryOptions struct {
	entryFile string
	reading   string
	format    string
	url       string
	sentence  string
	selection string
}

// resolveEntry loads the entry from a JSON file or looks term up in JMdict.
func (a *app) resolveEntry(ctx context.Context, term string, opts entryOptions, analyzer *japanese.Analyzer) (dictionary.Entry, error) {
	if opts.entryFile != "" {
		b, err := os.ReadFile(opts.entryFile)
		if err != nil {
			return nil, fmt.Errorf("read entry: %w", err)
		}
		return dictionary.DecodeEntry(b)
	}
	if term == "" {
		return nil, fmt.Errorf("a term or --entry is required")
	}

	path := a.cfg.Dictionary.Path
	if !a.cfg.Dictionary.SkipDownload {
		d := &dictionary.Downloader{Logger: a.logger}
		if err := d.Ensure(ctx, path); err != nil {
			return nil, fmt.Errorf("failed to ensure dictionary at %s: %w", path, err)
		}
	}
	entries, err := dictionary.LoadJMdictSimplified(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}
	ix := dictionary.NewIndex(entries)

	base := term
	if tokens := analyzer.Analyze(term); len(tokens) == 1 {
		base = tokens[0].BaseForm
	}
	found := ix.LookupTerms(term, base, opts.reading)
	if len(found) == 0 {
		return nil, fmt.Errorf("no dictionary entry for %q", term)
	}
	a.logger.Debug("dictionary lookup", "term", term, "base", base, "entries", len(found))
	return found[0], nil
}

// lookupContext builds the lookup context from --url or --sentence.
func (a *app) lookupContext(ctx context.Context, term string, opts entryOptions) (notedata.Context, error) {
	if opts.url != "" {
		f := &pagecontext.Fetcher{Logger: a.logger}
		page, err := f.Fetch(ctx, opts.url)
		if err != nil {
			return notedata.Context{}, err
		}
		return page.Context(term), nil
	}
	c := notedata.Context{Query: term, FullQuery: term}
	if opts.sentence != "" {
		c.Sentence = notedata.Sentence{Text: opts.sentence}
		if _, offset, ok := pagecontext.Locate(opts.sentence, term); ok {
			c.Sentence.Offset = offset
		}
	}
	return c, nil
}

// cardFormat picks the named format or the first one for the entry type.
func (a *app) cardFormat(name string, entry dictionary.Entry) (note.CardFormat, error) {
	formats, err := config.LoadCardFormats(a.cfg.Note.CardFormats)
	if err != nil {
		return note.CardFormat{}, err
	}
	var (
		f  config.CardFormat
		ok bool
	)
	if name != "" {
		f, ok = formats.Find(name)
	} else {
		f, ok = formats.ForType(entry.EntryType())
	}
	if !ok {
		return note.CardFormat{}, fmt.Errorf("no card format %q for %s entries", name, entry.EntryType())
	}
	if f.EntryType() != entry.EntryType() {
		return note.CardFormat{}, fmt.Errorf("card format %q is for %s entries, got a %s entry", f.Name, f.EntryType(), entry.EntryType())
	}
	return f.CardFormat, nil
}

func (a *app) details(entry dictionary.Entry, format note.CardFormat, source string, lookup notedata.Context) note.Details {
	return note.Details{
		Entry:                        entry,
		CardFormat:                   format,
		Template:                     source,
		Context:                      lookup,
		ResultOutputMode:             a.cfg.Note.ResultOutputMode,
		GlossaryLayoutMode:           a.cfg.Note.GlossaryLayoutMode,
		CompactTags:                  a.cfg.Note.CompactTags,
		DuplicateScope:               a.cfg.Note.DuplicateScope,
		DuplicateScopeCheckAllModels: a.cfg.Note.CheckAllModels,
	}
}
