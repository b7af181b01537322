package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/cardsmith/pkg/anki"
	"github.com/japaniel/cardsmith/pkg/db"
	"github.com/japaniel/cardsmith/pkg/japanese"
	"github.com/japaniel/cardsmith/pkg/note"
	"github.com/japaniel/cardsmith/pkg/render"
)

type fieldOutput struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type noteOutput struct {
	NoteID       *int64               `json:"noteId,omitempty" yaml:"noteId,omitempty"`
	Deck         string               `json:"deck" yaml:"deck"`
	Model        string               `json:"model" yaml:"model"`
	Fields       []fieldOutput        `json:"fields" yaml:"fields"`
	Tags         []string             `json:"tags" yaml:"tags"`
	Requirements []render.Requirement `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Duplicates   []int64              `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Errors       []string             `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newNoteOutput(res *note.Result) noteOutput {
	out := noteOutput{
		Deck:         res.Note.Deck,
		Model:        res.Note.Model,
		Tags:         res.Note.Tags,
		Requirements: res.Requirements,
	}
	for _, name := range res.Note.FieldOrder {
		out.Fields = append(out.Fields, fieldOutput{Name: name, Value: res.Note.Fields[name]})
	}
	for _, err := range res.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

func bindEntryFlags(cmd *cobra.Command, opts *entryOptions) {
	cmd.Flags().StringVar(&opts.entryFile, "entry", "", "dictionary entry JSON file instead of a JMdict lookup")
	cmd.Flags().StringVar(&opts.reading, "reading", "", "only match entries with this kana reading")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "card format name (default: first format for the entry type)")
	cmd.Flags().StringVar(&opts.url, "url", "", "page the term was found on; its title and sentence fill the context")
	cmd.Flags().StringVar(&opts.sentence, "sentence", "", "sentence the term was found in")
	cmd.Flags().StringVar(&opts.selection, "selection", "", "selected text for {popup-selection-text}")
}

// prepared is everything a note build needs besides media.
type prepared struct {
	details  note.Details
	analyzer *japanese.Analyzer
}

func (a *app) prepare(ctx context.Context, args []string, opts entryOptions) (*prepared, error) {
	analyzer, err := japanese.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	term := strings.Join(args, " ")
	entry, err := a.resolveEntry(ctx, term, opts, analyzer)
	if err != nil {
		return nil, err
	}
	if term == "" {
		d := note.EntryDetailsForNote(entry)
		term = d.Term + d.Character
	}
	format, err := a.cardFormat(opts.format, entry)
	if err != nil {
		return nil, err
	}
	source, err := a.templateSource()
	if err != nil {
		return nil, err
	}
	lookup, err := a.lookupContext(ctx, term, opts)
	if err != nil {
		return nil, err
	}
	return &prepared{details: a.details(entry, format, source, lookup), analyzer: analyzer}, nil
}

func (a *app) noteCmd() *cobra.Command {
	var opts entryOptions
	cmd := &cobra.Command{
		Use:   "note [term]",
		Short: "Render a note without adding it",
		Long: `Render every field of a card format for a term and print the note.

Media is not fetched; the requirements list shows what adding the note
would acquire.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.prepare(ctx, args, opts)
			if err != nil {
				return err
			}
			b, err := a.builder(p.analyzer, nil)
			if err != nil {
				return err
			}
			res, err := b.CreateNote(ctx, p.details)
			if err != nil {
				return err
			}
			// second pass for generated furigana the first pass asked for
			if len(res.Requirements) > 0 {
				p.details.Requirements = res.Requirements
				if res, err = b.CreateNote(ctx, p.details); err != nil {
					return err
				}
			}
			return a.print(cmd, newNoteOutput(res))
		},
	}
	bindEntryFlags(cmd, &opts)
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var (
		opts           entryOptions
		allowDuplicate bool
	)
	cmd := &cobra.Command{
		Use:   "add [term]",
		Short: "Render a note, store its media and add it to Anki",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := a.ankiClient()
			if !client.Enabled() {
				return errAnkiDisabled
			}
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			p, err := a.prepare(ctx, args, opts)
			if err != nil {
				return err
			}
			b, err := a.builder(p.analyzer, a.injector(client, conn))
			if err != nil {
				return err
			}

			// the first pass discovers which media the fields reference
			res, err := b.CreateNote(ctx, p.details)
			if err != nil {
				return err
			}
			if len(res.Requirements) > 0 {
				p.details.Requirements = res.Requirements
				p.details.MediaOptions = a.mediaOptions(opts)
				if res, err = b.CreateNote(ctx, p.details); err != nil {
					return err
				}
			}
			out := newNoteOutput(res)

			dups, err := client.FindNoteIDs(ctx, []*anki.Note{res.Note})
			if err != nil {
				return err
			}
			if len(dups) > 0 && len(dups[0]) > 0 {
				out.Duplicates = dups[0]
				if !allowDuplicate {
					_ = a.print(cmd, out)
					return fmt.Errorf("note already exists (%d matching notes); use --allow-duplicate to add it anyway", len(dups[0]))
				}
			}

			id, err := client.AddNote(ctx, res.Note)
			if err != nil {
				return err
			}
			if id == nil {
				return errors.New("anki did not return a note id")
			}
			out.NoteID = id

			if err := recordHistory(conn, *id, p.details, res.Note); err != nil {
				a.logger.Warn("failed to record note history", "noteId", *id, "error", err)
			}
			a.logger.Info("note added", "noteId", *id, "deck", res.Note.Deck, "errors", len(res.Errors))
			return a.print(cmd, out)
		},
	}
	bindEntryFlags(cmd, &opts)
	cmd.Flags().BoolVar(&allowDuplicate, "allow-duplicate", false, "add the note even if a matching note exists")
	return cmd
}

func (a *app) mediaOptions(opts entryOptions) *note.MediaOptions {
	m := &note.MediaOptions{SelectionText: opts.selection}
	if len(a.cfg.Media.AudioSources) > 0 {
		m.Audio = &note.AudioOptions{Sources: a.cfg.Media.AudioSources}
	}
	return m
}

func recordHistory(conn db.DBExecutor, id int64, d note.Details, n *anki.Note) error {
	fields, err := json.Marshal(n.Fields)
	if err != nil {
		return err
	}
	ed := note.EntryDetailsForNote(d.Entry)
	expression := ed.Term
	if expression == "" {
		expression = ed.Character
	}
	_, err = db.RecordNote(conn, db.NoteHistory{
		NoteID:     id,
		Deck:       n.Deck,
		Model:      n.Model,
		Expression: expression,
		Reading:    ed.Reading,
		FieldsJSON: string(fields),
	})
	return err
}
