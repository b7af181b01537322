package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/cardsmith/pkg/db"
	"github.com/japaniel/cardsmith/pkg/media"
)

type dictionaryOutput struct {
	Name       string    `json:"name" yaml:"name"`
	Revision   string    `json:"revision,omitempty" yaml:"revision,omitempty"`
	ImportedAt time.Time `json:"importedAt" yaml:"importedAt"`
	Media      int       `json:"media" yaml:"media"`
}

func (a *app) mediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage dictionary media",
	}

	var revision string
	importCmd := &cobra.Command{
		Use:   "import <dictionary> <dir>",
		Short: "Import a dictionary's media folder",
		Long: `Import every image and audio file below dir. Paths are stored relative
to dir so structured-content glossaries can reference them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			im := &media.Importer{
				DB:        conn,
				BatchSize: a.cfg.Media.ImportBatchSize,
				Logger:    a.logger,
			}
			stats, err := im.ImportDir(cmd.Context(), args[0], revision, args[1])
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]any{
				"dictionary": args[0],
				"files":      stats.Files,
				"skipped":    stats.Skipped,
			})
		},
	}
	importCmd.Flags().StringVar(&revision, "revision", "", "dictionary revision")

	listCmd := &cobra.Command{
		Use:   "dictionaries",
		Short: "List dictionaries with imported media",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			dicts, err := db.ListDictionaries(conn)
			if err != nil {
				return err
			}
			out := make([]dictionaryOutput, 0, len(dicts))
			for _, d := range dicts {
				n, err := db.CountDictionaryMedia(conn, d.Name)
				if err != nil {
					return err
				}
				out = append(out, dictionaryOutput{Name: d.Name, Revision: d.Revision, ImportedAt: d.ImportedAt, Media: n})
			}
			return a.print(cmd, out)
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}
