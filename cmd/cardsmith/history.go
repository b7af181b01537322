package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/cardsmith/pkg/db"
)

type historyOutput struct {
	NoteID     int64             `json:"noteId,omitempty" yaml:"noteId,omitempty"`
	Deck       string            `json:"deck" yaml:"deck"`
	Model      string            `json:"model" yaml:"model"`
	Expression string            `json:"expression" yaml:"expression"`
	Reading    string            `json:"reading,omitempty" yaml:"reading,omitempty"`
	Fields     map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	AddedAt    time.Time         `json:"addedAt" yaml:"addedAt"`
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit      int
		expression string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show notes added from cardsmith",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.openDB()
			if err != nil {
				return err
			}
			defer conn.Close()

			var rows []db.NoteHistory
			if expression != "" {
				rows, err = db.NotesByExpression(conn, expression)
			} else {
				rows, err = db.RecentNotes(conn, limit)
			}
			if err != nil {
				return err
			}
			out := make([]historyOutput, 0, len(rows))
			for _, h := range rows {
				o := historyOutput{
					NoteID:     h.NoteID,
					Deck:       h.Deck,
					Model:      h.Model,
					Expression: h.Expression,
					Reading:    h.Reading,
					AddedAt:    h.AddedAt,
				}
				if h.FieldsJSON != "" {
					if err := json.Unmarshal([]byte(h.FieldsJSON), &o.Fields); err != nil {
						a.logger.Warn("bad fields in history row", "id", h.ID, "error", err)
					}
				}
				out = append(out, o)
			}
			return a.print(cmd, out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of notes to show")
	cmd.Flags().StringVar(&expression, "expression", "", "only notes for this expression")
	return cmd
}
