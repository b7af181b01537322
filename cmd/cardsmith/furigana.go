package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/cardsmith/pkg/japanese"
)

func (a *app) furiganaCmd() *cobra.Command {
	var (
		mode  string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "furigana <text>",
		Short: "Annotate Japanese text with readings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := japanese.NewAnalyzer()
			if err != nil {
				return fmt.Errorf("failed to create analyzer: %w", err)
			}
			text := strings.Join(args, " ")
			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), japanese.SegmentsToPlain(analyzer.Furigana(text, mode)))
				return nil
			}
			html, err := analyzer.TextFurigana(cmd.Context(), text, mode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), html)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "hiragana", "reading script: hiragana or katakana")
	cmd.Flags().BoolVar(&plain, "plain", false, "print kanji[reading] instead of ruby markup")
	return cmd
}
