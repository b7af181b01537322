package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/cardsmith/pkg/applog"
	"github.com/japaniel/cardsmith/pkg/config"
)

// app carries the state shared by subcommands once the root has loaded the
// configuration.
type app struct {
	cfgFile string
	output  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "cardsmith",
		Short: "Build Anki notes from Japanese dictionary entries",
		Long: `Cardsmith turns dictionary entries into Anki notes.

Each field of a card format is a template with {marker} placeholders.
Markers are rendered in one batch per note, media the rendered fields
ask for is fetched and stored in Anki, and the note is added through
AnkiConnect.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = applog.New(cfg.Log)
			return nil
		},
	}

	root.PersistentFlags().StringVar(
		&a.cfgFile, "config", "", "config file (default: $CONFIG_PATH or ./cardsmith.yaml)",
	)
	root.PersistentFlags().StringVarP(
		&a.output, "output", "o", "yaml", "output format: yaml or json",
	)

	root.AddCommand(
		a.noteCmd(),
		a.addCmd(),
		a.decksCmd(),
		a.modelsCmd(),
		a.reflectCmd(),
		a.furiganaCmd(),
		a.mediaCmd(),
		a.historyCmd(),
		versionCmd(),
	)
	return root
}

// print writes v to the command output in the selected format.
func (a *app) print(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()
	switch a.output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}
}
