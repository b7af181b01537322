package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/japaniel/cardsmith/pkg/anki"
)

var errAnkiDisabled = errors.New("AnkiConnect is disabled in the configuration")

func (a *app) enabledClient() (*anki.Client, error) {
	c := a.ankiClient()
	if !c.Enabled() {
		return nil, errAnkiDisabled
	}
	return c, nil
}

func (a *app) decksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decks",
		Short: "List Anki deck names",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.enabledClient()
			if err != nil {
				return err
			}
			names, err := c.GetDeckNames(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, names)
		},
	}
}

func (a *app) modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List Anki note types",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.enabledClient()
			if err != nil {
				return err
			}
			names, err := c.GetModelNames(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd, names)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "fields <model>",
		Short: "List the fields of a note type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.enabledClient()
			if err != nil {
				return err
			}
			names, err := c.GetModelFieldNames(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, names)
		},
	})
	return cmd
}

func (a *app) reflectCmd() *cobra.Command {
	var permission bool
	cmd := &cobra.Command{
		Use:   "reflect [action...]",
		Short: "Show the AnkiConnect actions the server supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.enabledClient()
			if err != nil {
				return err
			}
			if permission {
				p, err := c.GetRequestPermission(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(cmd, map[string]any{
					"permission":    p.Permission,
					"requireApiKey": p.RequireAPIKey,
					"version":       p.Version,
				})
			}
			var actions []string
			if len(args) > 0 {
				actions = args
			}
			r, err := c.APIReflect(cmd.Context(), []string{"actions"}, actions)
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]any{"scopes": r.Scopes, "actions": r.Actions})
		},
	}
	cmd.Flags().BoolVar(&permission, "permission", false, "request API permission instead")
	return cmd
}
