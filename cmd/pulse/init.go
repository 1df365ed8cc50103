package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/internal/templates"
)

func (c *cli) initCmd() *cobra.Command {
	var (
		template string
		title    string
		force    bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a starter board",
		Long: `Write a pulse.yaml and items.json from a starter template.

Examples:
  pulse init
  pulse init --template publish --title Groceries ./groceries
  pulse init --list`,
		Args: cobra.MaximumNArgs(1),
		// A new board has no configuration to load yet.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if list {
				for _, name := range templates.List() {
					tmpl, _ := templates.Get(name)
					fmt.Fprintf(w, "  %-8s %s\n", name, tmpl.Description)
				}
				return nil
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}
			if config.Exists(dir) && !force {
				return errors.Newf(errors.CategoryCLI, "a pulse configuration already exists in %s", dir).
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := tmpl.Create(dir, templates.Config{Title: title}); err != nil {
				return err
			}
			for _, p := range tmpl.Paths() {
				success(w, "Wrote %s", relPath(filepath.Join(dir, p)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "todo", "Starter template")
	cmd.Flags().StringVar(&title, "title", "", "Board title")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the available templates")
	return cmd
}
