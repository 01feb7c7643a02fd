package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/tui"
)

func newBrowseCmd(e *env) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "browse <screen>",
		Short: "Browse a screen interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := e.screen(args[0])
			if err != nil {
				return err
			}
			initial, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
			if err != nil {
				return fmt.Errorf("parse --query: %w", err)
			}
			options, err := registry.NewOptionStore(registry.OptionStoreConfig{Client: e.client, Logger: e.logger})
			if err != nil {
				return err
			}
			model, err := tui.New(cmd.Context(), tui.Config{
				Screen:  def,
				Source:  registry.NewResource[registry.Record](e.client, def.Resource, func(ctx context.Context, resource string) { _ = options.Invalidate(ctx, resource) }),
				Options: options,
				Initial: initial,
				Logger:  e.logger,
			})
			if err != nil {
				return err
			}
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
				return err
			}
			// Print the final state so it can be passed back with --query.
			fmt.Fprintf(cmd.OutOrStdout(), "%s?%s\n", def.Name, model.Canonical().Encode())
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "initial list state as a URL query string")
	return cmd
}
