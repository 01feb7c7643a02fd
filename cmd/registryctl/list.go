package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/view"
)

func newScreensCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "screens",
		Short: "List the configured screens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, def := range e.catalog.All() {
				levels := make([]string, 0, len(def.Levels))
				for _, l := range def.Levels {
					levels = append(levels, l.Key)
				}
				fmt.Fprintf(out, "%-18s %-20s %s\n", def.Name, def.Title, strings.Join(levels, " > "))
			}
			return nil
		},
	}
}

func newListCmd(e *env) *cobra.Command {
	var query string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "Print one page of a screen",
		Example: `  registryctl list villages --query 'state=29&district=4&sort=population&dir=desc'
  registryctl list reviews --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := e.screen(args[0])
			if err != nil {
				return err
			}
			initial, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
			if err != nil {
				return fmt.Errorf("parse --query: %w", err)
			}
			ctrl, err := listctl.New(listctl.Config[registry.Record]{
				Screen:  def.Screen,
				Source:  registry.NewResource[registry.Record](e.client, def.Resource, nil),
				Logger:  e.logger,
				Initial: initial,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()
			ctx := cmd.Context()
			if err := ctrl.Settle(ctx, ctrl.Init(ctx)); err != nil {
				return err
			}
			if msg := ctrl.Err(); msg != "" {
				return fmt.Errorf("%s", msg)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), ctrl)
			}
			writeTable(cmd.OutOrStdout(), def, ctrl)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "list state as a URL query string")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, ctrl *listctl.Controller[registry.Record]) error {
	p := ctrl.Pagination()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	items := ctrl.Items()
	if items == nil {
		items = []registry.Record{}
	}
	return enc.Encode(map[string]any{
		"query":       ctrl.Values().Encode(),
		"page":        p.Page,
		"page_size":   p.PageSize,
		"total":       p.Total,
		"total_pages": p.TotalPages,
		"items":       items,
	})
}

func writeTable(w io.Writer, def *screens.Definition, ctrl *listctl.Controller[registry.Record]) {
	q := ctrl.Query()
	headers := make([]string, 0, len(def.Columns))
	for _, col := range def.Columns {
		label := col.Label
		if col.Sort != "" {
			if arrow := view.SortArrow(listctl.Indicator(q, col.Sort).String()); arrow != "" {
				label += " " + arrow
			}
		}
		headers = append(headers, label)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
	for _, rec := range ctrl.Items() {
		row := make([]string, 0, len(def.Columns))
		for _, col := range def.Columns {
			text := rec.Text(col.Key)
			switch col.Format {
			case screens.FormatNumber:
				text = view.FormatNumber(text)
			case screens.FormatRating:
				text = view.Stars(text)
			}
			row = append(row, text)
		}
		t.Row(row...)
	}
	p := ctrl.Pagination()
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "page %d of %d, %d records", p.Page, max(p.TotalPages, 1), p.Total)
	if encoded := ctrl.Values().Encode(); encoded != "" {
		fmt.Fprintf(w, " (%s)", encoded)
	}
	fmt.Fprintln(w)
}
