package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/filters"
)

func newFiltersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the filter kinds and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderFilterTable(filters.NewCatalog().List()))
			return nil
		},
	}
}

func renderFilterTable(defs []*filters.Definition) string {
	sorted := append([]*filters.Definition(nil), defs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Kind < sorted[j].Kind })

	rows := make([][]string, 0, len(sorted))
	for _, d := range sorted {
		rows = append(rows, []string{string(d.Kind), describeParams(d.Params), d.Description})
	}
	return renderTable([]string{"Kind", "Parameters", "Description"}, rows, nil)
}

func describeParams(params []filters.ParamSpec) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		switch {
		case len(p.Choices) > 0:
			parts[i] = fmt.Sprintf("%s=%s {%s}", p.Name, p.Default, strings.Join(p.Choices, "|"))
		case p.Type == filters.TypeNumber:
			parts[i] = fmt.Sprintf("%s=%s [%g..%g]", p.Name, p.Default, p.Min, p.Max)
		default:
			parts[i] = fmt.Sprintf("%s=%s", p.Name, p.Default)
		}
	}
	return strings.Join(parts, ", ")
}
