package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/render"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan <timeline-file>",
		Short: "Show the render intervals of a timeline document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tl, err := loadTimelineFile(args[0])
			if err != nil {
				return err
			}
			width, height := cfg.CanvasSize()
			plan := render.NewPlan(tl, width, height)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			fmt.Fprintf(out, "Canvas %dx%d, duration %ss, %d interval(s)\n",
				plan.Width, plan.Height, formatSeconds(plan.Duration), len(plan.Intervals))
			fmt.Fprintln(out, renderPlanTable(plan))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the plan as JSON")
	return cmd
}

func renderPlanTable(plan *render.Plan) string {
	rows := make([][]string, 0, len(plan.Intervals))
	for _, iv := range plan.Intervals {
		rows = append(rows, []string{
			strconv.Itoa(iv.Index),
			formatSeconds(iv.Start),
			formatSeconds(iv.End),
			formatSeconds(iv.End - iv.Start),
			describeElements(iv.Elements),
		})
	}
	return renderTable(
		[]string{"#", "Start", "End", "Length", "Visible"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func describeElements(elements []render.Element) string {
	if len(elements) == 0 {
		return "(black)"
	}
	parts := make([]string, len(elements))
	for i, e := range elements {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		parts[i] = fmt.Sprintf("L%d %s %s", e.Layer, e.Kind, id)
	}
	return strings.Join(parts, ", ")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
