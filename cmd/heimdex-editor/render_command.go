package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <timeline-file>",
		Short: "Render a timeline document to a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger

			tl, err := loadTimelineFile(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				base := filepath.Base(args[0])
				output = base[:len(base)-len(filepath.Ext(base))] + ".mp4"
			}
			if err := os.MkdirAll(cfg.WorkDir(), 0o755); err != nil {
				return fmt.Errorf("failed to create work dir: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			stack, err := newRenderStack(runCtx, cfg, logger)
			if err != nil {
				return err
			}

			res, err := stack.orchestrator.Render(runCtx, tl, output, progressPrinter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d interval(s), %.2fs of video in %s\n",
				res.OutputPath, humanize.Bytes(uint64(res.Size)), res.Intervals, res.Duration, res.Elapsed.Round(10*time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <timeline>.mp4)")
	return cmd
}

// progressPrinter reports render progress on w when it is a terminal.
func progressPrinter(w io.Writer) render.ProgressFunc {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil
	}
	return func(done, total int) {
		fmt.Fprintf(w, "\rrendering %d/%d", done, total)
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
