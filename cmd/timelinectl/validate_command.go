package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

var errTimelineInvalid = errors.New("timeline is invalid")

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var duration int

	cmd := &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate an exported timeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			doc, err := readTimelineFile(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("duration") {
				if doc.EpisodeDuration == nil {
					return errors.New("episode duration missing: pass --duration or set episode_duration in the file")
				}
				duration = *doc.EpisodeDuration
			}

			result := timeline.NewValidator(cfg.Policy()).Validate(duration, doc.entries(), time.Now())
			out := cmd.OutOrStdout()
			if result.Valid {
				color.New(color.FgGreen).Fprintf(out, "Timeline valid")
				fmt.Fprintf(out, " (%d entries, %.1f%% coverage)\n", len(doc.ImageTimeline), result.CoveragePercent)
				return nil
			}

			color.New(color.FgRed).Fprintf(out, "Timeline invalid")
			fmt.Fprintf(out, ": %d violation(s)\n", len(result.Violations))
			fmt.Fprintln(out, violationTable(result.Violations))
			return errTimelineInvalid
		},
	}
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Episode duration in seconds (overrides the file)")
	return cmd
}

func violationTable(violations []timeline.Violation) string {
	rows := make([][]string, 0, len(violations))
	for _, v := range violations {
		index := "-"
		if v.Index != nil {
			index = strconv.Itoa(*v.Index)
		}
		rows = append(rows, []string{index, v.Field, string(v.Category), v.Message})
	}
	return renderTable(
		[]string{"Entry", "Field", "Category", "Message"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}
