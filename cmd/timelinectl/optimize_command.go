package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

type optimizedEntry struct {
	StartTime  int    `json:"start_time"`
	EndTime    int    `json:"end_time"`
	ImageURL   string `json:"image_url"`
	ImageOrder int    `json:"image_order"`
}

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "optimize <file.json>",
		Short: "Merge redundant entries of an exported timeline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readTimelineFile(args[0])
			if err != nil {
				return err
			}
			result := timeline.Optimize(doc.entries())

			out := cmd.OutOrStdout()
			color.New(color.FgYellow).Fprint(out, "entries: ")
			color.New(color.FgGreen).Fprintf(out, "%d -> %d", result.OriginalCount, result.OptimizedCount)
			fmt.Fprintf(out, " (%d merged, %.1f%% fewer)\n", result.Merged(), result.ReductionPercent())

			rows := make([][]string, 0, len(result.Entries))
			for _, e := range result.Entries {
				rows = append(rows, []string{
					strconv.Itoa(e.Order),
					strconv.Itoa(e.Range.Start),
					strconv.Itoa(e.Range.End),
					e.ImageURL,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Order", "Start", "End", "Image"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))

			if output == "" {
				return nil
			}
			return writeOptimized(output, doc.EpisodeDuration, result.Entries)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the optimized timeline as JSON to this file")
	return cmd
}

func writeOptimized(path string, duration *int, entries []timeline.Entry) error {
	doc := struct {
		EpisodeDuration *int             `json:"episode_duration,omitempty"`
		ImageTimeline   []optimizedEntry `json:"image_timeline"`
	}{EpisodeDuration: duration, ImageTimeline: make([]optimizedEntry, len(entries))}
	for i, e := range entries {
		doc.ImageTimeline[i] = optimizedEntry{
			StartTime:  e.Range.Start,
			EndTime:    e.Range.End,
			ImageURL:   e.ImageURL,
			ImageOrder: e.Order,
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode optimized timeline: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write optimized timeline: %w", err)
	}
	return nil
}
