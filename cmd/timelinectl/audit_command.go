package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thisisnajafi/sarvcast-backend-sub015/config"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/audit"
	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-validate every persisted timeline against the current policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Audit.Workers
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
			st, err := config.OpenStore(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			auditor := &audit.Auditor{
				Source:    st,
				Validator: timeline.NewValidator(cfg.Policy()),
				Workers:   workers,
				Logger:    logger,
			}
			report, err := auditor.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked %d, skipped %d, invalid %d, failed %d\n",
				report.Checked, report.Skipped, len(report.Invalid), len(report.Failed))
			if report.OK() {
				color.New(color.FgGreen).Fprintln(out, "All timelines valid")
				return nil
			}

			rows := make([][]string, 0, len(report.Invalid)+len(report.Failed))
			for _, r := range report.Invalid {
				for _, v := range r.Result.Violations {
					rows = append(rows, []string{
						strconv.FormatInt(r.Episode.ID, 10),
						r.Episode.Title,
						string(v.Category),
						v.Message,
					})
				}
			}
			for _, r := range report.Failed {
				rows = append(rows, []string{
					strconv.FormatInt(r.Episode.ID, 10),
					r.Episode.Title,
					"error",
					r.Err.Error(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Episode", "Title", "Category", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			color.New(color.FgRed).Fprintln(out, "Audit found problems")
			return errors.New("audit failed")
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent episode checks (defaults to audit.workers)")
	return cmd
}
