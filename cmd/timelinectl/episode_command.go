package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/thisisnajafi/sarvcast-backend-sub015/config"
	"github.com/thisisnajafi/sarvcast-backend-sub015/models"
)

type episodeWriter interface {
	PutEpisode(ctx context.Context, ep models.Episode) error
}

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episode",
		Short: "Manage episodes in the local store",
	}
	cmd.AddCommand(newEpisodePutCommand(ctx))
	cmd.AddCommand(newEpisodeShowCommand(ctx))
	return cmd
}

func newEpisodePutCommand(ctx *commandContext) *cobra.Command {
	var (
		id       int64
		duration int
		title    string
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create or update an episode (sqlite driver only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if id <= 0 {
				return errors.New("--id must be positive")
			}
			if duration <= 0 {
				return errors.New("--duration must be positive")
			}

			st, err := config.OpenStore(cfg, config.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level))
			if err != nil {
				return err
			}
			defer st.Close()

			w, ok := st.(episodeWriter)
			if !ok || cfg.Store.Driver != config.DriverSQLite {
				return fmt.Errorf("store driver %q does not accept episodes from the command line", cfg.Store.Driver)
			}
			now := time.Now().UTC()
			ep := models.Episode{
				ID:               id,
				Title:            title,
				Duration:         duration,
				UseImageTimeline: true,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := w.PutEpisode(cmd.Context(), ep); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "episode %d saved (%ds)\n", id, duration)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Episode id")
	cmd.Flags().IntVar(&duration, "duration", 0, "Episode duration in seconds")
	cmd.Flags().StringVar(&title, "title", "", "Episode title")
	return cmd
}

func newEpisodeShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <episode-id>",
		Short: "Print an episode's persisted timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid episode id %q", args[0])
			}

			st, err := config.OpenStore(cfg, config.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level))
			if err != nil {
				return err
			}
			defer st.Close()

			ep, err := st.GetEpisode(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows, err := st.GetTimeline(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "episode %d %q (%ds), %d image(s)\n", ep.ID, ep.Title, ep.Duration, len(rows))
			if len(rows) == 0 {
				return nil
			}
			lines := make([][]string, 0, len(rows))
			for _, r := range rows {
				key := ""
				if r.IsKeyFrame {
					key = "yes"
				}
				lines = append(lines, []string{
					strconv.Itoa(r.ImageOrder),
					strconv.Itoa(r.StartTime),
					strconv.Itoa(r.EndTime),
					r.ImageURL,
					key,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Order", "Start", "End", "Image", "Key"},
				lines,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
