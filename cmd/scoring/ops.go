package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/jobs"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/options"
	"scoring_engine/pkg/logger"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// withCore starts the core graph, fills targets and runs fn.
func withCore(cmd *cobra.Command, fn func(ctx context.Context) error, targets ...interface{}) error {
	app := fx.New(core(viper.GetString("config")), fx.Populate(targets...))
	if err := app.Start(cmd.Context()); err != nil {
		return errors.Wrap(err, "start app")
	}
	defer func() { _ = app.Stop(context.Background()) }()
	return fn(cmd.Context())
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [run-id]",
		Short: "Ask the run in progress (or the given run) to stop after its current symbol",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts options.Store
			return withCore(cmd, func(ctx context.Context) error {
				if _, ok := opts.(*options.Memory); ok {
					return errors.New("stop: option store is in-memory, configure redis to reach a running server")
				}
				id := ""
				if len(args) == 1 {
					id = args[0]
				} else {
					cur, err := options.GetOrDefault(ctx, opts, options.KeyCurrentRun, "")
					if err != nil {
						return errors.Wrap(err, "read current run")
					}
					id = cur
				}
				if id == "" {
					return errors.New("stop: no run in progress")
				}
				if err := scoring.RequestStop(ctx, opts, id); err != nil {
					return errors.Wrap(err, "request stop")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stop requested for run %s\n", id)
				return nil
			}, &opts)
		},
	}
}

func clearStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-states",
		Short: "Drop every recorded error state, failed symbols included",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts options.Store
			return withCore(cmd, func(ctx context.Context) error {
				if err := jobs.ClearStates(ctx, opts); err != nil {
					return errors.Wrap(err, "clear states")
				}
				logger.Info("error states cleared")
				return nil
			}, &opts)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last completed run",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st store.Store
			return withCore(cmd, func(ctx context.Context) error {
				r, err := st.LastRun(ctx, models.RunCompleted)
				if errors.Is(err, store.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "no completed run yet")
					return nil
				}
				if err != nil {
					return errors.Wrap(err, "last run")
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "run\t%s\n", r.ID)
				fmt.Fprintf(w, "type\t%s\n", r.RunType)
				fmt.Fprintf(w, "started\t%s\n", r.StartTime.Format(time.RFC3339))
				if r.EndTime != nil {
					fmt.Fprintf(w, "ended\t%s\n", r.EndTime.Format(time.RFC3339))
				}
				fmt.Fprintf(w, "processed\t%d\n", r.SymbolsProcessed)
				fmt.Fprintf(w, "failed\t%d\n", r.SymbolsFailed)
				fmt.Fprintf(w, "scores\t%d\n", r.ScoresGenerated)
				fmt.Fprintf(w, "signals\t%d\n", r.TradeSignals)
				return w.Flush()
			}, &st)
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Print a symbol's score history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st store.Store
			return withCore(cmd, func(ctx context.Context) error {
				hist, err := st.History(ctx, args[0], limit)
				if err != nil {
					return errors.Wrap(err, "history")
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tSCORE\tPREVIOUS\tALGORITHM\tRUN")
				for _, sc := range hist {
					prev := "-"
					if sc.HasPrevious {
						prev = strconv.Itoa(sc.PreviousValue)
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", sc.CreatedAt.Format(time.RFC3339), sc.Value, prev, sc.Algorithm, sc.RunID)
				}
				return w.Flush()
			}, &st)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows, 0 for all")
	return cmd
}
