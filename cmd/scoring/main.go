package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/bootstrap"
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/modules/health"
	"scoring_engine/internal/modules/jobs"
	notifymodule "scoring_engine/internal/modules/notify"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/store/pg"
	"scoring_engine/pkg/db"
	"scoring_engine/pkg/logger"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scoring",
		Short:         "Symbol scoring engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to the YAML config (default configs/$CONFIG_FILE)")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	viper.SetEnvPrefix("scoring")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(serveCmd(), scoreCmd(), migrateCmd(), directivesCmd(),
		stopCmd(), clearStatesCmd(), statusCmd(), historyCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, job runner and HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				core(viper.GetString("config")),
				notifymodule.Module(),
				jobs.Module(),
				bootstrap.WarmupModule(),
				health.Module(),
			)
			if err := app.Err(); err != nil {
				return errors.Wrap(err, "build app")
			}
			app.Run()
			return nil
		},
	}
}

func scoreCmd() *cobra.Command {
	var runType string
	cmd := &cobra.Command{
		Use:   "score [symbols...]",
		Short: "Score one batch now and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			var orch *scoring.Orchestrator
			app := fx.New(
				core(viper.GetString("config")),
				notifymodule.Module(),
				fx.Populate(&orch),
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			if err := app.Start(ctx); err != nil {
				return errors.Wrap(err, "start app")
			}
			defer func() { _ = app.Stop(context.Background()) }()

			res, err := orch.Run(ctx, models.RunType(runType), args)
			if err != nil {
				return errors.Wrap(err, "run")
			}
			return printBatch(cmd, res)
		},
	}
	cmd.Flags().StringVar(&runType, "run-type", string(models.RunManual), "run type recorded on the run")
	return cmd
}

func printBatch(cmd *cobra.Command, res scoring.BatchResult) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", res.RunID)
	fmt.Fprintf(w, "processed\t%s\n", strings.Join(res.Processed, ","))
	fmt.Fprintf(w, "transient\t%s\n", strings.Join(res.Transient, ","))
	for sym, err := range res.Skipped {
		fmt.Fprintf(w, "skipped %s\t%v\n", sym, err)
	}
	fmt.Fprintf(w, "api calls\t%d\n", res.APICalls)
	fmt.Fprintf(w, "signals\t%d\n", res.Signals)
	return w.Flush()
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DB == "" {
				return errors.New("migrate: no database dsn configured")
			}
			if _, err := newLogger(cfg); err != nil {
				return err
			}
			pool, err := db.NewPool(cmd.Context(), db.PoolConfig{DSN: cfg.DB, MaxConns: cfg.DBMaxConns})
			if err != nil {
				return errors.Wrap(err, "connect")
			}
			tx := db.NewPgTxManager(pool)
			defer tx.Close()

			if err := pg.New(tx).Migrate(cmd.Context()); err != nil {
				return errors.Wrap(err, "migrate")
			}
			logger.Info("schema is up to date")
			return nil
		},
	}
}

func directivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "directives",
		Short: "List the built-in directives with their weights and parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var reg *directive.Registry
			app := fx.New(core(viper.GetString("config")), fx.Populate(&reg))
			if err := app.Start(cmd.Context()); err != nil {
				return errors.Wrap(err, "start app")
			}
			defer func() { _ = app.Stop(context.Background()) }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWEIGHT\tACTIVE\tDESCRIPTION")
			for _, d := range reg.Directives() {
				desc, err := reg.Explain(d.ID)
				if err != nil {
					desc = err.Error()
				}
				fmt.Fprintf(w, "%s\t%.0f\t%t\t%s\n", d.ID, d.Weight, d.Active, desc)
			}
			return w.Flush()
		},
	}
}

func loadConfig() (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.NewConfig()
}
