package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/db"
	"github.com/sells-group/recordlink/internal/derive"
	"github.com/sells-group/recordlink/internal/fetcher"
	"github.com/sells-group/recordlink/internal/job"
	"github.com/sells-group/recordlink/internal/store"
	"github.com/sells-group/recordlink/internal/table"
)

var mergeJobPath string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Run a pivot/entity/fact merge job",
	Long:  "Loads the three sources named in a job file, builds join keys, merges, reconciles and derives, then writes the result to CSV and the configured store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("merge"); err != nil {
			return err
		}

		j, err := job.Load(mergeJobPath)
		if err != nil {
			return err
		}
		if err := j.Validate(); err != nil {
			return err
		}

		log := zap.L().With(zap.String("job", j.Name))

		var st store.Store
		var runID string
		if cfg.Store.Driver == "sqlite" {
			s, err := store.NewSQLite(cfg.Store.Path)
			if err != nil {
				return eris.Wrap(err, "merge: open store")
			}
			defer s.Close() //nolint:errcheck
			if err := s.Migrate(ctx); err != nil {
				return eris.Wrap(err, "merge: migrate store")
			}
			run, err := s.CreateRun(ctx, j.Name)
			if err != nil {
				return eris.Wrap(err, "merge: create run")
			}
			st, runID = s, run.ID
			log = log.With(zap.String("run_id", runID))
		}

		out, err := runJob(ctx, j, st)
		if st != nil {
			if err != nil {
				if ferr := st.FailRun(ctx, runID, err); ferr != nil {
					log.Warn("failed to record run failure", zap.Error(ferr))
				}
				return err
			}
			if err := st.CompleteRun(ctx, runID, out.Len()); err != nil {
				return eris.Wrap(err, "merge: complete run")
			}
		}
		if err != nil {
			return err
		}

		log.Info("merge complete", zap.Int("rows", out.Len()))
		return nil
	},
}

// runJob loads, merges and writes one job. st is nil unless the sqlite
// driver is active.
func runJob(ctx context.Context, j *job.Job, st store.Store) (*table.Table, error) {
	remote := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   cfg.Remote.UserAgent,
		Timeout:     time.Duration(cfg.Remote.TimeoutSecs) * time.Second,
		MaxAttempts: cfg.Remote.MaxAttempts,
	})
	in, err := job.LoadInputs(ctx, j.Sources, remote)
	if err != nil {
		return nil, err
	}

	out, err := j.Run(in, job.Defaults{
		Role:      cfg.Merge.Role,
		AgeBounds: derive.AgeBounds{Min: cfg.Derive.AgeMin, Max: cfg.Derive.AgeMax},
		Quantiles: cfg.Derive.Quantiles,
	})
	if err != nil {
		return nil, err
	}

	if j.Output.CSV != "" {
		if err := writeTable(j.Output.CSV, out); err != nil {
			return nil, err
		}
	}

	if j.Output.Table == "" {
		return out, nil
	}

	switch cfg.Store.Driver {
	case "sqlite":
		if err := st.SaveTable(ctx, j.Output.Table, out); err != nil {
			return nil, eris.Wrap(err, "merge: save table")
		}
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		if _, err := db.WriteTable(ctx, pool, db.SinkConfig{
			Table: cfg.Store.Schema + "." + j.Output.Table,
			Keys:  j.Output.Keys,
		}, out); err != nil {
			return nil, err
		}
	default:
		zap.L().Warn("output table ignored, store driver is none", zap.String("table", j.Output.Table))
	}
	return out, nil
}

func init() {
	mergeCmd.Flags().StringVar(&mergeJobPath, "job", "", "path to the merge job YAML file (required)")
	_ = mergeCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(mergeCmd)
}
