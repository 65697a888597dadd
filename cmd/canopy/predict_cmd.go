package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/dataset/csv"
	"github.com/pbanos/canopy/dataset/sqldataset"
	"github.com/pbanos/canopy/distribution/yaml"
	"github.com/pbanos/canopy/feature"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelConfig
	distributionsInput string
	dataInput          string
	inputTable         string
	output             string
	outputTable        string
	goal               string
	beta               float64
	normalize          bool
	workers            int
	tolerance          float64
	maxDBConns         int
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict robust estimates for a set of points",
		Long:  `Use the model to estimate the expectation and variance of its prediction for every point of a set when the features of the points are uncertain`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				exit(1, err)
			}
			ctx := config.Context()
			logger := config.Logger()
			config.Logf("Reading model from %s...", config.model)
			m, err := config.Model(ctx)
			if err != nil {
				exit(2, err)
			}
			est := canopy.New(canopy.WithLogger(logger), canopy.WithWorkers(config.workers), canopy.WithTolerance(config.tolerance))
			h, err := est.Fit(ctx, m)
			if err != nil {
				exit(3, err)
			}
			specs := map[string]interface{}{}
			if config.distributionsInput != "" {
				config.Logf("Reading distributions from %s...", config.distributionsInput)
				specs, err = yaml.ReadSpecsFromFile(config.distributionsInput)
				if err != nil {
					exit(4, err)
				}
			}
			dists, err := h.Distributions(specs)
			if err != nil {
				exit(4, err)
			}
			points, err := config.points(ctx, h.Features())
			if err != nil {
				exit(5, err)
			}
			config.Logf("Predicting %d points with %d trees...", points.Len(), h.Trees())
			results, err := h.PredictPoints(ctx, points.Rows, dists)
			if err != nil {
				exit(6, err)
			}
			var merits []float64
			if config.goal != "" {
				merits, err = canopy.Merits(results, config.goal, config.beta, config.normalize)
				if err != nil {
					exit(7, err)
				}
			}
			predictions, err := dataset.Predictions(points, results, merits)
			if err != nil {
				exit(8, err)
			}
			if err = config.writePredictions(ctx, h.Features(), predictions); err != nil {
				exit(9, err)
			}
			config.Logf("Done")
		},
	}
	addModelFlags(cmd, &config.modelConfig)
	cmd.Flags().StringVarP(&(config.distributionsInput), "distributions", "d", "", "path to a YML file with the uncertainty distribution of each feature under a distributions key (features not listed have no uncertainty)")
	cmd.Flags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL DB connection URL with the points to predict (defaults to STDIN, interpreted as CSV)")
	cmd.Flags().StringVar(&(config.inputTable), "input-table", "points", "table holding the points when the input is a database")
	cmd.Flags().StringVarP(&(config.output), "output", "o", "", "path to an output CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL DB connection URL to write the predictions to (defaults to STDOUT, written as CSV)")
	cmd.Flags().StringVar(&(config.outputTable), "output-table", "predictions", "table to write the predictions to when the output is a database")
	cmd.Flags().StringVarP(&(config.goal), "goal", "g", "", "optimization goal, min or max, to compute robust merits with (no merits when unset)")
	cmd.Flags().Float64VarP(&(config.beta), "beta", "b", 0, "weight of the standard deviation in robust merits")
	cmd.Flags().BoolVar(&(config.normalize), "normalize", false, "rescale merits to [0, 1]")
	cmd.Flags().IntVarP(&(config.workers), "workers", "w", 0, "number of points predicted concurrently (defaults to the number of CPUs)")
	cmd.Flags().Float64Var(&(config.tolerance), "tolerance", 1e-6, "accepted deviation from 1 of the total leaf probability of a point")
	cmd.Flags().IntVar(&(config.maxDBConns), "max-db-conns", 0, "limit to DB connections opened at a time (defaults to 0: no limit)")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if err := pcc.rootCmdConfig.Validate(); err != nil {
		return err
	}
	if err := pcc.modelConfig.Validate(); err != nil {
		return err
	}
	if pcc.goal != "" && pcc.goal != canopy.GoalMin && pcc.goal != canopy.GoalMax {
		return fmt.Errorf("unknown goal %s, expected %s or %s", pcc.goal, canopy.GoalMin, canopy.GoalMax)
	}
	if pcc.tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative")
	}
	return nil
}

func (pcc *predictCmdConfig) points(ctx context.Context, features []feature.Feature) (*dataset.Points, error) {
	if sqldataset.IsURL(pcc.dataInput) {
		pcc.Logf("Reading points from table %s of %s...", pcc.inputTable, pcc.dataInput)
		db, err := sqldataset.Open(pcc.dataInput, pcc.maxDBConns)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.ReadPoints(ctx, pcc.inputTable, features)
	}
	if pcc.dataInput == "" {
		pcc.Logf("Reading points from STDIN...")
	} else {
		pcc.Logf("Reading points from %s...", pcc.dataInput)
	}
	return csv.ReadPointsFromFilePath(pcc.dataInput, features)
}

func (pcc *predictCmdConfig) writePredictions(ctx context.Context, features []feature.Feature, predictions []dataset.Prediction) error {
	if sqldataset.IsURL(pcc.output) {
		pcc.Logf("Writing predictions to table %s of %s...", pcc.outputTable, pcc.output)
		db, err := sqldataset.Open(pcc.output, pcc.maxDBConns)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.WritePredictions(ctx, pcc.outputTable, features, predictions)
	}
	f := os.Stdout
	if pcc.output != "" {
		var err error
		f, err = os.Create(pcc.output)
		if err != nil {
			return err
		}
		defer f.Close()
	}
	n, err := csv.WritePredictions(ctx, f, features, predictions)
	if err != nil {
		return err
	}
	pcc.Logf("Wrote %d predictions", n)
	return nil
}
