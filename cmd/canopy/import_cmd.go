package main

import (
	"fmt"

	"github.com/pbanos/canopy/partition"
	"github.com/pbanos/canopy/tree/redisstore"
	"github.com/spf13/cobra"
)

type importCmdConfig struct {
	*rootCmdConfig
	modelConfig
	redisURL string
	modelID  string
}

func importCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &importCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a model file into redis",
		Long:  `Check a model read from a file and store its trees on redis, from where predict and serve can load it by id`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				exit(1, err)
			}
			ctx := config.Context()
			config.Logf("Reading model from %s...", config.model)
			f, err := config.forest(ctx)
			if err != nil {
				exit(2, err)
			}
			config.Logf("Checking the %d trees of the model...", len(f.Trees))
			if _, err = partition.NewForest(ctx, f.Trees, f.Weights); err != nil {
				exit(3, err)
			}
			rc, _, err := redisClient(config.redisURL)
			if err != nil {
				exit(4, err)
			}
			defer rc.Close()
			config.Logf("Saving model %s on %s...", config.modelID, config.redisURL)
			if err = redisstore.SaveForest(ctx, rc, config.redisPrefix, config.modelID, f); err != nil {
				exit(5, err)
			}
			config.Logf("Done")
		},
	}
	addModelFlags(cmd, &config.modelConfig)
	cmd.Flags().StringVarP(&(config.redisURL), "redis", "r", "redis://localhost:6379", "URL of the redis server to import the model to")
	cmd.Flags().StringVar(&(config.modelID), "id", "", "id to import the model under (required)")
	return cmd
}

func (icc *importCmdConfig) Validate() error {
	if err := icc.rootCmdConfig.Validate(); err != nil {
		return err
	}
	if err := icc.modelConfig.Validate(); err != nil {
		return err
	}
	if icc.isRedis() {
		return fmt.Errorf("model must be read from a file to be imported")
	}
	if icc.modelID == "" {
		return fmt.Errorf("required id flag was not set")
	}
	return nil
}
