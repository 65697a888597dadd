package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type treeCmdConfig struct {
	*rootCmdConfig
	modelConfig
}

func treeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the trees of a model",
		Long:  `Print the trees of a model with the criteria and predictions of their nodes`,
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
			for i, t := range f.Trees {
				fmt.Printf("Tree %d:\n%v\n", i, t)
			}
		},
	}
	addModelFlags(cmd, &config.modelConfig)
	return cmd
}

func (tcc *treeCmdConfig) Validate() error {
	if err := tcc.rootCmdConfig.Validate(); err != nil {
		return err
	}
	return tcc.modelConfig.Validate()
}

func addModelFlags(cmd *cobra.Command, mc *modelConfig) {
	cmd.Flags().StringVarP(&(mc.model), "model", "m", "", "path to a JSON file with the model, or a redis://host:port/model-id URL for an imported one (required)")
	cmd.Flags().StringVarP(&(mc.format), "format", "f", formatCanopy, "format of the model file: canopy or sklearn")
	cmd.Flags().StringVar(&(mc.redisPrefix), "redis-prefix", "canopy", "prefix of the redis keys holding imported models")
}
