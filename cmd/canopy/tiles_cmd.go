package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pbanos/canopy"
	"github.com/spf13/cobra"
)

type tilesCmdConfig struct {
	*rootCmdConfig
	modelConfig
	treeNumber int
}

func tilesCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &tilesCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Print the leaves of a tree as tiles",
		Long:  `Print as JSON the bounds on every feature and the prediction of each leaf of a tree of a model`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				exit(1, err)
			}
			ctx := config.Context()
			m, err := config.Model(ctx)
			if err != nil {
				exit(2, err)
			}
			est := canopy.New(canopy.WithLogger(config.Logger()))
			h, err := est.Fit(ctx, m)
			if err != nil {
				exit(3, err)
			}
			tiles, err := h.Tiles(config.treeNumber)
			if err != nil {
				exit(4, err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err = enc.Encode(tiles); err != nil {
				exit(5, err)
			}
		},
	}
	addModelFlags(cmd, &config.modelConfig)
	cmd.Flags().IntVarP(&(config.treeNumber), "tree", "t", 0, "number of the tree of the model, starting at 0")
	return cmd
}

func (tcc *tilesCmdConfig) Validate() error {
	if err := tcc.rootCmdConfig.Validate(); err != nil {
		return err
	}
	if tcc.treeNumber < 0 {
		return fmt.Errorf("tree number must not be negative")
	}
	return tcc.modelConfig.Validate()
}
