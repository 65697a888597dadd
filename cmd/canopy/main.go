package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose   bool
	logFormat string
	ctx       context.Context
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cliParser(ctx).Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "canopy",
		Short: "canopy is a tool to predict robustly with regression trees",
		Long:  `A tool to estimate the expectation and variance of regression tree and forest predictions when their inputs are uncertain`,
	}
	config := &rootCmdConfig{ctx: ctx}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log progress and debug information to STDERR")
	rootCmd.PersistentFlags().StringVar(&(config.logFormat), "log-format", "text", "format of log entries: text or json")
	rootCmd.AddCommand(versionCmd(), treeCmd(config), tilesCmd(config), predictCmd(config), importCmd(config), serveCmd(config))
	return rootCmd
}

func (rcc *rootCmdConfig) Context() context.Context {
	if rcc.ctx == nil {
		rcc.ctx = context.Background()
	}
	return rcc.ctx
}
