package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/metrics"
	"github.com/pbanos/canopy/server"
	"github.com/pbanos/canopy/tree/redisstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

type serveCmdConfig struct {
	*rootCmdConfig
	addr        string
	redisURL    string
	redisPrefix string
	workers     int
	tolerance   float64
	breakdown   bool
}

func serveCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &serveCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve robust predictions over HTTP",
		Long:  `Serve robust predictions over HTTP for the models imported into redis, fitting each on first use`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				exit(1, err)
			}
			ctx := config.Context()
			logger := config.Logger()
			rc, _, err := redisClient(config.redisURL)
			if err != nil {
				exit(2, err)
			}
			defer rc.Close()
			if err = rc.Ping(ctx).Err(); err != nil {
				exit(3, fmt.Errorf("connecting to redis at %s: %v", config.redisURL, err))
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			c, err := metrics.NewCollector(reg)
			if err != nil {
				exit(4, err)
			}
			opts := []canopy.Option{canopy.WithLogger(logger), canopy.WithWorkers(config.workers), canopy.WithTolerance(config.tolerance), canopy.WithMetrics(c)}
			if config.breakdown {
				opts = append(opts, canopy.WithBreakdown())
			}
			est := canopy.New(opts...)
			loader := func(ctx context.Context, id string) (*canopy.Model, error) {
				f, err := redisstore.LoadForest(ctx, rc, config.redisPrefix, id)
				if errors.Is(err, redisstore.ErrModelNotFound) {
					return nil, fmt.Errorf("%v: %w", err, server.ErrModelNotFound)
				}
				if err != nil {
					return nil, err
				}
				return &canopy.Model{ID: id, Trees: f.Trees, Weights: f.Weights}, nil
			}
			srv := &http.Server{
				Addr:              config.addr,
				Handler:           server.NewHandler(est, reg, server.WithLoader(loader), server.WithLogger(logger)),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			logger.WithField("addr", config.addr).Warn("serving")
			if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				exit(5, err)
			}
		},
	}
	cmd.Flags().StringVarP(&(config.addr), "addr", "a", ":8080", "address to listen on")
	cmd.Flags().StringVarP(&(config.redisURL), "redis", "r", "redis://localhost:6379", "URL of the redis server holding the imported models")
	cmd.Flags().StringVar(&(config.redisPrefix), "redis-prefix", "canopy", "prefix of the redis keys holding imported models")
	cmd.Flags().IntVarP(&(config.workers), "workers", "w", 0, "number of points predicted concurrently (defaults to the number of CPUs)")
	cmd.Flags().Float64Var(&(config.tolerance), "tolerance", 1e-6, "accepted deviation from 1 of the total leaf probability of a point")
	cmd.Flags().BoolVar(&(config.breakdown), "breakdown", false, "include per-leaf probabilities and per-tree estimates in predictions")
	return cmd
}

func (scc *serveCmdConfig) Validate() error {
	if err := scc.rootCmdConfig.Validate(); err != nil {
		return err
	}
	if scc.addr == "" {
		return fmt.Errorf("required addr flag was not set")
	}
	if scc.tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative")
	}
	return nil
}
