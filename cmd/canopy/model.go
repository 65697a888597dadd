package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pbanos/canopy"
	tjson "github.com/pbanos/canopy/tree/json"
	"github.com/pbanos/canopy/tree/redisstore"
	"github.com/pbanos/canopy/tree/sklearn"
	"github.com/redis/go-redis/v9"
)

const (
	formatCanopy  = "canopy"
	formatSklearn = "sklearn"
)

// modelConfig holds the flags locating a model
type modelConfig struct {
	model       string
	format      string
	redisPrefix string
}

func (mc *modelConfig) Validate() error {
	if mc.model == "" {
		return fmt.Errorf("required model flag was not set")
	}
	if mc.format != formatCanopy && mc.format != formatSklearn {
		return fmt.Errorf("unknown model format %s, expected %s or %s", mc.format, formatCanopy, formatSklearn)
	}
	return nil
}

func (mc *modelConfig) isRedis() bool {
	return strings.HasPrefix(mc.model, "redis://")
}

/*
forest reads the model's forest from a JSON file in canopy or sklearn
format, or from a redis://[:password@]host:port/model-id URL.
*/
func (mc *modelConfig) forest(ctx context.Context) (*tjson.Forest, error) {
	if mc.isRedis() {
		rc, id, err := redisModel(mc.model)
		if err != nil {
			return nil, err
		}
		return redisstore.LoadForest(ctx, rc, mc.redisPrefix, id)
	}
	if mc.format == formatSklearn {
		return sklearn.ReadForestFromFile(ctx, mc.model)
	}
	return tjson.ReadForestFromFile(ctx, mc.model)
}

func (mc *modelConfig) Model(ctx context.Context) (*canopy.Model, error) {
	f, err := mc.forest(ctx)
	if err != nil {
		return nil, err
	}
	return &canopy.Model{ID: mc.id(), Trees: f.Trees, Weights: f.Weights}, nil
}

func (mc *modelConfig) id() string {
	if mc.isRedis() {
		if u, err := url.Parse(mc.model); err == nil {
			return strings.TrimPrefix(u.Path, "/")
		}
	}
	return mc.model
}

// redisClient takes a redis://[:password@]host:port URL and returns a
// client for it
func redisClient(rawURL string) (*redis.Client, *url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis URL: %v", err)
	}
	if u.Scheme != "redis" || u.Host == "" {
		return nil, nil, fmt.Errorf("invalid redis URL %s", rawURL)
	}
	opts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	return redis.NewClient(opts), u, nil
}

func redisModel(rawURL string) (*redis.Client, string, error) {
	rc, u, err := redisClient(rawURL)
	if err != nil {
		return nil, "", err
	}
	id := strings.TrimPrefix(u.Path, "/")
	if id == "" {
		return nil, "", fmt.Errorf("redis URL %s names no model", rawURL)
	}
	return rc, id, nil
}
