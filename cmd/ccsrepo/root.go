package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vistore/vistore/config"
	"github.com/vistore/vistore/internal/dcontext"
	"github.com/vistore/vistore/pod"
	"github.com/vistore/vistore/repo"
)

var (
	configPath string
	repoURI    string
)

// RootCmd is the main command for the 'ccsrepo' binary.
var RootCmd = &cobra.Command{
	Use:   "ccsrepo",
	Short: "`ccsrepo`",
	Long:  "`ccsrepo`",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file describing storage")
	RootCmd.PersistentFlags().StringVar(&repoURI, "uri", "memory://", "repo URI, used when --config is not set")

	RootCmd.AddCommand(LsCmd)
	RootCmd.AddCommand(GCCmd)
	RootCmd.AddCommand(PullCmd)
}

// openRepo builds a *repo.Repo from --config if set, otherwise from --uri.
// The returned context carries a logger at the level config.Log.Level
// names (info, via the package default, when --config is absent or sets
// none), so gc and sync log through the same dcontext lookup the rest of
// the tree uses.
func openRepo(ctx context.Context) (context.Context, *repo.Repo, error) {
	if configPath == "" {
		r, err := repo.Open(ctx, repoURI)
		if err != nil {
			return ctx, nil, err
		}
		return ctx, r, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return ctx, nil, fmt.Errorf("reading %s: %w", configPath, err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return ctx, nil, err
	}
	if cfg.Log.Level != "" {
		lvl, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			return ctx, nil, fmt.Errorf("config: log.level %q: %w", cfg.Log.Level, err)
		}
		logger := logrus.New()
		logger.SetLevel(lvl)
		ctx = dcontext.WithLogger(ctx, logger.WithField("component", "ccsrepo"))
	}
	p, err := cfg.Build(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return ctx, repo.New(p), nil
}

// openURI builds a *repo.Repo over the POD that pod.Open returns for uri,
// used by commands that need a second, remote repo rather than the one
// --config/--uri describes.
func openURI(ctx context.Context, uri string) (*repo.Repo, error) {
	p, err := pod.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return repo.New(p), nil
}
