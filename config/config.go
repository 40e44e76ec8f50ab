// Package config decodes a declarative YAML description of a repo's
// storage into a pod.POD, the way the teacher's configuration package
// decodes a registry's storage section into a driver name plus
// parameters, except here the decoded value is built directly rather
// than handed to a second factory lookup keyed by an http handler.
package config

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/vistore/vistore/pod"
)

// Parameters are the backend-specific options passed to pod.Create,
// e.g. {"path": "/var/lib/vistore"} for the file backend or {"bucket":
// "my-bucket", "region": "us-east-1"} for s3.
type Parameters map[string]string

// Backend names one registered pod.Factory and its parameters.
type Backend struct {
	Name       string     `yaml:"name"`
	Parameters Parameters `yaml:"parameters,omitempty"`
}

// Log configures the logrus logger threaded through internal/dcontext.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Storage is an ordered list of backends, outermost (cache) first and
// innermost (backing) last, the declarative equivalent of pod.Open's
// "+"-chained URI: "memory://+s3://bucket" becomes
//
//	storage:
//	  - name: memory
//	  - name: s3
//	    parameters:
//	      bucket: bucket
//
// A single-entry list opens that one backend with no cache tier.
type Storage []Backend

// Config is a repo's configuration, intended to be loaded from a YAML
// file and used by cmd/ccsrepo to build a pod.POD instead of parsing a
// URI string by hand.
type Config struct {
	Version string  `yaml:"version"`
	Log     Log     `yaml:"log,omitempty"`
	Storage Storage `yaml:"storage"`
}

// Parse decodes a YAML document into a Config.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if len(c.Storage) == 0 {
		return nil, fmt.Errorf("config: parse: storage section is empty")
	}
	return &c, nil
}

// Build constructs the pod.POD described by c.Storage, chaining
// backends cache-in-front-of-backing in list order the same way
// pod.Open composes a "+"-separated URI. A list of more than two
// backends nests: each earlier entry caches the composition of every
// backend after it.
func (c *Config) Build(ctx context.Context) (pod.POD, error) {
	return c.Storage.Build(ctx)
}

// Build constructs the pod.POD for s, innermost backend first.
func (s Storage) Build(ctx context.Context) (pod.POD, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("config: storage: no backends configured")
	}

	backing, err := pod.Create(ctx, s[len(s)-1].Name, map[string]string(s[len(s)-1].Parameters))
	if err != nil {
		return nil, fmt.Errorf("config: storage: backend %q: %w", s[len(s)-1].Name, err)
	}
	p := backing
	for i := len(s) - 2; i >= 0; i-- {
		cache, err := pod.Create(ctx, s[i].Name, map[string]string(s[i].Parameters))
		if err != nil {
			return nil, fmt.Errorf("config: storage: backend %q: %w", s[i].Name, err)
		}
		p = pod.NewCache(cache, p)
	}
	return p, nil
}
