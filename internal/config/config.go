// Package config loads the engine configuration from an HCL file.
//
//	map_root = "/etc/map"
//	listen   = ":8080"
//
//	store {
//	  driver = "sqlite"        # sqlite | json | dir
//	  path   = "content.db"
//	}
package config

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/pathwise/pathwise/api"
	"github.com/pathwise/pathwise/internal/store"
)

type Config struct {
	MapRoot string `hcl:"map_root,optional"`
	Listen  string `hcl:"listen,optional"`
	Store   *Store `hcl:"store,block"`
}

type Store struct {
	Driver string `hcl:"driver"`
	Path   string `hcl:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MapRoot: api.DefaultMapRoot,
		Listen:  ":8080",
	}
}

// Load reads an HCL configuration file and applies defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if err := hclsimple.DecodeFile(path, nil, c); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if c.MapRoot == "" {
		c.MapRoot = api.DefaultMapRoot
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	return c, nil
}

// OpenStore constructs the configured store backend. The returned
// cleanup func is a no-op for backends without resources to release.
func (c *Config) OpenStore() (store.Store, func() error, error) {
	if c.Store == nil {
		return nil, nil, fmt.Errorf("no store block configured")
	}
	noop := func() error { return nil }
	switch c.Store.Driver {
	case "sqlite":
		s, err := store.OpenSQLite(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "json":
		data, err := os.ReadFile(c.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("read tree document: %w", err)
		}
		s, err := store.LoadJSON(data)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "dir":
		return store.NewBillyStore(osfs.New(c.Store.Path)), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}
