package cmd

import (
	"context"
	"os"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/di"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/pagestore"
	"github.com/pageforge/pageforge/internal/plugins/builtin"
	"github.com/pageforge/pageforge/internal/registry"
)

// Service ids wired into the container at startup.
const (
	svcConfig   = "config"
	svcLogger   = "logger"
	svcPages    = "pages"
	svcRegistry = "registry"
)

// buildContainer assembles the application object graph. Everything is
// a singleton; per-request state lives in the pipeline context, not in
// services.
func buildContainer() (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	c := di.NewContainer()
	c.RegisterInstance(svcConfig, cfg)

	c.RegisterSingleton(svcLogger, func(r di.Resolver) (interface{}, error) {
		return logging.NewLogger(&logging.LoggerConfig{
			Level:  logging.ParseLevel(cfg.Log.Level),
			Format: cfg.Log.Format,
			Output: os.Stderr,
		}), nil
	})

	c.RegisterSingleton(svcPages, func(r di.Resolver) (interface{}, error) {
		return pagestore.NewFileRepository(cfg.Pages.Dir), nil
	})

	c.RegisterSingleton(svcRegistry, func(r di.Resolver) (interface{}, error) {
		return buildRegistry(cfg)
	})

	return c, nil
}

// buildRegistry registers the built-in plugins and applies the
// configured allowlist: an inline list wins, otherwise the manifest
// file drives it, otherwise every plugin stays usable.
func buildRegistry(cfg *config.Config) (*registry.PluginRegistry, error) {
	var opts []registry.Option
	if cfg.Plugins.Manifest != "" {
		opts = append(opts, registry.WithDefinitionsRepository(pagestore.NewManifestRepository(cfg.Plugins.Manifest)))
	}

	reg := registry.NewPluginRegistry(opts...)
	if err := builtin.RegisterAll(reg); err != nil {
		return nil, err
	}

	if len(cfg.Plugins.Allowed) > 0 {
		reg.SetAllowlist(cfg.Plugins.Allowed)
	} else if cfg.Plugins.Manifest != "" {
		if err := reg.LoadAllowlistFromRepo(context.Background()); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func resolveDeps(c *di.Container) (*config.Config, logging.Logger, pagestore.PageRepository, *registry.PluginRegistry) {
	return c.MustResolve(svcConfig).(*config.Config),
		c.MustResolve(svcLogger).(logging.Logger),
		c.MustResolve(svcPages).(pagestore.PageRepository),
		c.MustResolve(svcRegistry).(*registry.PluginRegistry)
}
