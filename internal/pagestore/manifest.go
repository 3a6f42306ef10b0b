package pagestore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pageforge/pageforge/internal/errors"
)

// Manifest is the on-disk plugin definitions document. Entries default
// to active unless explicitly deactivated.
type Manifest struct {
	Plugins []ManifestEntry `yaml:"plugins"`
}

type ManifestEntry struct {
	ID     string `yaml:"id"`
	Active *bool  `yaml:"active"`
}

// ManifestRepository reads the active plugin set from a YAML manifest
// file. It satisfies the registry's definitions repository.
type ManifestRepository struct {
	path string
}

func NewManifestRepository(path string) *ManifestRepository {
	return &ManifestRepository{path: path}
}

// ListActivePluginIDs parses the manifest and returns the ids of every
// active entry, preserving file order. The result is never nil for a
// readable manifest: deactivating every entry yields an empty list,
// which restricts rendering to no plugins at all rather than lifting
// the allowlist.
func (r *ManifestRepository) ListActivePluginIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, errors.NewInternalError("reading plugin manifest", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "plugin manifest is not valid YAML").WithCause(err)
	}

	active := []string{}
	for i, entry := range manifest.Plugins {
		if entry.ID == "" {
			return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid plugin manifest").WithViolations([]errors.Violation{
				{Path: fmt.Sprintf("plugins[%d].id", i), Message: "plugin id must not be empty"},
			})
		}
		if entry.Active == nil || *entry.Active {
			active = append(active, entry.ID)
		}
	}
	return active, nil
}

// StaticDefinitions adapts a fixed id list, e.g. from configuration,
// to the definitions repository shape.
type StaticDefinitions []string

func (s StaticDefinitions) ListActivePluginIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]string, len(s))
	copy(ids, s)
	return ids, nil
}
