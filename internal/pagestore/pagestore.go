// Package pagestore loads page definitions and plugin manifests from
// disk. Pages are stored one file per slug in JSON or YAML; every
// document is schema-validated before it is handed to callers.
package pagestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pageforge/pageforge/internal/dsl"
	"github.com/pageforge/pageforge/internal/errors"
)

// pageExtensions lists the recognized page file extensions in lookup
// order.
var pageExtensions = []string{".json", ".yml", ".yaml"}

// PageRepository resolves page definitions by slug.
type PageRepository interface {
	FindBySlug(ctx context.Context, slug string) (*dsl.Page, error)
	ListSlugs(ctx context.Context) ([]string, error)
}

// FileRepository is a PageRepository over a flat directory of page
// files named <slug>.json, <slug>.yml or <slug>.yaml.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Dir returns the directory the repository reads from.
func (r *FileRepository) Dir() string {
	return r.dir
}

// FindBySlug loads, validates and decodes the page stored under slug.
// Slugs containing path separators or traversal segments are rejected
// outright.
func (r *FileRepository) FindBySlug(ctx context.Context, slug string) (*dsl.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validSlug(slug) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidPage, fmt.Sprintf("invalid page slug %q", slug), nil)
	}

	for _, ext := range pageExtensions {
		path := filepath.Join(r.dir, slug+ext)
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.NewInternalError(fmt.Sprintf("reading page %q", slug), err)
		}
		return decodePageFile(path, raw)
	}

	return nil, errors.NewRenderError(errors.ErrCodePageNotFound, fmt.Sprintf("no page found for slug %q", slug))
}

// ListSlugs returns the sorted slugs of every page file in the
// directory.
func (r *FileRepository) ListSlugs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.NewInternalError("reading pages directory", err)
	}

	seen := map[string]bool{}
	var slugs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !isPageExtension(ext) {
			continue
		}
		slug := strings.TrimSuffix(name, ext)
		if !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

func isPageExtension(ext string) bool {
	for _, e := range pageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func validSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, "/\\")
}

// decodePageFile normalizes YAML documents to JSON before running them
// through the shared page validator, so both formats fail with the
// same violations.
func decodePageFile(path string, raw []byte) (*dsl.Page, error) {
	ext := filepath.Ext(path)
	if ext == ".yml" || ext == ".yaml" {
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidPage, "page document is not valid YAML", []errors.Violation{
				{Path: "(document)", Message: err.Error()},
			})
		}
		normalized, err := json.Marshal(doc)
		if err != nil {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidPage, "page document is not JSON-compatible", []errors.Violation{
				{Path: "(document)", Message: err.Error()},
			})
		}
		raw = normalized
	}
	return dsl.DecodePage(raw)
}
