package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/pagestore"
	"github.com/pageforge/pageforge/internal/plugins/builtin"
	"github.com/pageforge/pageforge/internal/registry"
)

const landingPage = `{
	"version": "1.0",
	"meta": {"slug": "landing", "title": "Landing"},
	"root": {
		"type": "Container",
		"params": {"tag": "main"},
		"children": [
			{"type": "TextBlock", "params": {"text": "Hello"}},
			{"type": "TextBlock", "params": {"text": "Beta", "featureFlag": "beta"}}
		]
	}
}`

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landing.json"), []byte(landingPage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"),
		[]byte(`{"version": "1.0", "meta": {}, "root": {"type": "Box"}}`), 0o644))

	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0
	cfg.Pages.Dir = dir
	cfg.Locale.Default = "en"
	cfg.Experiments.Salt = "test"
	cfg.Experiments.Buckets = []string{"A", "B"}
	if mutate != nil {
		mutate(cfg)
	}

	reg := registry.NewPluginRegistry()
	require.NoError(t, builtin.RegisterAll(reg))

	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelError, Output: io.Discard})
	srv := New(cfg, logger, pagestore.NewFileRepository(dir), reg)

	ts := httptest.NewServer(srv.httpSrv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func getBody(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestPageJSONEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/pages/landing")
	require.Equal(t, http.StatusOK, status)

	var comp struct {
		Slug   string `json:"slug"`
		Locale string `json:"locale"`
		AB     *struct {
			Bucket string `json:"bucket"`
		} `json:"ab"`
		Tree *struct {
			Type     string `json:"type"`
			Children []struct {
				Params map[string]interface{} `json:"params"`
			} `json:"children"`
		} `json:"tree"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &comp))

	assert.Equal(t, "landing", comp.Slug)
	assert.Equal(t, "en", comp.Locale)
	require.NotNil(t, comp.AB)
	assert.Contains(t, []string{"A", "B"}, comp.AB.Bucket)

	// The beta block is pruned: no flags are configured.
	require.NotNil(t, comp.Tree)
	require.Len(t, comp.Tree.Children, 1)
	assert.Equal(t, "Hello", comp.Tree.Children[0].Params["text"])
}

func TestPageJSONFlagEnabled(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Flags = map[string]bool{"beta": true}
	})

	status, body := getBody(t, ts, "/pages/landing")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Beta")
	assert.NotContains(t, body, "featureFlag")
}

func TestPageHTMLEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/pages/landing/html")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<main><p>Hello</p></main>", body)
}

func TestPageLocaleQueryOverride(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/pages/landing?locale=de")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"locale":"de"`)
}

func TestPageNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/pages/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "page not found")
}

func TestInvalidPageReturnsViolations(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/pages/broken")
	require.Equal(t, http.StatusBadRequest, status)

	var resp struct {
		Violations []struct {
			Path    string `json:"path"`
			Message string `json:"message"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.NotEmpty(t, resp.Violations)
}

func TestParamSchemaViolationReturns400(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typed.json"), []byte(`{
		"version": "1.0",
		"meta": {"slug": "typed"},
		"root": {"type": "TextBlock", "params": {"text": 42}}
	}`), 0o644))

	cfg := &config.Config{}
	cfg.Pages.Dir = dir
	cfg.Locale.Default = "en"
	cfg.Experiments.Salt = "test"
	cfg.Experiments.Buckets = []string{"A", "B"}

	reg := registry.NewPluginRegistry()
	require.NoError(t, builtin.RegisterAll(reg))

	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelError, Output: io.Discard})
	srv := New(cfg, logger, pagestore.NewFileRepository(dir), reg)
	typed := httptest.NewServer(srv.httpSrv.Handler)
	defer typed.Close()

	status, body := getBody(t, typed, "/pages/typed/html")
	require.Equal(t, http.StatusBadRequest, status)

	var resp struct {
		Code       string `json:"code"`
		Violations []struct {
			Path    string `json:"path"`
			Message string `json:"message"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "ERR_PARAMS_INVALID", resp.Code)
	require.NotEmpty(t, resp.Violations)
	assert.Equal(t, "text", resp.Violations[0].Path)
}

func TestDisallowedPluginReturnsGeneric400(t *testing.T) {
	// An allowlist that excludes TextBlock.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "landing.json"), []byte(landingPage), 0o644))

	cfg := &config.Config{}
	cfg.Pages.Dir = dir
	cfg.Locale.Default = "en"
	cfg.Experiments.Salt = "test"
	cfg.Experiments.Buckets = []string{"A", "B"}

	reg := registry.NewPluginRegistry()
	require.NoError(t, builtin.RegisterAll(reg))
	reg.SetAllowlist([]string{"Container"})

	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelError, Output: io.Discard})
	srv := New(cfg, logger, pagestore.NewFileRepository(dir), reg)
	restricted := httptest.NewServer(srv.httpSrv.Handler)
	defer restricted.Close()

	status, body := getBody(t, restricted, "/pages/landing/html")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "page could not be rendered")
	assert.NotContains(t, body, "violations")
}

func TestPageListEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/pages")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Slugs []string `json:"slugs"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, []string{"broken", "landing"}, resp.Slugs)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := getBody(t, ts, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(body, "ok"))
}

func TestUserHeaderBucketStability(t *testing.T) {
	ts := newTestServer(t, nil)

	bucketFor := func() string {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/pages/landing", nil)
		require.NoError(t, err)
		req.Header.Set("X-User-Id", "user-7")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var comp struct {
			AB struct {
				Bucket string `json:"bucket"`
			} `json:"ab"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&comp))
		return comp.AB.Bucket
	}

	first := bucketFor()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, bucketFor())
	}
}
