package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestValidateCommandValidPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "home.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1.0",
		"meta": {"slug": "home"},
		"root": {"type": "TextBlock", "params": {"text": "hi"}}
	}`), 0o644))

	cmd, out, _ := testCommand()
	require.NoError(t, runValidate(cmd, []string{path}))
	assert.Contains(t, out.String(), "ok")
}

func TestValidateCommandInvalidPage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": "x", "meta": {}, "root": {"type": "T", "params": {}}}`), 0o644))

	cmd, _, errOut := testCommand()
	err := runValidate(cmd, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1")
	assert.Contains(t, errOut.String(), "version")
}

func TestValidateCommandYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "2.1"
meta:
  slug: promo
root:
  type: Container
  params: {}
`), 0o644))

	cmd, out, _ := testCommand()
	require.NoError(t, runValidate(cmd, []string{path}))
	assert.Contains(t, out.String(), "ok")
}

func TestValidateCommandMissingFile(t *testing.T) {
	cmd, _, errOut := testCommand()
	err := runValidate(cmd, []string{filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
	assert.NotEmpty(t, errOut.String())
}

func TestNormalizeDocument(t *testing.T) {
	doc, err := normalizeDocument("x.yaml", []byte("a: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": 1}, doc)

	raw, err := normalizeDocument("x.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), raw)

	_, err = normalizeDocument("x.yml", []byte(": : :"))
	assert.Error(t, err)
}
