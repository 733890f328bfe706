package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadData(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(p, []byte("name: Ann\nitems: [1, 2]\n"), 0o600))

	data, err := readData(p)
	require.NoError(t, err)
	assert.Equal(t, "Ann", data["name"])
	assert.Equal(t, []any{1, 2}, data["items"])

	data, err = readData("")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = readData(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.html"), []byte("@for(x : items){<@x>}"), 0o600))
	data := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(data, []byte(`{"items": ["a", "b"]}`), 0o600))

	f := &flags{dir: dir, config: t.TempDir()}
	cmd := renderCmd(f)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hello", "--data", data})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "<a><b>", out.String())
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.html"), []byte("Hi @name"), 0o600))

	f := &flags{dir: dir, config: t.TempDir()}
	cmd := compileCmd(f)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "==> hello <==")
	assert.Contains(t, out.String(), "$.Args.name")

	cmd.SetArgs([]string{"nope"})
	require.Error(t, cmd.Execute())
}
