package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	t.Setenv("POSTMUSE_MASTER_PASSPHRASE", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("database:\n  path: %s\nstorage:\n  data_dir: %s\nlogging:\n  level: error\n",
		filepath.Join(dir, "postmuse.db"), filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTopicCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "topics", "create", "Launch", "--ext", ".md")
	require.NoError(t, err)
	assert.Contains(t, out, "Launch.md")

	out, err = run(t, cfg, "", "topics", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Launch.md")
	assert.NotContains(t, out, "Sample Topic.txt", "a populated knowledge base is not seeded")

	_, err = run(t, cfg, "# Launch\nShipping soon.\n", "topics", "save", "Launch")
	require.NoError(t, err)
	out, err = run(t, cfg, "", "topics", "show", "Launch.md")
	require.NoError(t, err)
	assert.Equal(t, "# Launch\nShipping soon.\n", out)

	_, err = run(t, cfg, "", "topics", "create", "Launch", "--ext", ".md")
	assert.Error(t, err)

	out, err = run(t, cfg, "", "topics", "delete", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 topics")

	out, err = run(t, cfg, "", "topics", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PostMuse.md")
	assert.Contains(t, out, "Sample Topic.txt")
}

func TestModeAndKeyCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "", "mode", "demon")
	require.NoError(t, err)
	assert.Equal(t, "PostDemon on X (limit 280 characters)\n", out)

	_, err = run(t, cfg, "", "mode", "platform", "linkedin")
	require.NoError(t, err)
	out, err = run(t, cfg, "", "mode")
	require.NoError(t, err)
	assert.Equal(t, "PostDemon on LinkedIn (limit 3000 characters)\n", out)

	_, err = run(t, cfg, "sk-test-abcdef\n", "keys", "set", "global")
	require.NoError(t, err)

	out, err = run(t, cfg, "", "settings")
	require.NoError(t, err)
	assert.Contains(t, out, `"global": true`)
	assert.NotContains(t, out, "sk-test")

	_, err = run(t, cfg, "", "keys", "set", "telepathy")
	assert.Error(t, err)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n  b\tc"))
	long := strings.Repeat("x", 100)
	assert.Len(t, oneLine(long), 80)
}
