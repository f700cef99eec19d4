package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(`
[runtime]
strong_typing = true
max_stack = 10

[trace]
statements = true

[programs]
MAIN = "main.asm"
`))
	require.NoError(t, err)
	require.True(t, c.Runtime.StrongTyping)
	require.Equal(t, 10, c.Runtime.MaxStack)
	require.Equal(t, DefaultMaxDepth, c.Runtime.MaxDepth)
	require.True(t, c.Trace.Statements)
	require.False(t, c.Trace.Instructions)
	require.Equal(t, DefaultCacheSize, c.Cache.Size)
	require.Equal(t, DefaultPrompt, c.Debug.Prompt)
	require.Equal(t, "main.asm", c.Programs["MAIN"])
}

func TestParseError(t *testing.T) {
	_, err := Parse(strings.NewReader("[runtime\n"))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bvm.toml")
	require.NoError(t, os.WriteFile(path, []byte("[programs]\nLIB = \"lib/lib.asm\"\n"), 0o644))
	c, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "lib", "lib.asm"), c.Programs["LIB"])

	c, err = LoadFromFile(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultMaxStack, c.Runtime.MaxStack)
}
